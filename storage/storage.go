package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	"github.com/sirupsen/logrus"
)

// Storage defines our API for this package
type Storage interface {
	// Insert runs the table's InsertQuery and fills obj with the returned row
	Insert(ctx context.Context, obj interface{}) error

	// Select fills out the obj for its response; returns ErrNoRows when nothing matched
	Select(ctx context.Context, obj interface{}, queryName int32) error

	/*
		SelectAll fills out dest (a pointer to a slice of the table's struct) as the response.
		obj carries the named parameters of the query.
	*/
	SelectAll(ctx context.Context, obj interface{}, dest interface{}, queryName int32) error
}

// storage is the private implements the API
type storage struct {
	db    *db
	cache *cache
	log   *logger

	serviceName        string
	defaultTTL         int
	disableConcurrency bool

	// structToTable maps the struct name to its table
	structToTable map[string]*Table

	// queries maps the Query.Name to the query
	queries map[int32]*Query

	// queryToTable maps the Query.Name to the table it reads from
	queryToTable map[int32]*Table

	// queryToMap maps the Query.Name to the empty objMap of the table's struct
	queryToMap map[int32]map[string]interface{}
}

type Config struct {
	ReadOnlyDbConn  *sqlx.DB
	WriteOnlyDbConn *sqlx.DB
	Redis           *redis.Client // nil disables the cache
	Tables          []*Table

	ServiceName string
	DefaultTTL  int // seconds; used by queries without a CacheTTL

	Debugger           bool
	Logger             *logrus.Entry
	DisableConcurrency bool // fetch cached list rows one at a time
}

// New validates the config and returns the storage. The tables' schemas must already exist (see Initialize).
func New(conf *Config) (Storage, error) {
	if conf == nil {
		return nil, errors.New("storage: config is required")
	}
	if conf.ReadOnlyDbConn == nil || conf.WriteOnlyDbConn == nil {
		return nil, errors.New("storage: read and write db connections are required")
	}

	// use the json tag instead of the DB tag
	conf.ReadOnlyDbConn.Mapper = reflectx.NewMapperFunc("json", strings.ToLower)
	conf.WriteOnlyDbConn.Mapper = reflectx.NewMapperFunc("json", strings.ToLower)

	s := &storage{
		db:                 newDB(conf),
		cache:              newCache(conf.Redis),
		log:                newLogger(conf.Logger, conf.Debugger),
		serviceName:        conf.ServiceName,
		defaultTTL:         conf.DefaultTTL,
		disableConcurrency: conf.DisableConcurrency,
		structToTable:      make(map[string]*Table),
		queries:            make(map[int32]*Query),
		queryToTable:       make(map[int32]*Table),
		queryToMap:         make(map[int32]map[string]interface{}),
	}

	if s.serviceName == "" {
		return nil, errors.New("storage: serviceName must be set")
	}

	for _, t := range conf.Tables {
		if err := t.validate(); err != nil {
			return nil, err
		}

		s.structToTable[t.tableName] = t

		for _, q := range t.Queries {
			if _, ok := s.queries[q.Name]; ok {
				return nil, fmt.Errorf("storage: duplicate query name %d", q.Name)
			}

			if err := q.validate(); err != nil {
				return nil, fmt.Errorf("Table: %s Err: %w", t.tableName, err)
			}

			q.parseTableName(t.tableName)
			q.parseFullCacheKey(s.serviceName, t.tableName)
			q.parseTTL(s.defaultTTL)

			s.queries[q.Name] = q
			s.queryToTable[q.Name] = t
			s.queryToMap[q.Name] = t.objMap
		}
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Initialize runs every table's Schema against conn. It is idempotent and must be called once during bootstrap, before New.
func Initialize(ctx context.Context, conn *sqlx.DB, tables ...*Table) error {
	if conn == nil {
		return errors.New("storage: db connection is required")
	}
	for _, t := range tables {
		if t.Schema == "" {
			continue
		}
		if _, err := conn.ExecContext(ctx, t.Schema); err != nil {
			return fmt.Errorf("storage: initialize %s: %w", getStructName(t.Struct), err)
		}
	}
	return nil
}

func (s *storage) Insert(ctx context.Context, obj interface{}) error {
	if reflect.ValueOf(obj).Kind() != reflect.Ptr {
		return fmt.Errorf("obj not pointer; is %T", obj)
	}

	objMap, err := structToMap(obj)
	if err != nil {
		return err
	}

	objMap, err = s.insert(ctx, objMap, s.db.writeConn())
	if err != nil {
		return err
	}

	return mapToStruct(objMap, obj)
}

func (s *storage) Select(ctx context.Context, obj interface{}, queryName int32) error {
	if reflect.ValueOf(obj).Kind() != reflect.Ptr {
		return fmt.Errorf("obj not pointer; is %T", obj)
	}

	q, ok := s.queries[queryName]
	if !ok {
		return errors.New("config query not found; have you configured storage properly?")
	}

	objMap, err := structToMap(obj)
	if err != nil {
		return err
	}

	row, err := s.selectOne(ctx, objMap, q, s.db.readConn())
	if err != nil {
		return err
	}

	return mapToStruct(row, obj)
}

func (s *storage) SelectAll(ctx context.Context, obj interface{}, dest interface{}, queryName int32) error {
	if reflect.ValueOf(dest).Kind() != reflect.Ptr {
		return fmt.Errorf("dest not pointer; is %T", dest)
	}

	q, ok := s.queries[queryName]
	if !ok {
		return errors.New("table config not found; have you configured storage properly?")
	}

	objMap, err := structToMap(obj)
	if err != nil {
		return err
	}

	rows, err := s.selectAll(ctx, objMap, q, s.db.readConn())
	if err != nil {
		return err
	}

	return mapsToStruct(rows, dest)
}
