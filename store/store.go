package store

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	storage "github.com/osr-alliance/leadtrack/storage"
)

// ServiceName prefixes every cache key this store writes.
const ServiceName = "leadtrack"

// FollowUpAfter is how long after creation a lead is due for follow-up.
const FollowUpAfter = 48 * time.Hour

// ErrNotFound is returned by GetLead when no lead has the id.
var ErrNotFound = errors.New("lead not found")

type Store interface {
	CreateLead(ctx context.Context, req CreateLeadRequest) (*Lead, error)
	GetLead(ctx context.Context, id string) (*Lead, error)
	ListLeads(ctx context.Context) ([]Lead, error)
}

type store struct {
	store storage.Storage
	log   *logrus.Entry
	now   func() time.Time
	newID func() string
}

type Config struct {
	ReadConn  *sqlx.DB
	WriteConn *sqlx.DB
	Redis     *redis.Client // optional read-through cache
	CacheTTL  int           // seconds; DefaultTTL when zero

	Debugger bool
	Logger   *logrus.Entry

	Now   func() time.Time // clock; time.Now when nil
	NewID func() string    // id generator; uuid.NewString when nil
}

// New builds the lead store. Initialize must have run against the connection first.
func New(conf *Config) (Store, error) {
	if conf == nil {
		return nil, errors.New("store: config is required")
	}

	ttl := conf.CacheTTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	logger := conf.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	// instantiate the storage
	s, err := storage.New(&storage.Config{
		ReadOnlyDbConn:  conf.ReadConn,
		WriteOnlyDbConn: conf.WriteConn,
		Redis:           conf.Redis,
		Tables:          []*storage.Table{leadsTable()},
		ServiceName:     ServiceName,
		DefaultTTL:      ttl,
		Debugger:        conf.Debugger,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	st := &store{
		store: s,
		log:   logger.WithField("component", "store"),
		now:   conf.Now,
		newID: conf.NewID,
	}
	if st.now == nil {
		st.now = time.Now
	}
	if st.newID == nil {
		st.newID = uuid.NewString
	}
	return st, nil
}
