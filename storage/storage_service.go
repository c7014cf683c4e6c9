package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"
)

func (s *storage) selectOne(ctx context.Context, objMap map[string]interface{}, q *Query, conn InsertInterface) (map[string]interface{}, error) {
	// get the cache key namme
	keyName := q.getKeyName(objMap)

	// lists are only read through selectAll
	useCache := q.SelectAction != CacheNoAction && !q.isList()

	if useCache {
		cached := map[string]interface{}{}
		err := s.cache.get(ctx, keyName, &cached)
		if err == nil {
			s.d("selectOne() cache hit key: %s", keyName)
			return cached, nil
		}

		// a broken cache is not a reason to fail the read
		if !errors.Is(err, redis.Nil) {
			s.log.warn(err, "cache read failed key=%s; reading from db", keyName)
		}
	}

	// the value wasn't found in the cache; let's get from the database and then set the cache
	s.d("selectOne() cache miss key: %s", keyName)
	res, err := s.db.query(ctx, objMap, q.Query, conn)
	if err != nil {
		return nil, fmt.Errorf("storage: select %s: %w", q.tableName, err)
	}
	if len(res) == 0 {
		return nil, ErrNoRows
	}

	// update the cache
	if useCache {
		if err := s.cacheActionSelect(ctx, res[0], q); err != nil {
			s.log.warn(err, "cache update after select failed key=%s", keyName)
		}
	}

	return res[0], nil
}

func (s *storage) selectAll(ctx context.Context, objMap map[string]interface{}, q *Query, conn InsertInterface) ([]map[string]interface{}, error) {
	// there's no action to take on select so just do the query and return
	if q.SelectAction == CacheNoAction || !q.isList() || !s.cache.enabled() {
		return s.queryAll(ctx, objMap, q, conn)
	}

	// get the cache key namme
	keyName := q.getKeyName(objMap)

	ids, err := s.cache.getList(ctx, keyName)
	if err == nil {
		s.d("selectAll() found data in list key: %s values: %+v", keyName, ids)
		rows, err := s.selectByPrimaryKeys(ctx, ids, q, conn)
		if err == nil {
			return rows, nil
		}
		s.log.warn(err, "reading cached list failed key=%s; reading from db", keyName)
		return s.queryAll(ctx, objMap, q, conn)
	}

	if !errors.Is(err, redis.Nil) {
		s.log.warn(err, "cache read failed key=%s; reading from db", keyName)
		return s.queryAll(ctx, objMap, q, conn)
	}

	// the list wasn't found in the cache; read the db and store the ids unless an insert lands meanwhile
	var objs []map[string]interface{}
	var dbErr error
	loaded, err := s.cache.loadList(ctx, keyName, q.CacheTTL, func() ([]interface{}, error) {
		objs, dbErr = s.queryAll(ctx, objMap, q, conn)
		if dbErr != nil {
			return nil, dbErr
		}
		return s.listIDs(objs, q)
	})
	if dbErr != nil {
		return nil, dbErr
	}

	switch {
	case err == nil:
	case errors.Is(err, redis.TxFailedErr):
		s.d("selectAll() list key: %s changed while loading; not cached", keyName)
	default:
		s.log.warn(err, "cache update after select all failed key=%s", keyName)
	}

	if !loaded {
		return s.queryAll(ctx, objMap, q, conn)
	}
	return objs, nil
}

func (s *storage) queryAll(ctx context.Context, objMap map[string]interface{}, q *Query, conn InsertInterface) ([]map[string]interface{}, error) {
	objs, err := s.db.query(ctx, objMap, q.Query, conn)
	if err != nil {
		return nil, fmt.Errorf("storage: select all %s: %w", q.tableName, err)
	}
	return objs, nil
}

// selectByPrimaryKeys fetches each id through the list's primary query, keeping the order of ids
func (s *storage) selectByPrimaryKeys(ctx context.Context, ids []string, q *Query, conn InsertInterface) ([]map[string]interface{}, error) {
	primary := s.queries[q.CachePrimaryQueryStored]
	table := s.queryToTable[q.CachePrimaryQueryStored]

	res := make([]map[string]interface{}, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		// get the row that corresponds to the primary key's id stored -> row
		row := copyMap(s.queryToMap[q.CachePrimaryQueryStored])
		row[table.PrimaryKeyField] = id
		row[objMapStructNameKey] = table.tableName

		if s.disableConcurrency {
			r, err := s.selectOne(ctx, row, primary, conn)
			if err != nil {
				return nil, err
			}
			res[i] = r
			continue
		}

		i := i
		g.Go(func() error {
			r, err := s.selectOne(gctx, row, primary, conn)
			if err != nil {
				return err
			}
			res[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *storage) insert(ctx context.Context, objMap map[string]interface{}, conn InsertInterface) (map[string]interface{}, error) {
	// get the struct's string name to get the table
	structName, _ := objMap[objMapStructNameKey].(string)
	if structName == "" {
		return nil, errors.New("struct name cannot be blank")
	}

	table, ok := s.structToTable[structName]
	if !ok {
		return nil, errors.New("no table config found for " + structName)
	}
	if table.InsertQuery == "" {
		return nil, errors.New("no insert query configured for " + structName)
	}

	res, err := s.db.query(ctx, objMap, table.InsertQuery, conn)
	if err != nil {
		return nil, fmt.Errorf("storage: insert %s: %w", structName, err)
	}

	if len(res) != 1 {
		return nil, fmt.Errorf("insert did not return a single row; returned: %d", len(res))
	}

	// objMap probably has stuff we need so we'll just overwrite the fields we have and return objMap
	for k, v := range res[0] {
		objMap[k] = v
	}

	// the row is committed; a cache failure here only means a stale key until its TTL
	if err := s.actionNonSelect(ctx, objMap, actionInsert); err != nil {
		s.log.warn(err, "cache update after insert failed table=%s", structName)
	}

	return objMap, nil
}
