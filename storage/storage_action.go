package storage

import (
	"context"
	"errors"
)

/*
	actionNonSelect takes an action on a specific row that has been inserted. This will cause:
	1. individual structs to be set in cache (e.g. a lead by id)
	2. lists to be RPushX'd (note the X: a list that isn't cached yet stays uncached)
*/
func (s *storage) actionNonSelect(ctx context.Context, objMap map[string]interface{}, action actionTypes) error {
	if action == actionSelect {
		return errors.New("cannot do actionSelect in actionNonSelect...")
	}

	structName, _ := objMap[objMapStructNameKey].(string)
	table, ok := s.structToTable[structName]
	if !ok {
		return errors.New("no table config found for " + structName)
	}

	var errs []error
	for _, q := range table.Queries {
		var err error

		switch q.InsertAction {
		case CacheNoAction:
			// don't do anything

		case CacheSet:
			err = s.cache.set(ctx, q.getKeyName(objMap), objMap, q.CacheTTL)

		case CacheDel:
			err = s.cache.del(ctx, q.getKeyName(objMap))

		case CacheRPush:
			// the list holds the primary keys of the primary query's table
			m := s.queryToMap[q.CachePrimaryQueryStored]
			pkField, ok := m[objMapStructPrimaryKey].(string)
			if !ok {
				err = errors.New("issue getting primary key of CachePrimaryQueryStored")
				break
			}
			err = s.cache.appendList(ctx, q.getKeyName(objMap), objMap[pkField], q.CacheTTL)

		default:
			err = errors.New("unknown insert action")
		}

		// do not return; we want to update all the queries
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// cacheActionSelect updates a struct key after a cache miss; lists are stored by selectAll
func (s *storage) cacheActionSelect(ctx context.Context, objMap map[string]interface{}, q *Query) error {
	keyName := q.getKeyName(objMap)

	switch q.SelectAction {
	case CacheNoAction:
		// don't do anything
		return nil

	case CacheSet:
		return s.cache.set(ctx, keyName, objMap, q.CacheTTL)

	case CacheDel:
		return s.cache.del(ctx, keyName)

	default:
		return errors.New("unknown select action")
	}
}

// listIDs picks the primary keys a list query stores out of its rows
func (s *storage) listIDs(objs []map[string]interface{}, q *Query) ([]interface{}, error) {
	m := s.queryToMap[q.CachePrimaryQueryStored]
	pkField, ok := m[objMapStructPrimaryKey].(string)
	if !ok {
		return nil, errors.New("issue getting primary key of CachePrimaryQueryStored")
	}

	ids := make([]interface{}, 0, len(objs))
	for _, v := range objs {
		ids = append(ids, v[pkField])
	}
	return ids, nil
}
