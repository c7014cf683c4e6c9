package storage

import (
	"errors"
	"fmt"
)

type actionTypes int32

const (
	actionSelect actionTypes = iota
	actionInsert
)

const (
	objMapStructNameKey    = "_structName"
	objMapStructPrimaryKey = "_primaryKey"
)

// ErrNoRows is returned by Select when the query matched nothing.
var ErrNoRows = errors.New("storage: no rows found")

// Define the cache actions you can take
type CacheAction int32

const (
	CacheDefault  CacheAction = iota
	CacheNoAction             // do nothing
	CacheDel
	CacheSet
	CacheRPush
)

type CacheDataStructure int32

const (
	CacheDataStructureDefault CacheDataStructure = iota
	CacheDataStructureStruct
	CacheDataStructureList
)

// Table is the config for a single db table and the queries that read from it
type Table struct {
	Struct interface{} // DB struct this is based off of; json tags are the column names

	/*
		Schema is the DDL run by Initialize. It must be idempotent,
		e.g. `CREATE TABLE IF NOT EXISTS ...`
	*/
	Schema string

	PrimaryKeyField  string // json tag of the primary key e.g. "id"
	PrimaryQueryName int32  // the Query.Name that fetches by the primary key e.g. LeadsGetByID
	InsertQuery      string // must end with `RETURNING *`
	Queries          []*Query

	tableName string
	objMap    map[string]interface{}
}

// Query holds the config for both cache & db and is associated to a specific Table
type Query struct {
	Name int32 // should be a const iota in the package calling this storage package

	/*
		CacheKey is the dynamic part of the cache key e.g. `id=%v` or `all`.
		Pipes separate fields: `user_id=%v|status=%v`.
		The full key is prefixed with `service:{serviceName}|{tableName}|`
	*/
	CacheKey string

	/*
		CachePrimaryQueryStored is the primary query of the table whose primary keys
		are stored in this query's list. Only applicable to lists.

		An example: LeadsGetAll keeps a list of lead ids and each id is fetched
		with LeadsGetByID, which is itself cached as a struct.
	*/
	CachePrimaryQueryStored int32

	Query    string // sql query if key isn't in cache; named params e.g. `:id`
	CacheTTL int    // time to live in seconds; 0 = use the storage default

	InsertAction CacheAction // action to take on this key when a row is inserted into the table
	SelectAction CacheAction // action to take on this key when the query misses the cache

	tableName          string
	fullCacheKey       string
	cacheKeyFields     []string
	cacheDataStructure CacheDataStructure
}

// getKeyName takes a query's abstract key, e.g. `service:leadtrack|Lead|id=%v` and returns the key name e.g. `service:leadtrack|Lead|id=1273`
func (q *Query) getKeyName(objMap map[string]interface{}) string {
	args := []interface{}{}
	for _, field := range q.cacheKeyFields {
		args = append(args, objMap[field])
	}

	return fmt.Sprintf(q.fullCacheKey, args...)
}

func (q *Query) isList() bool {
	return q.cacheDataStructure == CacheDataStructureList
}

func (q *Query) noCache() bool {
	return q.InsertAction == CacheNoAction && q.SelectAction == CacheNoAction
}
