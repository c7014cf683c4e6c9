package store

import storage "github.com/osr-alliance/leadtrack/storage"

// define all the query names we will use
const (
	// always start with Default at 0 position
	Default int32 = iota

	/*
		It's standard to have the query used to fetch by
		the primary key be called {tableName}GetByID
	*/
	LeadsGetByID
	LeadsGetAll
)

const (
	DefaultTTL = (3600 * 24 * 7) // 7 days
)

const leadsSchema = `CREATE TABLE IF NOT EXISTS leads (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  phone TEXT NOT NULL,
  source TEXT NOT NULL,
  notes TEXT NOT NULL DEFAULT '',
  follow_up_date TEXT NOT NULL
)`

// leadsTable returns a fresh table config; storage.New parses into it
func leadsTable() *storage.Table {
	return &storage.Table{
		Struct:           Lead{},
		Schema:           leadsSchema,
		PrimaryQueryName: LeadsGetByID,
		PrimaryKeyField:  "id",
		InsertQuery:      leadsInsert,
		Queries: []*storage.Query{
			leadsGetByID(),
			leadsGetAll(),
		},
	}
}
