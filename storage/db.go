package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// InsertInterface is what a query needs from a connection; *sqlx.DB satisfies it
type InsertInterface interface {
	NamedQueryContext(ctx context.Context, query string, arg interface{}) (*sqlx.Rows, error)
}

type db struct {
	writeConnection *sqlx.DB
	readConnection  *sqlx.DB
}

func newDB(conf *Config) *db {
	return &db{
		writeConnection: conf.WriteOnlyDbConn,
		readConnection:  conf.ReadOnlyDbConn,
	}
}

func (db *db) query(ctx context.Context, objMap map[string]interface{}, query string, conn InsertInterface) ([]map[string]interface{}, error) {
	// let's now execute the query
	rows, err := conn.NamedQueryContext(ctx, query, objMap)
	if err != nil {
		return nil, err
	}
	// Let's make sure we don't have a memory leak!! :)
	defer rows.Close()

	objs := []map[string]interface{}{}

	for rows.Next() {
		row := map[string]interface{}{}
		err = rows.MapScan(row)
		if err != nil {
			return nil, err
		}

		// drivers hand text back as []byte; json would base64 it
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}

		// set the struct name
		row[objMapStructNameKey] = objMap[objMapStructNameKey]
		objs = append(objs, row)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return objs, nil
}

func (db *db) writeConn() *sqlx.DB {
	return db.writeConnection
}

func (db *db) readConn() *sqlx.DB {
	return db.readConnection
}
