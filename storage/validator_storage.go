package storage

import (
	"context"
	"errors"
	"fmt"
)

func (s *storage) validate() error {
	err := s.validatePrimaryQueryStored()
	if err != nil {
		return err
	}

	return s.validateQueries()
}

// validatePrimaryQueryStored makes sure that the key in CachePrimaryQueryStored is actually a query that queries based off primary key
func (s *storage) validatePrimaryQueryStored() error {
	for _, q := range s.queries {
		// we're only checking lists
		if !q.isList() {
			continue
		}

		if q.CachePrimaryQueryStored == 0 {
			return errors.New("CachePrimaryQueryStored must be set for lists in " + q.CacheKey)
		}

		// check to see if the primary query is the primary key of a table
		pkStored := q.CachePrimaryQueryStored

		t, ok := s.queryToTable[pkStored]
		if !ok || t.PrimaryQueryName != pkStored {
			return errors.New("CachePrimaryQueryStored must be the primary query of a table in " + q.CacheKey)
		}
	}
	return nil
}

// validateQueries asks the database to plan every cached query so typos surface at startup
func (s *storage) validateQueries() error {
	ctx := context.Background()

	for _, q := range s.queries {
		if q.noCache() {
			continue
		}

		m := copyMap(s.queryToMap[q.Name])

		explainQuery := fmt.Sprintf("EXPLAIN %s", q.Query)

		rows, err := s.db.readConn().NamedQueryContext(ctx, explainQuery, m)
		if err != nil {
			return fmt.Errorf("error in query: %s. Query: %s", err.Error(), q.Query)
		}
		rows.Close()
	}

	return nil
}
