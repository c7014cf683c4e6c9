package storage

import (
	"errors"
	"fmt"
	"strings"
)

func (q *Query) validate() error {
	err := q.validateName()
	if err != nil {
		return err
	}

	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("query %d: Query is required", q.Name)
	}

	q.parseDefaultActions()

	err = q.validateAndParseCacheFields()
	if err != nil {
		return err
	}

	return q.validateAndParseCacheDataStructure()
}

func (q *Query) validateName() error {
	if q.Name == 0 {
		return errors.New("name is required")
	}
	return nil
}

// parseDefaultActions treats unset actions as CacheNoAction
func (q *Query) parseDefaultActions() {
	if q.InsertAction == CacheDefault {
		q.InsertAction = CacheNoAction
	}
	if q.SelectAction == CacheDefault {
		q.SelectAction = CacheNoAction
	}
}

func (q *Query) parseTableName(tableName string) {
	q.tableName = tableName
}

func (q *Query) parseFullCacheKey(service string, tableName string) {
	// this is an optimization so we don't need to sprintf extra keys and do the lookup
	// small but this is used so many times that it's worth it
	q.fullCacheKey = fmt.Sprintf("service:%s|%s|", service, tableName) + q.CacheKey
}

func (q *Query) parseTTL(defaultTTL int) {
	if q.CacheTTL == 0 {
		q.CacheTTL = defaultTTL
	}
}

// validateAndParseCacheDataStructure parses the Insert and Select actions and sets the cacheDataStructure based off of the actions
func (q *Query) validateAndParseCacheDataStructure() error {
	m := map[string]CacheDataStructure{}

	m["insert"] = CacheDataStructureStruct
	// check to see if it's a list
	switch q.InsertAction {
	case CacheRPush:
		m["insert"] = CacheDataStructureList
	case CacheNoAction, CacheDel:
		delete(m, "insert")
	}

	m["select"] = CacheDataStructureStruct
	switch q.SelectAction {
	case CacheRPush:
		m["select"] = CacheDataStructureList
	case CacheNoAction, CacheDel:
		delete(m, "select")
	}

	if len(m) == 0 {
		// everything is CacheNoAction
		return nil
	}

	c := CacheDataStructureDefault
	for _, v := range m {
		// first time through; set c to the first value
		if c == CacheDataStructureDefault {
			c = v
			continue
		}

		if c != v {
			return fmt.Errorf("query %d: all actions must be the same datastructure", q.Name)
		}
	}

	q.cacheDataStructure = c // assign the cacheDataStructure a value

	return nil
}

// validateAndParseCacheFields takes in a generic key e.g. `lead_id=%v` and places the lead_id into the cacheKeyFields
func (q *Query) validateAndParseCacheFields() error {
	if q.CacheKey == "" && !q.noCache() {
		return fmt.Errorf("query %d: CacheKey is required when the query is cached", q.Name)
	}

	fields := []string{}

	for _, key := range strings.Split(q.CacheKey, "|") {
		if !strings.Contains(key, `%v`) {
			// field doens't have a placeholder value; continue
			continue
		}

		parts := strings.Split(key, "=")
		if len(parts) != 2 || parts[0] == "" || parts[1] != `%v` {
			return fmt.Errorf("invalid CacheKey %q; a pipe must be in the format `field=%%v`", q.CacheKey)
		}

		fields = append(fields, parts[0])
	}

	q.cacheKeyFields = fields

	return nil
}
