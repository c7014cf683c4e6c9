package storage

import (
	"errors"
	"fmt"
	"strings"
)

func (t *Table) validate() error {
	if t.Struct == nil {
		return fmt.Errorf("Struct must be set")
	}

	t.parseTableName()

	// you can have no primary key only if you have no insert query
	if t.PrimaryKeyField == "" && t.InsertQuery != "" {
		return fmt.Errorf("Table: %s Err: PrimaryKeyField must be set", t.tableName)
	}

	if t.PrimaryQueryName == 0 {
		return fmt.Errorf("Table: %s Err: PrimaryQueryName must be set", t.tableName)
	}

	if len(t.Queries) == 0 {
		return fmt.Errorf("Table: %s Err: Queries must be set", t.tableName)
	}

	if err := t.validateInsertQuery(); err != nil {
		return fmt.Errorf("Table: %s Err: %w", t.tableName, err)
	}

	if err := t.validatePrimaryQuery(); err != nil {
		return err
	}

	return t.validateAndParseObjMap()
}

func (t *Table) validateInsertQuery() error {
	// insert query shouldn't be required e.g. a read-only view
	if t.InsertQuery != "" && !strings.HasSuffix(strings.ToLower(strings.TrimSpace(t.InsertQuery)), "returning *") {
		return errors.New("InsertQuery must end with `returning *`")
	}
	return nil
}

func (t *Table) validatePrimaryQuery() error {
	for _, q := range t.Queries {
		if q.Name == t.PrimaryQueryName {
			return nil
		}
	}
	return fmt.Errorf("Table: %s Err: PrimaryQueryName %d is not one of its Queries", t.tableName, t.PrimaryQueryName)
}

func (t *Table) validateAndParseObjMap() error {
	objMap, err := structToMap(t.Struct)
	if err != nil {
		return fmt.Errorf("error getting struct map for %s: %s", t.tableName, err)
	}

	if t.PrimaryKeyField != "" {
		if _, ok := objMap[t.PrimaryKeyField]; !ok {
			return fmt.Errorf("Table: %s Err: PrimaryKeyField %q is not a json field of the struct", t.tableName, t.PrimaryKeyField)
		}
	}

	objMap[objMapStructPrimaryKey] = t.PrimaryKeyField

	t.objMap = objMap
	return nil
}

func (t *Table) parseTableName() {
	// optimization but this is used so many times that it's worth it given it uses reflection
	t.tableName = getStructName(t.Struct)
}
