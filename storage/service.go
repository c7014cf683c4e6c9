package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

func getStructName(myvar interface{}) string {
	if t := reflect.TypeOf(myvar); t.Kind() == reflect.Ptr {
		return t.Elem().Name()
	} else {
		return t.Name()
	}
}

// structToMap turns obj into a map keyed by its json tags and stamps the struct name on it
func structToMap(obj interface{}) (map[string]interface{}, error) {
	if obj == nil {
		return nil, errors.New("obj cannot be nil")
	}

	b, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}

	objMap := map[string]interface{}{}
	if err := json.Unmarshal(b, &objMap); err != nil {
		return nil, fmt.Errorf("obj must marshal to a json object: %w", err)
	}

	objMap[objMapStructNameKey] = getStructName(obj)
	return objMap, nil
}

// mapToStruct fills obj from objMap; the private keys are ignored by the json tags
func mapToStruct(objMap map[string]interface{}, obj interface{}) error {
	b, err := json.Marshal(objMap)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, obj)
}

// mapsToStruct fills dest, a pointer to a slice, from the rows
func mapsToStruct(rows []map[string]interface{}, dest interface{}) error {
	value := reflect.ValueOf(dest)

	// need dest to be a pointer to a slice
	if value.Kind() != reflect.Ptr {
		return errors.New("dest must be a pointer to a slice")
	}
	if value.IsNil() {
		return errors.New("dest cannot be a nil pointer")
	}
	if value.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("expected slice but got %s", value.Elem().Kind())
	}

	if rows == nil {
		rows = []map[string]interface{}{}
	}

	b, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	c := make(map[string]interface{}, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
