package config

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// foldJSON parses a JSON object and upper-cases its top-level keys
func foldJSON(raw string) (map[string]interface{}, error) {
	var src map[string]interface{}
	if err := jsoniter.UnmarshalFromString(raw, &src); err != nil {
		return nil, ErrInvalidValue.WrapMessage("expected a JSON object: %v", err)
	}
	return foldKeys(src)
}

func foldKeys(src map[string]interface{}) (map[string]interface{}, error) {
	res := make(map[string]interface{}, len(src))
	for k, v := range src {
		key := strings.ToUpper(k)
		if _, dup := res[key]; dup {
			return nil, ErrDuplicateKey.WrapMessage("%q", key)
		}
		res[key] = v
	}
	return res, nil
}

// asObject converts a stored JSON value into a map
func asObject(v interface{}) map[string]interface{} {
	switch m := v.(type) {
	case map[string]interface{}:
		res := make(map[string]interface{}, len(m))
		for k, val := range m {
			res[k] = val
		}
		return res
	case string:
		if res, err := foldJSON(m); err == nil {
			return res
		}
	}
	return map[string]interface{}{}
}
