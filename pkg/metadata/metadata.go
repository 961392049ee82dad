// Package metadata defines the key/value store the transport reads its
// policy from, together with typed accessors that tolerate the loosely
// typed values produced by config files and policy documents.
package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Metadata interface {
	IsExists(key string) bool
	Get(key string) any
	// Set stores a value. Stores backed by durable state persist it.
	Set(key string, value any) error
}

type MapMetadata map[string]any

func (m MapMetadata) IsExists(key string) bool {
	_, ok := m[key]
	return ok
}

func (m MapMetadata) Get(key string) any {
	if m != nil {
		return m[key]
	}
	return nil
}

func (m MapMetadata) Set(key string, value any) error {
	if m == nil {
		return fmt.Errorf("metadata: set %s on nil map", key)
	}
	m[key] = value
	return nil
}

func GetBool(md Metadata, key string, def bool) (v bool) {
	if md == nil || !md.IsExists(key) {
		return def
	}
	switch vv := md.Get(key).(type) {
	case bool:
		return vv
	case int:
		return vv != 0
	case int64:
		return vv != 0
	case string:
		var err error
		if v, err = strconv.ParseBool(strings.TrimSpace(vv)); err != nil {
			return def
		}
		return v
	}
	return def
}

func GetInt(md Metadata, key string, def int) (v int) {
	if md == nil || !md.IsExists(key) {
		return def
	}
	switch vv := md.Get(key).(type) {
	case bool:
		if vv {
			v = 1
		}
		return
	case int:
		return vv
	case int64:
		return int(vv)
	case float64:
		return int(vv)
	case string:
		var err error
		if v, err = strconv.Atoi(strings.TrimSpace(vv)); err != nil {
			return def
		}
		return v
	}
	return def
}

func GetString(md Metadata, key string, def string) string {
	if md == nil || !md.IsExists(key) {
		return def
	}
	switch vv := md.Get(key).(type) {
	case string:
		return vv
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", vv)
	}
	return def
}

// GetStrings accepts either a list value or a comma separated string.
// Empty elements are dropped.
func GetStrings(md Metadata, key string) (ss []string) {
	if md == nil {
		return nil
	}
	switch vv := md.Get(key).(type) {
	case []string:
		for _, s := range vv {
			if s = strings.TrimSpace(s); s != "" {
				ss = append(ss, s)
			}
		}
	case []any:
		for _, v := range vv {
			if s, _ := v.(string); strings.TrimSpace(s) != "" {
				ss = append(ss, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(vv, ",") {
			if s = strings.TrimSpace(s); s != "" {
				ss = append(ss, s)
			}
		}
	}
	return
}

func GetDuration(md Metadata, key string, def time.Duration) (v time.Duration) {
	if md == nil || !md.IsExists(key) {
		return def
	}
	switch vv := md.Get(key).(type) {
	case int:
		return time.Duration(vv) * time.Second
	case time.Duration:
		return vv
	case string:
		var err error
		if v, err = time.ParseDuration(vv); err != nil {
			return def
		}
		return v
	}
	return def
}
