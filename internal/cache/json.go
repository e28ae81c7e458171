package cache

import (
	"encoding/json"
	"time"
)

// SetJSON stores v as a JSON string so memory and Redis backends hand back identical values
func SetJSON(c Cache, key string, v interface{}, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if ttl > 0 {
		c.SetWithTTL(key, string(data), ttl)
	} else {
		c.Set(key, string(data))
	}
	return nil
}

// GetJSON decodes a value written by SetJSON into dst, reporting whether it was found
func GetJSON(c Cache, key string, dst interface{}) bool {
	if c == nil {
		return false
	}
	raw, ok := c.Get(key)
	if !ok {
		return false
	}
	text, ok := raw.(string)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(text), dst) == nil
}
