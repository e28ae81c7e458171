package cache

import "time"

// Cache defines the interface for cache backends.
// Values stored through SetJSON come back as the same JSON text from every backend.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	SetWithTTL(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Clear()
}
