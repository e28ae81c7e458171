package cache

import (
	"sync"
	"testing"
	"time"
)

func TestNewMemory(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	if c.items == nil {
		t.Fatal("NewMemory() returned cache with nil items map")
	}
	if c.ttl != time.Minute {
		t.Errorf("ttl = %v, want %v", c.ttl, time.Minute)
	}
}

func TestMemoryCache_GetSet(t *testing.T) {
	tests := []struct {
		name   string
		set    map[string]interface{}
		key    string
		want   interface{}
		wantOK bool
	}{
		{"hit", map[string]interface{}{"spec:apple|iphone 15": "cached"}, "spec:apple|iphone 15", "cached", true},
		{"miss", map[string]interface{}{"spec:apple|iphone 15": "cached"}, "spec:google|pixel 8", nil, false},
		{"nil value is still a hit", map[string]interface{}{"img:none": nil}, "img:none", nil, true},
		{"int value", map[string]interface{}{"count": 42}, "count", 42, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMemory(time.Minute)
			defer c.Stop()

			for k, v := range tt.set {
				c.Set(k, v)
			}
			got, ok := c.Get(tt.key)
			if ok != tt.wantOK {
				t.Fatalf("Get(%q) ok = %v, want %v", tt.key, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Get(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestMemoryCache_Overwrite(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	c.Set("thumb:abc", "v1")
	c.Set("thumb:abc", "v2")

	if got, _ := c.Get("thumb:abc"); got != "v2" {
		t.Errorf("Get() = %v, want v2", got)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemory(50 * time.Millisecond)
	defer c.Stop()

	c.Set("short", "value")
	c.SetWithTTL("long", "value", time.Hour)

	time.Sleep(80 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("entry with default TTL should have expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("entry with explicit TTL should still be present")
	}
	if n := c.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Error("Get() should miss after Delete()")
	}
	if n := c.Len(); n != 2 {
		t.Errorf("Len() after Delete = %d, want 2", n)
	}

	c.Clear()
	if n := c.Len(); n != 0 {
		t.Errorf("Len() after Clear = %d, want 0", n)
	}
}

func TestMemoryCache_StopTwice(t *testing.T) {
	c := NewMemory(time.Minute)
	c.Stop()
	c.Stop()
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("shared", idx*100+j)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Get("shared")
				if j%10 == 0 {
					c.Delete("shared")
				}
			}
		}()
	}
	wg.Wait()
}

type cachedSpec struct {
	Source     string            `json:"source"`
	Confidence float64           `json:"confidence"`
	Fields     map[string]string `json:"fields"`
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	in := cachedSpec{Source: "html", Confidence: 0.5, Fields: map[string]string{"display": "6.1\""}}
	if err := SetJSON(c, "spec:apple|iphone 15", in, 0); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}

	raw, ok := c.Get("spec:apple|iphone 15")
	if !ok {
		t.Fatal("value not stored")
	}
	if _, isString := raw.(string); !isString {
		t.Errorf("stored value is %T, want string", raw)
	}

	var out cachedSpec
	if !GetJSON(c, "spec:apple|iphone 15", &out) {
		t.Fatal("GetJSON() = false, want true")
	}
	if out.Source != in.Source || out.Confidence != in.Confidence || out.Fields["display"] != "6.1\"" {
		t.Errorf("GetJSON() = %+v, want %+v", out, in)
	}
}

func TestJSONHelpers_Misses(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	var out cachedSpec
	if GetJSON(c, "missing", &out) {
		t.Error("GetJSON() on missing key = true")
	}

	c.Set("not-json", 17)
	if GetJSON(c, "not-json", &out) {
		t.Error("GetJSON() on non-string value = true")
	}

	c.Set("bad-json", "{oops")
	if GetJSON(c, "bad-json", &out) {
		t.Error("GetJSON() on malformed value = true")
	}

	if GetJSON(nil, "anything", &out) {
		t.Error("GetJSON() on nil cache = true")
	}
	if err := SetJSON(nil, "anything", out, time.Minute); err != nil {
		t.Errorf("SetJSON() on nil cache error = %v", err)
	}
}

func TestRedisCache_ImplementsInterface(t *testing.T) {
	var _ Cache = (*RedisCache)(nil)
}
