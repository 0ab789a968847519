package tts

import (
	"bytes"
	"testing"
)

func TestCacheKey_Deterministic(t *testing.T) {
	a := CacheKey("v1", "m1", "wav", "hello world")
	b := CacheKey("v1", "m1", "wav", "hello world")
	if a != b {
		t.Error("same inputs produced different keys")
	}
	if CacheKey("v2", "m1", "wav", "hello world") == a {
		t.Error("voice change did not change the key")
	}
	if CacheKey("v1", "m1", "wav", "hello there") == a {
		t.Error("text change did not change the key")
	}
}

func TestCacheKey_NormalizesWhitespace(t *testing.T) {
	a := CacheKey("v", "m", "wav", "hello   world")
	b := CacheKey("v", "m", "wav", "  hello world\n")
	if a != b {
		t.Error("whitespace-only text differences should map to the same key")
	}
}

func TestCache_GetPut(t *testing.T) {
	c := NewCache(1024)
	if _, ok := c.Get("k"); ok {
		t.Fatal("hit on empty cache")
	}
	c.Put("k", []byte("audio"))
	got, ok := c.Get("k")
	if !ok || !bytes.Equal(got, []byte("audio")) {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Entries != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestCache_EvictsOldestWhenOverBudget(t *testing.T) {
	c := NewCache(30)
	c.Put("a", make([]byte, 10))
	c.Put("b", make([]byte, 10))
	c.Put("c", make([]byte, 10))

	// Budget is full; one more entry must evict "a", the oldest access.
	c.Put("d", make([]byte, 10))

	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry survived eviction")
	}
	for _, k := range []string{"b", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("entry %q evicted unexpectedly", k)
		}
	}
	if st := c.Stats(); st.Evictions != 1 || st.SizeBytes != 30 {
		t.Errorf("stats = %+v", st)
	}
}

func TestCache_AccessRefreshesEvictionOrder(t *testing.T) {
	c := NewCache(30)
	c.Put("a", make([]byte, 10))
	c.Put("b", make([]byte, 10))
	c.Put("c", make([]byte, 10))

	// Touch "a"; "b" becomes the eviction candidate.
	c.Get("a")
	c.Put("d", make([]byte, 10))

	if _, ok := c.Get("a"); !ok {
		t.Error("recently accessed entry was evicted")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("least recently accessed entry survived")
	}
}

func TestCache_OversizedEntryLeavesCacheEmpty(t *testing.T) {
	c := NewCache(10)
	c.Put("huge", make([]byte, 100))
	if st := c.Stats(); st.Entries != 0 || st.SizeBytes != 0 {
		t.Errorf("stats after oversized put = %+v", st)
	}
}

func TestCache_PutSameKeyReplacesSize(t *testing.T) {
	c := NewCache(100)
	c.Put("k", make([]byte, 50))
	c.Put("k", make([]byte, 20))
	if st := c.Stats(); st.SizeBytes != 20 || st.Entries != 1 {
		t.Errorf("stats = %+v", st)
	}
}
