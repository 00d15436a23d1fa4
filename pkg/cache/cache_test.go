package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestGetSet(t *testing.T) {
	c := New[string, int](4)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("a", 1)
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v; want 1, true", v, ok)
	}

	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Fatalf("Get(a) after update = %d, want 2", v)
	}
}

func TestEviction(t *testing.T) {
	c := New[int, int](2)
	c.Set(1, 1)
	c.Set(2, 2)

	// Touch 1 so 2 becomes the eviction candidate.
	c.Get(1)
	c.Set(3, 3)

	if _, ok := c.Get(2); ok {
		t.Error("expected 2 to be evicted")
	}
	if _, ok := c.Get(1); !ok {
		t.Error("expected 1 to survive")
	}
	if _, ok := c.Get(3); !ok {
		t.Error("expected 3 to be present")
	}
}

func TestGetOrLoad(t *testing.T) {
	c := New[string, string](8)

	calls := 0
	load := func() (string, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("k", load)
		if err != nil {
			t.Fatalf("GetOrLoad failed: %v", err)
		}
		if v != "value" {
			t.Fatalf("GetOrLoad = %q", v)
		}
	}
	if calls != 1 {
		t.Errorf("load called %d times, want 1", calls)
	}
}

func TestGetOrLoadErrorNotCached(t *testing.T) {
	c := New[string, string](8)
	boom := errors.New("boom")

	calls := 0
	_, err := c.GetOrLoad("k", func() (string, error) { calls++; return "", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	_, err = c.GetOrLoad("k", func() (string, error) { calls++; return "", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if calls != 2 {
		t.Errorf("failed load cached; calls = %d, want 2", calls)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int](64)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := i % 100
				c.Set(key, g)
				c.Get(key)
				c.GetOrLoad(key, func() (int, error) { return g, nil })
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 64 {
		t.Errorf("cache over capacity: %d", c.Len())
	}
}

func TestStats(t *testing.T) {
	c := New[string, int](4)
	c.Set("a", 1)
	c.Get("a")
	c.Get("b")

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Size != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func ExampleCache_GetOrLoad() {
	c := New[string, int](16)
	v, _ := c.GetOrLoad("answer", func() (int, error) { return 42, nil })
	fmt.Println(v)
	// Output: 42
}
