package synq

import (
	"sync"
	"testing"
)

func TestMap_LoadStore(t *testing.T) {
	m := NewMap[string, int]()

	if _, ok := m.Load("missing"); ok {
		t.Error("Load of missing key reported ok")
	}

	m.Store("a", 1)
	v, ok := m.Load("a")
	if !ok || v != 1 {
		t.Errorf("Load(a) = %d, %v; expected 1, true", v, ok)
	}

	m.Store("a", 2)
	if v, _ := m.Load("a"); v != 2 {
		t.Errorf("Load(a) after overwrite = %d, expected 2", v)
	}
}

func TestMap_LoadOrInsert(t *testing.T) {
	m := NewMap[string, int]()

	v, loaded := m.LoadOrInsert("a", 1)
	if loaded || v != 1 {
		t.Errorf("LoadOrInsert new key = %d, %v; expected 1, false", v, loaded)
	}

	v, loaded = m.LoadOrInsert("a", 99)
	if !loaded || v != 1 {
		t.Errorf("LoadOrInsert existing key = %d, %v; expected 1, true", v, loaded)
	}
}

func TestMap_DeleteAndLen(t *testing.T) {
	m := NewMap[string, int]()
	m.Store("a", 1)
	m.Store("b", 2)

	if m.Len() != 2 {
		t.Errorf("Len = %d, expected 2", m.Len())
	}

	m.Delete("a")
	if _, ok := m.Load("a"); ok {
		t.Error("Load(a) after Delete reported ok")
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d after Delete, expected 1", m.Len())
	}

	m.Reset()
	if m.Len() != 0 {
		t.Errorf("Len = %d after Reset, expected 0", m.Len())
	}
}

func TestMap_Iter(t *testing.T) {
	m := NewMap[int, int]()
	for i := range 10 {
		m.Store(i, i*i)
	}

	seen := make(map[int]int)
	m.Iter(func(k, v int) bool {
		seen[k] = v
		return true
	})

	if len(seen) != 10 {
		t.Errorf("Iter visited %d entries, expected 10", len(seen))
	}
	for k, v := range seen {
		if v != k*k {
			t.Errorf("Iter saw %d -> %d, expected %d", k, v, k*k)
		}
	}
}

func TestMap_ConcurrentAccess(t *testing.T) {
	m := NewMap[int, int]()

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			m.Store(n, n)
			m.Load(n)
		}(i)
	}
	wg.Wait()

	if m.Len() != 100 {
		t.Errorf("Len = %d after concurrent stores, expected 100", m.Len())
	}
}
