package cmap

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithShards(t *testing.T) {
	assert.Len(t, NewWithShards[string, int](32).shards, 32)
	assert.Len(t, NewWithShards[string, int](10).shards, DefaultShardCount)
	assert.Len(t, NewWithShards[string, int](0).shards, DefaultShardCount)
}

func TestMap_Basic(t *testing.T) {
	m := New[string, int]()
	_, ok := m.Get("a")
	assert.False(t, ok)

	m.Set("a", 1)
	m.Set("b", 2)
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, m.Count())

	m.Delete("a")
	assert.Equal(t, 1, m.Count())
}

func TestMap_GetOrCreate(t *testing.T) {
	m := New[string, *int]()
	var created atomic.Int32
	create := func() *int {
		created.Add(1)
		return new(int)
	}

	var wg sync.WaitGroup
	results := make([]*int, 50)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = m.GetOrCreate("k", create)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	_, existed := m.GetOrCreate("k", create)
	assert.True(t, existed)
}

func TestMap_DeleteFuncAndRange(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 100; i++ {
		m.Set(i, i)
	}
	removed := m.DeleteFunc(func(k, _ int) bool { return k%2 == 0 })
	assert.Equal(t, 50, removed)
	assert.Equal(t, 50, m.Count())

	seen := 0
	m.Range(func(k, v int) bool {
		assert.Equal(t, 1, k%2)
		seen++
		return seen < 10
	})
	assert.Equal(t, 10, seen)
}

func TestMap_Concurrent(t *testing.T) {
	m := New[string, int]()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := strconv.Itoa(g*1000 + i)
				m.Set(k, i)
				m.Get(k)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1600, m.Count())
}
