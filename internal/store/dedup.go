// Package store provides run-scoped deduplication of flashcard links and the
// persistent scan history behind the web player.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DedupStore is a thread-safe seen-set for canonical song links. The Bloom
// filter answers the common "never seen" case without touching the map.
type DedupStore struct {
	links             map[string]struct{}
	bloom             *bloom.BloomFilter
	lru               *lru.Cache[string, struct{}]
	mutex             sync.RWMutex
	maxLinks          int
	falsePositiveRate float64
}

// NewDedupStore creates a store bounded to maxLinks entries with the given
// Bloom filter false positive rate.
func NewDedupStore(maxLinks int, falsePositiveRate float64) *DedupStore {
	if maxLinks <= 0 {
		panic("maxLinks must be positive")
	}

	lruCache, _ := lru.New[string, struct{}](maxLinks)

	return &DedupStore{
		links:             make(map[string]struct{}),
		bloom:             bloom.NewWithEstimates(uint(maxLinks), falsePositiveRate),
		lru:               lruCache,
		maxLinks:          maxLinks,
		falsePositiveRate: falsePositiveRate,
	}
}

// Seen reports whether the link was added before.
func (ds *DedupStore) Seen(link string) bool {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()

	if !ds.bloom.TestString(link) {
		return false
	}

	// The Bloom filter can false-positive; the map is authoritative.
	_, exists := ds.links[link]
	return exists
}

// Add records a link. Adding an existing link is a no-op.
func (ds *DedupStore) Add(link string) {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	if _, exists := ds.links[link]; exists {
		return
	}
	ds.insert(link)
}

// SeenOrAdd records the link and reports whether it was already present.
func (ds *DedupStore) SeenOrAdd(link string) bool {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	if _, exists := ds.links[link]; exists {
		return true
	}
	ds.insert(link)
	return false
}

// insert assumes the write lock is held and the link is new. Eviction runs
// before the add so the LRU never silently drops an entry the map still holds.
func (ds *DedupStore) insert(link string) {
	if len(ds.links) >= ds.maxLinks {
		ds.evictOldest()
	}

	ds.links[link] = struct{}{}
	ds.bloom.AddString(link)
	ds.lru.Add(link, struct{}{})
}

// Size returns the number of links currently stored.
func (ds *DedupStore) Size() int {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()
	return len(ds.links)
}

// Clear removes all links and resets the Bloom filter.
func (ds *DedupStore) Clear() {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	ds.links = make(map[string]struct{})
	ds.bloom = bloom.NewWithEstimates(uint(ds.maxLinks), ds.falsePositiveRate)
	ds.lru.Purge()
}

func (ds *DedupStore) evictOldest() {
	oldestKey, _, ok := ds.lru.GetOldest()
	if !ok {
		return
	}

	delete(ds.links, oldestKey)
	ds.lru.Remove(oldestKey)
	// The Bloom filter cannot forget; stale positives are filtered by the map.
}
