package metadata

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"flexster/internal/core"
	"flexster/pkg/fuzzy"
)

// Cache holds resolved metadata for the duration of one run, keyed by the
// normalized query text so trivially different spellings share an entry.
type Cache struct {
	lru        *lru.Cache[string, core.SongMetadata]
	normalizer *fuzzy.Normalizer
}

func NewCache(size int) *Cache {
	c, _ := lru.New[string, core.SongMetadata](size)
	return &Cache{
		lru:        c,
		normalizer: fuzzy.NewNormalizer(),
	}
}

func (c *Cache) key(q core.SongQuery) string {
	return c.normalizer.NormalizeTitle(q.Title) + "|" + c.normalizer.NormalizeArtist(q.Artist)
}

func (c *Cache) Get(q core.SongQuery) (core.SongMetadata, bool) {
	return c.lru.Get(c.key(q))
}

func (c *Cache) Add(q core.SongQuery, meta core.SongMetadata) {
	c.lru.Add(c.key(q), meta)
}

func (c *Cache) Len() int {
	return c.lru.Len()
}
