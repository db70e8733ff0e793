// seehuhn.de/go/dvi - render TeX DVI files to raster images
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package font

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"
)

const numShards = 16

// CacheKey identifies a rendered glyph.
type CacheKey struct {
	Font Ref
	Code uint32
	DPI  float64
	AA   bool
}

// CacheStats holds the counters of a [Cache].
type CacheStats struct {
	Hits       uint64
	Misses     uint64
	Insertions uint64
	Entries    int
}

// Cache stores rendered glyphs.  Entries are never evicted.
// It is safe to use a Cache concurrently from multiple goroutines.
// The zero value is an empty cache.
type Cache struct {
	shards [numShards]cacheShard

	hits       atomic.Uint64
	misses     atomic.Uint64
	insertions atomic.Uint64
}

type cacheShard struct {
	mu     sync.RWMutex
	glyphs map[CacheKey]*Glyph
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) shard(key CacheKey) *cacheShard {
	h := fnv.New64a()
	h.Write([]byte(key.Font.Name))
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:], key.Code)
	binary.LittleEndian.PutUint32(buf[4:], uint32(key.Font.Scale))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(key.DPI))
	h.Write(buf[:])
	return &c.shards[h.Sum64()%numShards]
}

// Get returns the glyph stored under key.
func (c *Cache) Get(key CacheKey) (*Glyph, bool) {
	g, ok := c.lookup(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return g, ok
}

// lookup is like Get but does not update the statistics.
func (c *Cache) lookup(key CacheKey) (*Glyph, bool) {
	s := c.shard(key)
	s.mu.RLock()
	g, ok := s.glyphs[key]
	s.mu.RUnlock()
	return g, ok
}

// Put stores a glyph.  An existing entry for the same key is replaced.
func (c *Cache) Put(key CacheKey, g *Glyph) {
	s := c.shard(key)
	s.mu.Lock()
	if s.glyphs == nil {
		s.glyphs = make(map[CacheKey]*Glyph)
	}
	s.glyphs[key] = g
	s.mu.Unlock()
	c.insertions.Add(1)
}

// Clear removes all entries.  The statistics are kept.
func (c *Cache) Clear() {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		s.glyphs = nil
		s.mu.Unlock()
	}
}

// Len returns the number of cached glyphs.
func (c *Cache) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		n += len(s.glyphs)
		s.mu.RUnlock()
	}
	return n
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Insertions: c.insertions.Load(),
		Entries:    c.Len(),
	}
}
