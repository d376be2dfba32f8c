package logic

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	Version uuid.UUID
	Hash    uint64
}

// ResolutionCache remembers recent resolutions keyed by form version
// and answer-snapshot hash. A published version's definition is
// immutable, so the pair fully identifies the result.
type ResolutionCache struct {
	lru *lru.Cache[cacheKey, *Resolution]
}

func NewResolutionCache(size int) (*ResolutionCache, error) {
	c, err := lru.New[cacheKey, *Resolution](size)
	if err != nil {
		return nil, err
	}
	return &ResolutionCache{lru: c}, nil
}

func (c *ResolutionCache) Get(versionID uuid.UUID, answers *Snapshot) (*Resolution, bool) {
	return c.lru.Get(cacheKey{Version: versionID, Hash: answers.Hash()})
}

func (c *ResolutionCache) Put(versionID uuid.UUID, answers *Snapshot, res *Resolution) {
	c.lru.Add(cacheKey{Version: versionID, Hash: answers.Hash()}, res)
}

// Invalidate drops every cached resolution for a version. Draft
// definitions change between calls, so their results must not be
// reused.
func (c *ResolutionCache) Invalidate(versionID uuid.UUID) {
	for _, k := range c.lru.Keys() {
		if k.Version == versionID {
			c.lru.Remove(k)
		}
	}
}
