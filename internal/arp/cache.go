package arp

import (
	"net/netip"
	"sort"
	"sync"
	"time"

	"firestige.xyz/hop/internal/core"
)

// Neighbor is a resolved link-layer address learned from an ARP reply.
type Neighbor struct {
	IP        netip.Addr
	MAC       core.MAC
	Interface string // egress interface the reply arrived on
	LearnedAt time.Time
}

// Cache maps next-hop addresses to resolved neighbors. Entries live for the
// process lifetime. The event loop is the only writer; readers such as the
// control socket may run concurrently.
type Cache interface {
	Lookup(ip netip.Addr) (Neighbor, bool)
	Store(n Neighbor)
	Len() int
	Entries() []Neighbor
}

// MapCache is the default Cache.
type MapCache struct {
	mu      sync.RWMutex
	entries map[netip.Addr]Neighbor
}

func NewMapCache() *MapCache {
	return &MapCache{entries: make(map[netip.Addr]Neighbor)}
}

func (c *MapCache) Lookup(ip netip.Addr) (Neighbor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.entries[ip]
	return n, ok
}

func (c *MapCache) Store(n Neighbor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[n.IP] = n
}

func (c *MapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries returns the neighbors ordered by address.
func (c *MapCache) Entries() []Neighbor {
	c.mu.RLock()
	out := make([]Neighbor, 0, len(c.entries))
	for _, n := range c.entries {
		out = append(out, n)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].IP.Less(out[j].IP)
	})
	return out
}
