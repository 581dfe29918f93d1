// Package diffcache persists diff-oracle cost estimates across process
// runs, keyed by (package, from, to), guarded by an exclusive file lock so
// concurrent vet processes serialize on the cache file (§5).
package diffcache

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// entry is the on-disk row shape.
type entry struct {
	Package string `toml:"package"`
	From    string `toml:"from"`
	To      string `toml:"to"`
	Cost    int    `toml:"cost"`
}

type document struct {
	Entry []entry `toml:"entry"`
}

// Cache wraps an oracle with a persistent, file-locked cost memo. It
// implements suggest.Oracle, so it can be passed directly wherever an
// oracle is expected.
type Cache struct {
	path  string
	lock  *flock.Flock
	inner Oracle

	mu      sync.Mutex
	entries map[string]int
	dirty   bool
}

// Oracle matches suggest.Oracle without importing it, avoiding a cycle
// between internal/diffcache and suggest.
type Oracle interface {
	EstimateCost(ctx context.Context, pkg, from, to string) (int, error)
}

// Open acquires an exclusive lock on path+".lock" and loads any existing
// cache contents. The caller must call Close to release the lock and
// flush pending writes.
func Open(path string, inner Oracle) (*Cache, error) {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, errors.Wrap(err, "diffcache: acquire lock")
	}

	c := &Cache{path: path, lock: lock, inner: inner, entries: make(map[string]int)}
	if err := c.load(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return c, nil
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "diffcache: read")
	}
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "diffcache: decode")
	}
	for _, e := range doc.Entry {
		c.entries[key(e.Package, e.From, e.To)] = e.Cost
	}
	return nil
}

// EstimateCost returns the cached cost for (pkg, from, to), querying and
// memoizing via the wrapped oracle on a miss.
func (c *Cache) EstimateCost(ctx context.Context, pkg, from, to string) (int, error) {
	k := key(pkg, from, to)

	c.mu.Lock()
	if cost, ok := c.entries[k]; ok {
		c.mu.Unlock()
		return cost, nil
	}
	c.mu.Unlock()

	cost, err := c.inner.EstimateCost(ctx, pkg, from, to)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.entries[k] = cost
	c.dirty = true
	c.mu.Unlock()

	return cost, nil
}

// Close flushes any new entries to disk (atomically, via temp file plus
// rename) and releases the file lock.
func (c *Cache) Close() error {
	defer c.lock.Unlock()
	if !c.dirty {
		return nil
	}
	return c.persist()
}

func (c *Cache) persist() error {
	c.mu.Lock()
	var doc document
	for k, cost := range c.entries {
		pkg, from, to := splitKey(k)
		doc.Entry = append(doc.Entry, entry{Package: pkg, From: from, To: to, Cost: cost})
	}
	c.mu.Unlock()

	sort.Slice(doc.Entry, func(i, j int) bool {
		if doc.Entry[i].Package != doc.Entry[j].Package {
			return doc.Entry[i].Package < doc.Entry[j].Package
		}
		if doc.Entry[i].From != doc.Entry[j].From {
			return doc.Entry[i].From < doc.Entry[j].From
		}
		return doc.Entry[i].To < doc.Entry[j].To
	})

	data, err := toml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "diffcache: encode")
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "diffcache: write temp file")
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return errors.Wrap(err, "diffcache: rename temp file")
	}
	return nil
}

func key(pkg, from, to string) string { return pkg + "|" + from + "|" + to }

func splitKey(k string) (pkg, from, to string) {
	parts := strings.SplitN(k, "|", 3)
	return parts[0], parts[1], parts[2]
}
