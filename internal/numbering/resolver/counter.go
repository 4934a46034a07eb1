package resolver

import (
	"sync"

	"github.com/quoteworks/docnum/internal/numbering/domain"
	"github.com/quoteworks/docnum/internal/numbering/registry"
)

type series struct {
	prefix string
	year   int
}

// counter mints fresh numbers for one pass. Each series starts one past the
// highest sequence in the registry; a candidate is skipped when the registry
// or an earlier mint of the pass already holds it.
type counter struct {
	mu     sync.Mutex
	reg    *registry.Registry
	next   map[series]int
	minted map[string]bool
}

func newCounter(reg *registry.Registry) *counter {
	return &counter{
		reg:    reg,
		next:   make(map[series]int),
		minted: make(map[string]bool),
	}
}

func (c *counter) mint(prefix string, year int) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := series{prefix: prefix, year: year}
	seq, ok := c.next[key]
	if !ok {
		seq = c.reg.MaxSequence(prefix, year) + 1
	}
	for {
		candidate := domain.FormatNumber(prefix, year, seq)
		seq++
		if c.reg.Contains(candidate) || c.minted[candidate] {
			continue
		}
		c.next[key] = seq
		c.minted[candidate] = true
		return candidate
	}
}
