package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quoteworks/docnum/internal/numbering/domain"
)

// Builder accumulates records and inserts them in order.
type Builder struct {
	w       *Workspace
	records []recordData
}

// NewBuilder creates a builder for the given workspace.
func NewBuilder(w *Workspace) *Builder {
	w.t.Helper()
	return &Builder{w: w}
}

// WithRecord adds a record holding number to a domain.
func (b *Builder) WithRecord(domainName, number string, opts ...RecordOption) *Builder {
	r := recordData{
		domain:    domainName,
		number:    number,
		label:     "client",
		createdAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		fields:    requiredFields(b.w.Store(domainName).Descriptor().Schema),
	}
	for _, opt := range opts {
		opt(&r)
	}
	b.records = append(b.records, r)
	return b
}

// Build inserts every record and returns their ids in insertion order.
func (b *Builder) Build() []int64 {
	b.w.t.Helper()
	ids := make([]int64, 0, len(b.records))
	for _, r := range b.records {
		id, err := b.w.Store(r.domain).Insert(context.Background(), domain.NewRecord{
			Number:    r.number,
			Label:     r.label,
			CreatedAt: r.createdAt,
			Fields:    r.fields,
		})
		require.NoError(b.w.t, err, "inserting %s into %s", r.number, r.domain)
		ids = append(ids, id)
	}
	return ids
}
