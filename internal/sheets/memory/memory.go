// Package memory is an in-process exporter for tests and for running
// without Google credentials.
package memory

import (
	"context"
	"sync"

	"financas/internal/core"
	ports "financas/internal/sheets"
)

type Exporter struct {
	mu   sync.Mutex
	rows [][]any
}

var _ ports.SnapshotExporter = (*Exporter)(nil)

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) ExportMonth(ctx context.Context, owner core.Owner, month core.MonthKey, snapshot core.MonthSnapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows = append(e.rows, ports.SnapshotRows(owner, month, snapshot)...)
	return nil
}

// Rows returns a copy of everything exported so far.
func (e *Exporter) Rows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	rows := make([][]any, len(e.rows))
	copy(rows, e.rows)
	return rows
}
