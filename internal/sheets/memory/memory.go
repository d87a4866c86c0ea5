// Package memory records exported rows in process, for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"coinkeeper/internal/sheets"
)

var _ sheets.LedgerWriter = (*Writer)(nil)

type Writer struct {
	mu   sync.Mutex
	rows []sheets.Row
	err  error
}

func New() *Writer {
	return &Writer{}
}

// FailWith makes every subsequent Append return err. Pass nil to recover.
func (w *Writer) FailWith(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
}

// Append stores the row and returns a synthetic row reference.
func (w *Writer) Append(_ context.Context, row sheets.Row) (string, error) {
	if err := row.Validate(); err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return "", w.err
	}
	w.rows = append(w.rows, row)
	return fmt.Sprintf("mem:%d", len(w.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (w *Writer) Rows() []sheets.Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]sheets.Row(nil), w.rows...)
}
