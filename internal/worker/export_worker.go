package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coinkeeper/internal/amqp"
	"coinkeeper/internal/cache"
	"coinkeeper/internal/core"
	"coinkeeper/internal/log"
	"coinkeeper/internal/metrics"
	"coinkeeper/internal/sheets"
	"coinkeeper/internal/storage"
)

const (
	seenEventsMax = 4096
	seenEventsTTL = 24 * time.Hour
)

// Export results reported to metrics.
const (
	resultExported  = "exported"
	resultDuplicate = "duplicate"
	resultMissing   = "missing"
	resultFailed    = "failed"
)

// ExportWorker copies committed transactions from the store to a spreadsheet.
type ExportWorker struct {
	store   storage.TransactionReader
	writer  sheets.LedgerWriter
	seen    *cache.LRUCache[struct{}]
	metrics *metrics.Metrics
	logger  *log.Logger
}

func NewExportWorker(store storage.TransactionReader, writer sheets.LedgerWriter, m *metrics.Metrics, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportWorker{
		store:   store,
		writer:  writer,
		seen:    cache.NewLRUCache[struct{}](seenEventsMax, seenEventsTTL),
		metrics: m,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleCommitted processes one TransactionCommitted message. A returned
// error requeues the message; a transaction that no longer resolves is dropped.
// Redelivered events are skipped once their row was written.
func (w *ExportWorker) HandleCommitted(ctx context.Context, msg *amqp.TransactionCommittedMessage) error {
	eventID := msg.EventID.String()
	if _, dup := w.seen.Get(eventID); dup {
		w.logger.InfoContext(ctx, "Skipping already exported event",
			"event_id", eventID,
			log.FieldTxID, msg.ID)
		w.metrics.Exported(resultDuplicate)
		return nil
	}

	tx, err := w.store.GetTransaction(ctx, msg.Kind, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Transaction not found, dropping event",
			"event_id", eventID,
			log.FieldKind, msg.Kind,
			log.FieldTxID, msg.ID)
		w.metrics.Exported(resultMissing)
		return nil
	}
	if err != nil {
		w.metrics.Exported(resultFailed)
		return fmt.Errorf("get %s %d from storage: %w", msg.Kind, msg.ID, err)
	}

	ref, err := w.writer.Append(ctx, sheets.RowFromTransaction(tx, msg.UserExternalID))
	if err != nil {
		w.metrics.Exported(resultFailed)
		return fmt.Errorf("append to sheets: %w", err)
	}
	w.seen.Set(eventID, struct{}{})
	w.metrics.Exported(resultExported)

	fields := log.NewFields().
		WithOperation(log.OpExport).
		WithUser(msg.UserExternalID).
		WithTransaction(tx.Kind.String(), tx.ID, tx.Amount.Cents, tx.CategoryName)
	fields[log.FieldSheetsRef] = ref
	w.logger.InfoContext(ctx, "Successfully exported transaction", fields.ToSlice()...)
	return nil
}
