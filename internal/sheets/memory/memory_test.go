package memory

import (
	"context"
	"errors"
	"testing"

	"coinkeeper/internal/core"
	"coinkeeper/internal/sheets"
)

func validRow() sheets.Row {
	return sheets.Row{
		Date:           core.NewDate(2025, 2, 3),
		Kind:           core.KindExpense,
		Category:       "Groceries",
		Description:    "bread",
		Amount:         core.Money{Cents: 250},
		UserExternalID: 42,
		TransactionID:  1,
	}
}

func TestWriterAppend(t *testing.T) {
	w := New()

	ref, err := w.Append(context.Background(), validRow())
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	bad := validRow()
	bad.Amount = core.Money{}
	if _, err := w.Append(context.Background(), bad); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	if rows := w.Rows(); len(rows) != 1 || rows[0].Description != "bread" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestWriterFailWith(t *testing.T) {
	w := New()
	boom := errors.New("quota exceeded")
	w.FailWith(boom)

	if _, err := w.Append(context.Background(), validRow()); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}

	w.FailWith(nil)
	if _, err := w.Append(context.Background(), validRow()); err != nil {
		t.Fatalf("append after recovery: %v", err)
	}
}
