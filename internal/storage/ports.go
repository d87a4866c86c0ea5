// Package storage defines the ledger store consumed by the bot core.
package storage

import (
	"context"

	"coinkeeper/internal/core"
)

// Ports for outbound adapters.
type (
	UserStore interface {
		// FindUser returns core.ErrNotFound when no user has the external id.
		FindUser(ctx context.Context, externalID int64) (core.User, error)
		// CreateUser fills u.ID. Returns core.ErrAlreadyExists on duplicate external id.
		CreateUser(ctx context.Context, u *core.User) error
		AdjustBalance(ctx context.Context, userID int64, delta core.Money) error
	}

	CategoryStore interface {
		// FindCategory looks the id up in the category table of kind only.
		FindCategory(ctx context.Context, kind core.Kind, id int64) (core.Category, error)
		ListCategories(ctx context.Context, kind core.Kind) ([]core.Category, error)
	}

	TransactionWriter interface {
		// CreateTransaction inserts t and applies its signed amount to the
		// owner's balance in one database transaction. t.ID is filled and the
		// updated user is returned.
		CreateTransaction(ctx context.Context, t *core.Transaction) (core.User, error)
	}

	// ReportSource provides the read-only, user-scoped queries behind reports.
	ReportSource interface {
		// SumByCategory returns only categories with activity in w.
		SumByCategory(ctx context.Context, userID int64, kind core.Kind, w core.Window) ([]core.CategoryAmount, error)
		// ListTransactions returns transactions in w ordered by date, then id.
		ListTransactions(ctx context.Context, userID int64, kind core.Kind, w core.Window) ([]core.Transaction, error)
		// Activity runs both queries above against one read snapshot, so the
		// sums always match the rows.
		Activity(ctx context.Context, userID int64, kind core.Kind, w core.Window) (Activity, error)
	}

	// Activity is everything recorded for one kind in one window.
	Activity struct {
		Sums         []core.CategoryAmount
		Transactions []core.Transaction
	}

	TransactionReader interface {
		GetTransaction(ctx context.Context, kind core.Kind, id int64) (core.Transaction, error)
	}

	// Store is the full ledger store implemented by every backend.
	Store interface {
		UserStore
		CategoryStore
		TransactionWriter
		ReportSource
		TransactionReader
		Close() error
	}
)
