// Package sheets exports committed ledger transactions to a spreadsheet.
package sheets

import (
	"context"
	"errors"

	"coinkeeper/internal/core"
)

// Row is one exported transaction, in column order.
type Row struct {
	Date           core.Date
	Kind           core.Kind
	Category       string
	Description    string
	Amount         core.Money
	UserExternalID int64
	TransactionID  int64
}

// Ports for outbound adapters.
type LedgerWriter interface {
	Append(ctx context.Context, row Row) (rowRef string, err error)
}

// RowFromTransaction builds the export row of a stored transaction.
func RowFromTransaction(tx core.Transaction, userExternalID int64) Row {
	return Row{
		Date:           tx.Date,
		Kind:           tx.Kind,
		Category:       tx.CategoryName,
		Description:    tx.Description,
		Amount:         tx.Amount,
		UserExternalID: userExternalID,
		TransactionID:  tx.ID,
	}
}

func (r Row) Validate() error {
	if !r.Kind.Valid() {
		return core.ErrInvalidKind
	}
	if r.Date.IsZero() {
		return core.ErrInvalidDate
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if r.TransactionID <= 0 {
		return errors.New("row has no transaction id")
	}
	return nil
}

// Values renders the row as spreadsheet cells. Dates are ISO so the sheet
// parses them regardless of locale.
func (r Row) Values() []any {
	return []any{
		r.Date.ISO(),
		r.Kind.String(),
		r.Category,
		r.Description,
		r.Amount.String(),
		r.UserExternalID,
		r.TransactionID,
	}
}
