package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

const (
	MaxNameLength        = 64
	MaxDescriptionLength = 255
)

type (
	// Kind discriminates income from expense for categories and transactions.
	Kind string

	User struct {
		ID         int64
		ExternalID int64 // Chat platform user handle
		Name       string
		Contact    string
		Balance    Money
		CreatedAt  time.Time
	}

	Category struct {
		ID   int64
		Kind Kind
		Name string
	}

	Transaction struct {
		ID           int64
		Kind         Kind
		UserID       int64
		CategoryID   int64
		CategoryName string // Filled on reads
		Amount       Money
		Date         Date
		Description  string
		CreatedAt    time.Time
	}
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrInvalidKind         = errors.New("invalid kind")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidDay          = errors.New("invalid day")
	ErrInvalidRange        = errors.New("invalid date range")
	ErrOutsideCurrentMonth = errors.New("date outside current month")
	ErrEmptyDescription    = errors.New("empty description")
	ErrDescriptionTooLong  = errors.New("description too long")
	ErrInvalidName         = errors.New("invalid name")
	ErrInvalidContact      = errors.New("invalid contact")
	ErrCategoryMismatch    = errors.New("category kind does not match transaction kind")
	ErrIncompleteDraft     = errors.New("draft is missing required fields")
)

var contactPattern = regexp.MustCompile(`^\+[1-9]\d{9,14}$`)

// Kinds lists both kinds in display order.
func Kinds() []Kind {
	return []Kind{KindIncome, KindExpense}
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

func (k Kind) String() string {
	return string(k)
}

// Signed returns the balance delta a transaction of this kind applies.
func (k Kind) Signed(m Money) Money {
	if k == KindExpense {
		return m.Neg()
	}
	return m
}

// Table returns the transactions table for the kind.
func (k Kind) Table() string {
	if k == KindExpense {
		return "expenses"
	}
	return "incomes"
}

// CategoryTable returns the categories table for the kind.
func (k Kind) CategoryTable() string {
	if k == KindExpense {
		return "expense_categories"
	}
	return "income_categories"
}

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > MaxNameLength {
		return ErrInvalidName
	}
	return nil
}

func ValidateContact(contact string) error {
	if !contactPattern.MatchString(strings.TrimSpace(contact)) {
		return ErrInvalidContact
	}
	return nil
}

func ValidateDescription(desc string) error {
	if strings.TrimSpace(desc) == "" {
		return ErrEmptyDescription
	}
	if len([]rune(desc)) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func (u User) Validate() error {
	if u.ExternalID == 0 {
		return errors.New("external id cannot be zero")
	}
	if err := ValidateName(u.Name); err != nil {
		return err
	}
	return ValidateContact(u.Contact)
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if t.UserID == 0 {
		return errors.New("transaction has no user")
	}
	if t.CategoryID == 0 {
		return errors.New("transaction has no category")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return ValidateDescription(t.Description)
}
