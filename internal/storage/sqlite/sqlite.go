// Package sqlite implements the ledger store on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"coinkeeper/internal/core"
	"coinkeeper/internal/storage"

	_ "modernc.org/sqlite"
)

var _ storage.Store = (*Repository)(nil)

type Repository struct {
	db *sql.DB
}

// dsn enables foreign keys and WAL, and makes every BEGIN take the write lock
// up front. A deferred transaction that reads before writing cannot wait out
// busy_timeout when upgrading its lock, so concurrent commits would fail.
func dsn(dbPath string) string {
	return "file:" + dbPath +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) FindUser(ctx context.Context, externalID int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, external_id, name, contact, balance_cents, created_at FROM users WHERE external_id = ?`,
		externalID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %d: %w", externalID, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *Repository) CreateUser(ctx context.Context, u *core.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (external_id, name, contact, balance_cents, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(external_id) DO NOTHING`,
		u.ExternalID, u.Name, u.Contact, u.Balance.Cents, now.Unix())
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", u.ExternalID, core.ErrAlreadyExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	u.ID = id
	u.CreatedAt = now.Truncate(time.Second)

	slog.InfoContext(ctx, "User registered", "id", u.ID, "external_id", u.ExternalID)
	return nil
}

func (r *Repository) AdjustBalance(ctx context.Context, userID int64, delta core.Money) error {
	return adjustBalance(ctx, r.db, userID, delta)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func adjustBalance(ctx context.Context, db execer, userID int64, delta core.Money) error {
	res, err := db.ExecContext(ctx,
		`UPDATE users SET balance_cents = balance_cents + ? WHERE id = ?`, delta.Cents, userID)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user id %d: %w", userID, core.ErrNotFound)
	}
	return nil
}

func (r *Repository) FindCategory(ctx context.Context, kind core.Kind, id int64) (core.Category, error) {
	if !kind.Valid() {
		return core.Category{}, core.ErrInvalidKind
	}
	c := core.Category{Kind: kind}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM `+kind.CategoryTable()+` WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("%s category %d: %w", kind, id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("find category: %w", err)
	}
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context, kind core.Kind) ([]core.Category, error) {
	if !kind.Valid() {
		return nil, core.ErrInvalidKind
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM `+kind.CategoryTable()+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c := core.Category{Kind: kind}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateTransaction inserts the row and moves the balance inside one SQL transaction.
func (r *Repository) CreateTransaction(ctx context.Context, t *core.Transaction) (core.User, error) {
	if err := t.Validate(); err != nil {
		return core.User{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.User{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var categoryName string
	err = tx.QueryRowContext(ctx,
		`SELECT name FROM `+t.Kind.CategoryTable()+` WHERE id = ?`, t.CategoryID).Scan(&categoryName)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("%s category %d: %w", t.Kind, t.CategoryID, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("resolve category: %w", err)
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO `+t.Kind.Table()+` (user_id, category_id, amount_cents, date, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.UserID, t.CategoryID, t.Amount.Cents, t.Date.ISO(), t.Description, now.Unix())
	if err != nil {
		return core.User{}, fmt.Errorf("insert %s: %w", t.Kind, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("%s id: %w", t.Kind, err)
	}

	if err := adjustBalance(ctx, tx, t.UserID, t.Kind.Signed(t.Amount)); err != nil {
		return core.User{}, err
	}

	user, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT id, external_id, name, contact, balance_cents, created_at FROM users WHERE id = ?`, t.UserID))
	if err != nil {
		return core.User{}, fmt.Errorf("reload user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.User{}, fmt.Errorf("commit transaction: %w", err)
	}

	t.ID = id
	t.CategoryName = categoryName
	t.CreatedAt = now.Truncate(time.Second)

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"kind", t.Kind,
		"id", t.ID,
		"user_id", t.UserID,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.ISO())
	return user, nil
}

func (r *Repository) GetTransaction(ctx context.Context, kind core.Kind, id int64) (core.Transaction, error) {
	if !kind.Valid() {
		return core.Transaction{}, core.ErrInvalidKind
	}
	rows, err := r.db.QueryContext(ctx, selectTransactions(kind)+` WHERE t.id = ?`, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get %s: %w", kind, err)
	}
	txs, err := scanTransactions(rows, kind)
	if err != nil {
		return core.Transaction{}, err
	}
	if len(txs) == 0 {
		return core.Transaction{}, fmt.Errorf("%s %d: %w", kind, id, core.ErrNotFound)
	}
	return txs[0], nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID int64, kind core.Kind, w core.Window) ([]core.Transaction, error) {
	return listTransactions(ctx, r.db, userID, kind, w)
}

func (r *Repository) SumByCategory(ctx context.Context, userID int64, kind core.Kind, w core.Window) ([]core.CategoryAmount, error) {
	return sumByCategory(ctx, r.db, userID, kind, w)
}

// Activity reads inside a read-only transaction. It begins deferred, so it
// does not queue behind writers and sees one WAL snapshot.
func (r *Repository) Activity(ctx context.Context, userID int64, kind core.Kind, w core.Window) (storage.Activity, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return storage.Activity{}, fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback()

	sums, err := sumByCategory(ctx, tx, userID, kind, w)
	if err != nil {
		return storage.Activity{}, err
	}
	txs, err := listTransactions(ctx, tx, userID, kind, w)
	if err != nil {
		return storage.Activity{}, err
	}
	return storage.Activity{Sums: sums, Transactions: txs}, tx.Commit()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listTransactions(ctx context.Context, q querier, userID int64, kind core.Kind, w core.Window) ([]core.Transaction, error) {
	if !kind.Valid() {
		return nil, core.ErrInvalidKind
	}
	rows, err := q.QueryContext(ctx,
		selectTransactions(kind)+` WHERE t.user_id = ? AND t.date BETWEEN ? AND ? ORDER BY t.date, t.id`,
		userID, w.From.ISO(), w.To.ISO())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return scanTransactions(rows, kind)
}

func sumByCategory(ctx context.Context, q querier, userID int64, kind core.Kind, w core.Window) ([]core.CategoryAmount, error) {
	if !kind.Valid() {
		return nil, core.ErrInvalidKind
	}
	rows, err := q.QueryContext(ctx,
		`SELECT c.name, SUM(t.amount_cents)
		 FROM `+kind.Table()+` t JOIN `+kind.CategoryTable()+` c ON c.id = t.category_id
		 WHERE t.user_id = ? AND t.date BETWEEN ? AND ?
		 GROUP BY c.name
		 ORDER BY c.name`,
		userID, w.From.ISO(), w.To.ISO())
	if err != nil {
		return nil, fmt.Errorf("sum %s by category: %w", kind, err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, ca)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (core.User, error) {
	var (
		u       core.User
		created int64
	)
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Name, &u.Contact, &u.Balance.Cents, &created); err != nil {
		return core.User{}, err
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

func selectTransactions(kind core.Kind) string {
	return `SELECT t.id, t.user_id, t.category_id, c.name, t.amount_cents, t.date, t.description, t.created_at
		FROM ` + kind.Table() + ` t JOIN ` + kind.CategoryTable() + ` c ON c.id = t.category_id`
}

func scanTransactions(rows *sql.Rows, kind core.Kind) ([]core.Transaction, error) {
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t       = core.Transaction{Kind: kind}
			date    string
			created int64
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.CategoryID, &t.CategoryName, &t.Amount.Cents, &date, &t.Description, &created); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		d, err := core.ParseISODate(date)
		if err != nil {
			return nil, err
		}
		t.Date = d
		t.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}
