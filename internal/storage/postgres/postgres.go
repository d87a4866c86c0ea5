// Package postgres implements the ledger store on PostgreSQL through pgx and squirrel.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"coinkeeper/internal/core"
	"coinkeeper/internal/storage"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ storage.Store = (*Repository)(nil)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var userColumns = []string{"id", "external_id", "name", "contact", "balance_cents", "created_at"}

type Repository struct {
	pool *pgxpool.Pool
}

// New connects, runs migrations and returns a ready repository.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, err
	}

	slog.InfoContext(ctx, "Database connection established",
		"host", poolConfig.ConnConfig.Host,
		"database", poolConfig.ConnConfig.Database)

	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) FindUser(ctx context.Context, externalID int64) (core.User, error) {
	query, args, err := psql.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"external_id": externalID}).
		ToSql()
	if err != nil {
		return core.User{}, err
	}
	u, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
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
	query, args, err := psql.Insert("users").
		Columns("external_id", "name", "contact", "balance_cents").
		Values(u.ExternalID, u.Name, u.Contact, u.Balance.Cents).
		Suffix("ON CONFLICT (external_id) DO NOTHING RETURNING id, created_at").
		ToSql()
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx, query, args...).Scan(&u.ID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("user %d: %w", u.ExternalID, core.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User registered", "id", u.ID, "external_id", u.ExternalID)
	return nil
}

func (r *Repository) AdjustBalance(ctx context.Context, userID int64, delta core.Money) error {
	query, args, err := adjustBalanceQuery(userID, delta)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user id %d: %w", userID, core.ErrNotFound)
	}
	return nil
}

func adjustBalanceQuery(userID int64, delta core.Money) (string, []any, error) {
	return psql.Update("users").
		Set("balance_cents", squirrel.Expr("balance_cents + ?", delta.Cents)).
		Where(squirrel.Eq{"id": userID}).
		Suffix("RETURNING " + strings.Join(userColumns, ", ")).
		ToSql()
}

func (r *Repository) FindCategory(ctx context.Context, kind core.Kind, id int64) (core.Category, error) {
	if !kind.Valid() {
		return core.Category{}, core.ErrInvalidKind
	}
	return findCategory(ctx, r.pool, kind, id)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func findCategory(ctx context.Context, q rowQuerier, kind core.Kind, id int64) (core.Category, error) {
	query, args, err := psql.Select("id", "name").
		From(kind.CategoryTable()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return core.Category{}, err
	}
	c := core.Category{Kind: kind}
	err = q.QueryRow(ctx, query, args...).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
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
	query, args, err := psql.Select("id", "name").From(kind.CategoryTable()).OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
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

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return core.User{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	cat, err := findCategory(ctx, tx, t.Kind, t.CategoryID)
	if err != nil {
		return core.User{}, err
	}

	query, args, err := psql.Insert(t.Kind.Table()).
		Columns("user_id", "category_id", "amount_cents", "date", "description").
		Values(t.UserID, t.CategoryID, t.Amount.Cents, t.Date.Time, t.Description).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return core.User{}, err
	}
	var (
		id      int64
		created time.Time
	)
	if err := tx.QueryRow(ctx, query, args...).Scan(&id, &created); err != nil {
		return core.User{}, fmt.Errorf("insert %s: %w", t.Kind, err)
	}

	query, args, err = adjustBalanceQuery(t.UserID, t.Kind.Signed(t.Amount))
	if err != nil {
		return core.User{}, err
	}
	user, err := scanUser(tx.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, fmt.Errorf("user id %d: %w", t.UserID, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("adjust balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return core.User{}, fmt.Errorf("commit transaction: %w", err)
	}

	t.ID = id
	t.CategoryName = cat.Name
	t.CreatedAt = created

	slog.InfoContext(ctx, "Transaction saved to PostgreSQL",
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
	query, args, err := selectTransactions(kind).Where(squirrel.Eq{"t.id": id}).ToSql()
	if err != nil {
		return core.Transaction{}, err
	}
	txs, err := queryTransactions(ctx, r.pool, kind, query, args)
	if err != nil {
		return core.Transaction{}, err
	}
	if len(txs) == 0 {
		return core.Transaction{}, fmt.Errorf("%s %d: %w", kind, id, core.ErrNotFound)
	}
	return txs[0], nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID int64, kind core.Kind, w core.Window) ([]core.Transaction, error) {
	return listTransactions(ctx, r.pool, userID, kind, w)
}

func (r *Repository) SumByCategory(ctx context.Context, userID int64, kind core.Kind, w core.Window) ([]core.CategoryAmount, error) {
	return sumByCategory(ctx, r.pool, userID, kind, w)
}

// Activity reads both queries in one repeatable-read transaction.
func (r *Repository) Activity(ctx context.Context, userID int64, kind core.Kind, w core.Window) (storage.Activity, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return storage.Activity{}, fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback(ctx)

	sums, err := sumByCategory(ctx, tx, userID, kind, w)
	if err != nil {
		return storage.Activity{}, err
	}
	txs, err := listTransactions(ctx, tx, userID, kind, w)
	if err != nil {
		return storage.Activity{}, err
	}
	return storage.Activity{Sums: sums, Transactions: txs}, tx.Commit(ctx)
}

// querier is satisfied by both the pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listTransactions(ctx context.Context, q querier, userID int64, kind core.Kind, w core.Window) ([]core.Transaction, error) {
	if !kind.Valid() {
		return nil, core.ErrInvalidKind
	}
	query, args, err := listTransactionsQuery(userID, kind, w)
	if err != nil {
		return nil, err
	}
	return queryTransactions(ctx, q, kind, query, args)
}

func sumByCategory(ctx context.Context, q querier, userID int64, kind core.Kind, w core.Window) ([]core.CategoryAmount, error) {
	if !kind.Valid() {
		return nil, core.ErrInvalidKind
	}
	query, args, err := sumByCategoryQuery(userID, kind, w)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, query, args...)
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

func inWindow(userID int64, w core.Window) squirrel.And {
	return squirrel.And{
		squirrel.Eq{"t.user_id": userID},
		squirrel.GtOrEq{"t.date": w.From.Time},
		squirrel.LtOrEq{"t.date": w.To.Time},
	}
}

func sumByCategoryQuery(userID int64, kind core.Kind, w core.Window) (string, []any, error) {
	return psql.Select("c.name", "SUM(t.amount_cents)::BIGINT").
		From(kind.Table() + " t").
		Join(kind.CategoryTable() + " c ON c.id = t.category_id").
		Where(inWindow(userID, w)).
		GroupBy("c.name").
		OrderBy("c.name").
		ToSql()
}

func listTransactionsQuery(userID int64, kind core.Kind, w core.Window) (string, []any, error) {
	return selectTransactions(kind).
		Where(inWindow(userID, w)).
		OrderBy("t.date", "t.id").
		ToSql()
}

func selectTransactions(kind core.Kind) squirrel.SelectBuilder {
	return psql.Select("t.id", "t.user_id", "t.category_id", "c.name", "t.amount_cents", "t.date", "t.description", "t.created_at").
		From(kind.Table() + " t").
		Join(kind.CategoryTable() + " c ON c.id = t.category_id")
}

func queryTransactions(ctx context.Context, q querier, kind core.Kind, query string, args []any) ([]core.Transaction, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t    = core.Transaction{Kind: kind}
			date time.Time
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.CategoryID, &t.CategoryName, &t.Amount.Cents, &date, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		t.Date = core.NewDate(date.Year(), date.Month(), date.Day())
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.ExternalID, &u.Name, &u.Contact, &u.Balance.Cents, &u.CreatedAt)
	return u, err
}
