package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"finboard/internal/core"
	"finboard/internal/sheets"

	_ "modernc.org/sqlite"
)

var _ sheets.LedgerStore = (*SQLiteRepository)(nil)

const selectLedger = `SELECT id, date, amount_cents, category, receipt
FROM transactions ORDER BY position, id`

// SQLiteRepository stores the ledger in a SQLite table. Row order is kept in
// the position column; IDs come from the table's autoincrement sequence and
// are never reused.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers; the ledger is single-user.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite ledger ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *SQLiteRepository) Load(ctx context.Context) (core.Ledger, error) {
	return loadLedger(ctx, r.db)
}

func loadLedger(ctx context.Context, q queryer) (core.Ledger, error) {
	rows, err := q.QueryContext(ctx, selectLedger)
	if err != nil {
		return core.Ledger{}, fmt.Errorf("%w: query transactions: %v", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	out := core.Ledger{}
	for rows.Next() {
		var (
			t    core.Transaction
			date string
		)
		if err := rows.Scan(&t.ID, &date, &t.Amount.Cents, &t.Category, &t.Receipt); err != nil {
			return core.Ledger{}, fmt.Errorf("%w: scan transaction: %v", core.ErrStoreUnavailable, err)
		}
		t.Date, err = core.ParseDate(date)
		if err != nil {
			return core.Ledger{}, fmt.Errorf("%w: transaction %d: %v", core.ErrMalformedLedger, t.ID, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return core.Ledger{}, fmt.Errorf("%w: iterate transactions: %v", core.ErrStoreUnavailable, err)
	}
	return out, nil
}

// Save replaces every row in one transaction. Rows keep their IDs; rows with
// a zero ID get a fresh one.
func (r *SQLiteRepository) Save(ctx context.Context, l core.Ledger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", core.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("%w: delete transactions: %v", core.ErrStoreUnavailable, err)
	}
	for i, t := range l {
		var err error
		if t.ID > 0 {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO transactions (id, position, date, amount_cents, category, receipt) VALUES (?, ?, ?, ?, ?, ?)`,
				t.ID, i, t.Date.String(), t.Amount.Cents, t.Category, t.Receipt)
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO transactions (position, date, amount_cents, category, receipt) VALUES (?, ?, ?, ?, ?)`,
				i, t.Date.String(), t.Amount.Cents, t.Category, t.Receipt)
		}
		if err != nil {
			return fmt.Errorf("%w: insert transaction: %v", core.ErrStoreUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", core.ErrStoreUnavailable, err)
	}

	slog.DebugContext(ctx, "Ledger saved to SQLite", "rows", len(l))
	return nil
}

func (r *SQLiteRepository) Append(ctx context.Context, t core.Transaction) (core.Ledger, error) {
	l, err := r.Load(ctx)
	if err != nil {
		return l, fmt.Errorf("append blocked: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (position, date, amount_cents, category, receipt)
		 VALUES ((SELECT COALESCE(MAX(position), -1) + 1 FROM transactions), ?, ?, ?, ?)`,
		t.Date.String(), t.Amount.Cents, t.Category, t.Receipt)
	if err != nil {
		return l, fmt.Errorf("%w: insert transaction: %v", core.ErrStoreUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return l, fmt.Errorf("%w: last insert id: %v", core.ErrStoreUnavailable, err)
	}
	t.ID = id

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"date", t.Date.String(),
		"amount_cents", t.Amount.Cents,
		"category", t.Category)

	return append(l, t), nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, id int64) (core.Ledger, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		l, _ := r.Load(ctx)
		return l, fmt.Errorf("%w: delete transaction: %v", core.ErrStoreUnavailable, err)
	}
	if err := expectOneRow(res, id); err != nil {
		l, _ := r.Load(ctx)
		return l, err
	}
	return r.Load(ctx)
}

func (r *SQLiteRepository) Clear(ctx context.Context) (core.Ledger, error) {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return core.Ledger{}, fmt.Errorf("%w: clear transactions: %v", core.ErrStoreUnavailable, err)
	}
	slog.InfoContext(ctx, "Ledger cleared in SQLite")
	return core.Ledger{}, nil
}

func (r *SQLiteRepository) Edit(ctx context.Context, id int64, date core.Date, amount core.Money, category string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET date = ?, amount_cents = ?, category = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		date.String(), amount.Cents, category, id)
	if err != nil {
		return fmt.Errorf("%w: update transaction: %v", core.ErrStoreUnavailable, err)
	}
	return expectOneRow(res, id)
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", core.ErrStoreUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: transaction %d", core.ErrIndexOutOfRange, id)
	}
	return nil
}

