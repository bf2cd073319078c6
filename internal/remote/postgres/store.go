package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mahersayed/supplier-ledger/internal/models"
	"github.com/mahersayed/supplier-ledger/internal/remote"
)

// Store implements remote.Store against a self-hosted Postgres backend.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to the database at url and verifies the connection.
func Open(url string) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open remote db: %w", err)
	}
	return NewStore(db), nil
}

func (p *Store) Close() error { return p.db.Close() }

// wrapErr maps driver errors onto the remote error taxonomy.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, remote.ErrNotFound)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) ||
		strings.Contains(err.Error(), "connection refused") {
		return fmt.Errorf("%s: %w", op, remote.ErrUnreachable)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &remote.Error{Op: op, Code: string(pqErr.Code), Message: pqErr.Message}
	}
	return &remote.Error{Op: op, Message: err.Error()}
}

func (p *Store) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", remote.ErrUnreachable)
	}
	return nil
}

func (p *Store) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	const query = `SELECT id, name, COALESCE(phone, ''), opening_balance, created_at
		FROM suppliers ORDER BY name`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapErr("list suppliers", err)
	}
	defer rows.Close()

	var suppliers []models.Supplier
	for rows.Next() {
		var s models.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Phone, &s.OpeningBalance, &s.CreatedAt); err != nil {
			return nil, wrapErr("scan supplier", err)
		}
		suppliers = append(suppliers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list suppliers", err)
	}
	return suppliers, nil
}

func (p *Store) InsertSupplier(ctx context.Context, s models.Supplier) (models.Supplier, error) {
	const query = `INSERT INTO suppliers (id, name, phone, opening_balance)
		VALUES ($1, $2, $3, $4) RETURNING created_at`

	s.ID = uuid.NewString()
	err := p.db.QueryRowContext(ctx, query, s.ID, s.Name, s.Phone, s.OpeningBalance).
		Scan(&s.CreatedAt)
	if err != nil {
		return models.Supplier{}, wrapErr("insert supplier", err)
	}
	return s, nil
}

func (p *Store) ListTransactions(ctx context.Context, f remote.TransactionFilter) ([]models.Transaction, error) {
	query := `SELECT t.id, t.supplier_id, t.type, t.amount, t.date,
			COALESCE(t.reference_number, ''), COALESCE(t.notes, ''),
			COALESCE(t.created_by, ''), t.created_at, COALESCE(s.name, '')
		FROM transactions t
		LEFT JOIN suppliers s ON s.id = t.supplier_id`

	var (
		conds []string
		args  []any
	)
	if f.SupplierID != "" {
		args = append(args, f.SupplierID)
		conds = append(conds, fmt.Sprintf("t.supplier_id = $%d", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From.Time())
		conds = append(conds, fmt.Sprintf("t.date >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To.Time())
		conds = append(conds, fmt.Sprintf("t.date <= $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.date DESC, t.id DESC"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list transactions", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var (
			t    models.Transaction
			date time.Time
		)
		err := rows.Scan(&t.ID, &t.SupplierID, &t.Type, &t.Amount, &date,
			&t.ReferenceNumber, &t.Notes, &t.CreatedBy, &t.CreatedAt, &t.SupplierName)
		if err != nil {
			return nil, wrapErr("scan transaction", err)
		}
		t.Date = models.DateOf(date)
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list transactions", err)
	}
	return transactions, nil
}

func (p *Store) InsertTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	const query = `INSERT INTO transactions
			(supplier_id, type, amount, date, reference_number, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := p.db.QueryRowContext(ctx, query,
		t.SupplierID, string(t.Type), t.Amount, t.Date.Time(),
		t.ReferenceNumber, t.Notes, t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return models.Transaction{}, wrapErr("insert transaction", err)
	}
	t.SupplierName = ""
	return t, nil
}

func (p *Store) UpdateTransaction(ctx context.Context, id int64, patch models.TransactionPatch) error {
	var (
		sets []string
		args []any
	)
	if patch.Amount != nil {
		args = append(args, *patch.Amount)
		sets = append(sets, fmt.Sprintf("amount = $%d", len(args)))
	}
	if patch.Date != nil {
		args = append(args, patch.Date.Time())
		sets = append(sets, fmt.Sprintf("date = $%d", len(args)))
	}
	if patch.ReferenceNumber != nil {
		args = append(args, *patch.ReferenceNumber)
		sets = append(sets, fmt.Sprintf("reference_number = $%d", len(args)))
	}
	if patch.Notes != nil {
		args = append(args, *patch.Notes)
		sets = append(sets, fmt.Sprintf("notes = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE transactions SET %s WHERE id = $%d",
		strings.Join(sets, ", "), len(args))

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapErr("update transaction", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update transaction %d: %w", id, remote.ErrNotFound)
	}
	return nil
}

func (p *Store) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete transaction", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, remote.ErrNotFound)
	}
	return nil
}

func (p *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	const query = `SELECT id, name, code, created_at FROM users ORDER BY name`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapErr("list users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Code, &u.CreatedAt); err != nil {
			return nil, wrapErr("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list users", err)
	}
	return users, nil
}

func (p *Store) InsertUser(ctx context.Context, u models.User) (models.User, error) {
	const query = `INSERT INTO users (name, code) VALUES ($1, $2)
		RETURNING id, created_at`

	err := p.db.QueryRowContext(ctx, query, u.Name, u.Code).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return models.User{}, wrapErr("insert user", err)
	}
	return u, nil
}

func (p *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete user", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete user %d: %w", id, remote.ErrNotFound)
	}
	return nil
}

func (p *Store) GetSettings(ctx context.Context) (models.Settings, error) {
	const query = `SELECT company_name, COALESCE(logo_url, ''), COALESCE(admin_password, '')
		FROM app_settings WHERE id = 1`

	var s models.Settings
	err := p.db.QueryRowContext(ctx, query).Scan(&s.CompanyName, &s.LogoURL, &s.AdminPassword)
	if err != nil {
		return models.Settings{}, wrapErr("get settings", err)
	}
	return s, nil
}

func (p *Store) UpsertSettings(ctx context.Context, s models.Settings) error {
	const query = `INSERT INTO app_settings (id, company_name, logo_url, admin_password)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			logo_url = EXCLUDED.logo_url,
			admin_password = EXCLUDED.admin_password`

	if _, err := p.db.ExecContext(ctx, query, s.CompanyName, s.LogoURL, s.AdminPassword); err != nil {
		return wrapErr("upsert settings", err)
	}
	return nil
}

func (p *Store) BulkInsertSuppliers(ctx context.Context, suppliers []models.Supplier) error {
	return p.bulk(ctx, "restore suppliers", func(tx *sql.Tx) error {
		const query = `INSERT INTO suppliers (id, name, phone, opening_balance)
			VALUES ($1, $2, $3, $4)`
		for _, s := range suppliers {
			if _, err := tx.ExecContext(ctx, query, s.ID, s.Name, s.Phone, s.OpeningBalance); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Store) BulkInsertTransactions(ctx context.Context, transactions []models.Transaction) error {
	return p.bulk(ctx, "restore transactions", func(tx *sql.Tx) error {
		const query = `INSERT INTO transactions
				(id, supplier_id, type, amount, date, reference_number, notes, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		for _, t := range transactions {
			_, err := tx.ExecContext(ctx, query, t.ID, t.SupplierID, string(t.Type),
				t.Amount, t.Date.Time(), t.ReferenceNumber, t.Notes, t.CreatedBy)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Store) BulkInsertUsers(ctx context.Context, users []models.User) error {
	return p.bulk(ctx, "restore users", func(tx *sql.Tx) error {
		const query = `INSERT INTO users (id, name, code) VALUES ($1, $2, $3)`
		for _, u := range users {
			if _, err := tx.ExecContext(ctx, query, u.ID, u.Name, u.Code); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Store) DeleteAll(ctx context.Context) error {
	// Transactions first: they reference suppliers.
	return p.bulk(ctx, "delete all", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM suppliers`)
		return err
	})
}

func (p *Store) bulk(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr(op, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return wrapErr(op, err)
	}
	if err := tx.Commit(); err != nil {
		return wrapErr(op, err)
	}
	return nil
}

var _ remote.Store = (*Store)(nil)
