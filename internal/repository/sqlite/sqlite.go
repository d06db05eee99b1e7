// Package sqlite provides a SQLite-backed implementation of repository.Store.
// It serves local development and the test suites; production runs on PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/billtrack/billtrack/internal/model"
	"github.com/billtrack/billtrack/internal/repository"
)

// Ensure Store implements repository.Store
var _ repository.Store = (*Store)(nil)

// Store implements repository.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and migrates it.
func New(ctx context.Context, dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// PathFromURL extracts the file path from a sqlite:// database URL.
func PathFromURL(databaseURL string) (string, bool) {
	for _, prefix := range []string{"sqlite://", "sqlite:"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return strings.TrimPrefix(databaseURL, prefix), true
		}
	}
	return "", false
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() {
	_ = s.db.Close()
}

const billColumns = `id, category, amount, due_date, receiver, biller, paid, payment_ref_number, created_at, updated_at`

// CreateBill inserts a new bill.
func (s *Store) CreateBill(ctx context.Context, bill *model.Bill) error {
	query := `INSERT INTO bills (` + billColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		bill.ID,
		bill.Category,
		bill.Amount.String(),
		bill.DueDate.String(),
		bill.Receiver,
		bill.Biller,
		bill.Paid,
		bill.PaymentRefNumber,
		bill.CreatedAt.UnixNano(),
		bill.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}

	return nil
}

// GetBillByID retrieves a bill by its ID.
func (s *Store) GetBillByID(ctx context.Context, id string) (*model.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = ?`

	bill, err := scanBill(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrBillNotFound
		}
		return nil, fmt.Errorf("failed to get bill by ID: %w", err)
	}

	return bill, nil
}

// ListBills retrieves bills matching the filter, ordered by due date.
func (s *Store) ListBills(ctx context.Context, filter repository.BillFilter, page repository.Page) ([]*model.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE 1 = 1`
	args := []any{}

	if filter.Biller != "" {
		query += ` AND lower(biller) = ?`
		args = append(args, model.NormalizeEmail(filter.Biller))
	}

	if filter.Receiver != "" {
		query += ` AND receiver = ?`
		args = append(args, filter.Receiver)
	}

	query += ` ORDER BY due_date ASC, id ASC`

	if page.Size > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, page.Size, page.Offset())
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	bills := make([]*model.Bill, 0)
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bills: %w", err)
	}

	return bills, nil
}

// UpdateBillPayment applies a merge patch in a single statement.
func (s *Store) UpdateBillPayment(ctx context.Context, id string, patch model.BillPatch) (*model.Bill, error) {
	query := `
		UPDATE bills
		SET paid = COALESCE(?, paid),
		    payment_ref_number = COALESCE(?, payment_ref_number),
		    updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		nullableBool(patch.Paid),
		nullableString(patch.PaymentRefNumber),
		time.Now().UTC().UnixNano(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update bill: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return nil, repository.ErrBillNotFound
	}

	return s.GetBillByID(ctx, id)
}

// ListUniqueReceivers returns the distinct receivers across all bills, sorted.
func (s *Store) ListUniqueReceivers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT receiver FROM bills ORDER BY receiver`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unique receivers: %w", err)
	}
	defer rows.Close()

	receivers := make([]string, 0)
	for rows.Next() {
		var receiver string
		if err := rows.Scan(&receiver); err != nil {
			return nil, fmt.Errorf("failed to scan receiver: %w", err)
		}
		receivers = append(receivers, receiver)
	}

	return receivers, rows.Err()
}

// GetUserByEmail retrieves a user by their email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT id, email, user_type, created_at FROM users WHERE email = ?`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, model.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// UpsertUser creates the user or updates the role of an existing one.
func (s *Store) UpsertUser(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (id, email, user_type, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET user_type = excluded.user_type
	`

	email := model.NormalizeEmail(user.Email)
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		email,
		string(user.UserType),
		user.CreatedAt.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, repository.ErrEmailExists
		}
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return s.GetUserByEmail(ctx, email)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBill(row scanner) (*model.Bill, error) {
	var (
		bill      model.Bill
		amount    string
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&bill.ID,
		&bill.Category,
		&amount,
		&bill.DueDate,
		&bill.Receiver,
		&bill.Biller,
		&bill.Paid,
		&bill.PaymentRefNumber,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := bill.Amount.Scan(amount); err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	bill.CreatedAt = time.Unix(0, createdAt).UTC()
	bill.UpdatedAt = time.Unix(0, updatedAt).UTC()

	return &bill, nil
}

func scanUser(row scanner) (*model.User, error) {
	var (
		user      model.User
		createdAt int64
	)
	if err := row.Scan(&user.ID, &user.Email, &user.UserType, &createdAt); err != nil {
		return nil, err
	}
	user.CreatedAt = time.Unix(0, createdAt).UTC()
	return &user, nil
}

func nullableBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
