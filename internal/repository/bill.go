package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/billtrack/billtrack/internal/model"
)

// Amounts and dates cross the wire as text so the decimal and model.Date
// scanners see the exact stored representation.
const (
	billColumns       = `id, category, amount, due_date, receiver, biller, paid, payment_ref_number, created_at, updated_at`
	billSelectColumns = `id, category, amount::text, due_date::text, receiver, biller, paid, payment_ref_number, created_at, updated_at`
)

// CreateBill inserts a new bill into the database.
func (r *Repository) CreateBill(ctx context.Context, bill *model.Bill) error {
	query := `
		INSERT INTO bills (` + billColumns + `)
		VALUES ($1, $2, $3::text::numeric, $4::text::date, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		bill.ID,
		bill.Category,
		bill.Amount,
		bill.DueDate,
		bill.Receiver,
		bill.Biller,
		bill.Paid,
		bill.PaymentRefNumber,
		bill.CreatedAt,
		bill.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}

	return nil
}

// GetBillByID retrieves a bill by its ID.
func (r *Repository) GetBillByID(ctx context.Context, id string) (*model.Bill, error) {
	query := `SELECT ` + billSelectColumns + ` FROM bills WHERE id = $1`

	bill, err := scanBill(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBillNotFound
		}
		return nil, fmt.Errorf("failed to get bill by ID: %w", err)
	}

	return bill, nil
}

// ListBills retrieves bills matching the filter, ordered by due date.
func (r *Repository) ListBills(ctx context.Context, filter BillFilter, page Page) ([]*model.Bill, error) {
	query := `SELECT ` + billSelectColumns + ` FROM bills WHERE TRUE`
	args := []any{}
	argIndex := 1

	if filter.Biller != "" {
		query += fmt.Sprintf(" AND lower(biller) = $%d", argIndex)
		args = append(args, model.NormalizeEmail(filter.Biller))
		argIndex++
	}

	if filter.Receiver != "" {
		query += fmt.Sprintf(" AND receiver = $%d", argIndex)
		args = append(args, filter.Receiver)
		argIndex++
	}

	query += " ORDER BY due_date ASC, id ASC"

	if page.Size > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, page.Size, page.Offset())
	}

	rows, err := r.pool.Query(ctx, query, args...)
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
// Absent fields keep their stored value.
func (r *Repository) UpdateBillPayment(ctx context.Context, id string, patch model.BillPatch) (*model.Bill, error) {
	query := `
		UPDATE bills
		SET paid = COALESCE($2, paid),
		    payment_ref_number = COALESCE($3, payment_ref_number),
		    updated_at = $4
		WHERE id = $1
		RETURNING ` + billSelectColumns

	bill, err := scanBill(r.pool.QueryRow(ctx, query,
		id,
		patch.Paid,
		patch.PaymentRefNumber,
		time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBillNotFound
		}
		return nil, fmt.Errorf("failed to update bill: %w", err)
	}

	return bill, nil
}

// ListUniqueReceivers returns the distinct receivers across all bills, sorted.
func (r *Repository) ListUniqueReceivers(ctx context.Context) ([]string, error) {
	query := `SELECT COALESCE(array_agg(DISTINCT receiver ORDER BY receiver), '{}') FROM bills`

	var receivers []string
	if err := r.pool.QueryRow(ctx, query).Scan(pq.Array(&receivers)); err != nil {
		return nil, fmt.Errorf("failed to list unique receivers: %w", err)
	}

	if receivers == nil {
		receivers = []string{}
	}

	return receivers, nil
}

// scanBill scans a single row into a Bill model.
func scanBill(row pgx.Row) (*model.Bill, error) {
	var bill model.Bill
	err := row.Scan(
		&bill.ID,
		&bill.Category,
		&bill.Amount,
		&bill.DueDate,
		&bill.Receiver,
		&bill.Biller,
		&bill.Paid,
		&bill.PaymentRefNumber,
		&bill.CreatedAt,
		&bill.UpdatedAt,
	)
	return &bill, err
}
