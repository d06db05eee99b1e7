package repository

import (
	"context"
	"errors"

	"github.com/billtrack/billtrack/internal/model"
)

// Common errors for store operations. Every backend returns these.
var (
	ErrBillNotFound = errors.New("bill not found")
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

// BillFilter narrows a bill listing. Zero values mean "no restriction".
type BillFilter struct {
	// Biller restricts to bills owned by this (normalized) email.
	Biller string
	// Receiver restricts to bills directed to this receiver.
	Receiver string
}

// Page selects a slice of an ordered listing. Page is 1-based.
type Page struct {
	Number int
	Size   int
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Store defines the persistence operations the service layer needs.
// Repository (PostgreSQL) and sqlite.Store both implement it.
type Store interface {
	CreateBill(ctx context.Context, bill *model.Bill) error
	GetBillByID(ctx context.Context, id string) (*model.Bill, error)
	// ListBills returns bills ordered by due date then id.
	// A zero Page returns every matching bill.
	ListBills(ctx context.Context, filter BillFilter, page Page) ([]*model.Bill, error)
	// UpdateBillPayment merges the patch into the stored bill and returns the result.
	UpdateBillPayment(ctx context.Context, id string, patch model.BillPatch) (*model.Bill, error)
	ListUniqueReceivers(ctx context.Context) ([]string, error)

	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpsertUser(ctx context.Context, user *model.User) (*model.User, error)

	Ping(ctx context.Context) error
	Close()
}

var _ Store = (*Repository)(nil)
