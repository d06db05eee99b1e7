// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/billtrack/billtrack/internal/events"
	"github.com/billtrack/billtrack/internal/metrics"
	"github.com/billtrack/billtrack/internal/model"
	"github.com/billtrack/billtrack/internal/repository"
)

// Service errors.
var (
	ErrBillNotFound      = errors.New("bill not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidBill       = errors.New("invalid bill")
	ErrEmptyPatch        = errors.New("patch must set paid or paymentRefNumber")
	ErrCannotUnpay       = errors.New("a paid bill cannot be marked unpaid")
	ErrInvalidPagination = errors.New("invalid pagination")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidUserType   = errors.New("userType must be manager or member")
)

// Cache is the read-through cache used by the services.
// *cache.Cache implements it.
type Cache interface {
	GetReceivers(ctx context.Context) ([]string, error)
	SetReceivers(ctx context.Context, receivers []string) error
	InvalidateReceivers(ctx context.Context) error

	GetUser(ctx context.Context, email string) (*model.User, error)
	SetUser(ctx context.Context, user *model.User) error
	InvalidateUser(ctx context.Context, email string) error
}

// Deps carries the collaborators shared by the services.
// Only Store is required.
type Deps struct {
	Store     repository.Store
	Cache     Cache
	Publisher events.Publisher
	Metrics   metrics.Recorder
	Logger    *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Publisher == nil {
		d.Publisher = events.NoopPublisher{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewNoop()
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d
}
