package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/billtrack/billtrack/internal/cache"
	"github.com/billtrack/billtrack/internal/events"
	"github.com/billtrack/billtrack/internal/metrics"
	"github.com/billtrack/billtrack/internal/model"
	"github.com/billtrack/billtrack/internal/repository"
)

// Pagination defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// BillService handles bill business logic.
type BillService struct {
	deps        Deps
	users       *UserService
	defaultSize int
	maxSize     int
}

// NewBillService creates a new BillService. Non-positive page sizes fall
// back to DefaultPageSize and MaxPageSize.
func NewBillService(deps Deps, users *UserService, defaultPageSize, maxPageSize int) *BillService {
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	if defaultPageSize <= 0 || defaultPageSize > maxPageSize {
		defaultPageSize = min(DefaultPageSize, maxPageSize)
	}
	deps = deps.withDefaults()
	if users == nil {
		users = NewUserService(deps)
	}
	return &BillService{
		deps:        deps,
		users:       users,
		defaultSize: defaultPageSize,
		maxSize:     maxPageSize,
	}
}

// CreateBillInput defines input for creating a bill.
// Amount is a pointer so a missing amount can be told apart from zero.
type CreateBillInput struct {
	Category string
	Amount   *decimal.Decimal
	DueDate  model.Date
	Receiver string
	Biller   string
}

// CreateBill validates and stores a new unpaid bill.
func (s *BillService) CreateBill(ctx context.Context, input CreateBillInput) (*model.Bill, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	bill := &model.Bill{
		ID:        ulid.Make().String(),
		Category:  strings.TrimSpace(input.Category),
		Amount:    *input.Amount,
		DueDate:   input.DueDate,
		Receiver:  strings.TrimSpace(input.Receiver),
		Biller:    model.NormalizeEmail(input.Biller),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.deps.Store.CreateBill(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to create bill: %w", err)
	}

	s.deps.Metrics.IncBillCreated()

	// A new bill may introduce a new receiver.
	if s.deps.Cache != nil {
		if err := s.deps.Cache.InvalidateReceivers(ctx); err != nil {
			s.deps.Logger.Warn("receivers cache invalidation failed", slog.String("error", err.Error()))
		}
	}

	s.publish(ctx, events.NewBillEvent(events.TypeBillCreated, bill))

	return bill, nil
}

// GetBill retrieves a bill by ID.
func (s *BillService) GetBill(ctx context.Context, id string) (*model.Bill, error) {
	bill, err := s.deps.Store.GetBillByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBillNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return bill, nil
}

// ListBillsInput defines input for listing a user's bills.
// Zero Page and Limit select the defaults.
type ListBillsInput struct {
	Email    string
	Receiver string
	Page     int
	Limit    int
}

// ListBillsForUser returns one page of the bills visible to the user.
// Members see the bills they own; managers see every bill. An unknown
// user sees nothing.
func (s *BillService) ListBillsForUser(ctx context.Context, input ListBillsInput) ([]*model.Bill, error) {
	page, err := s.resolvePage(input.Page, input.Limit)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserDetails(ctx, input.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidEmail) {
			return []*model.Bill{}, nil
		}
		return nil, err
	}

	filter := repository.BillFilter{Receiver: strings.TrimSpace(input.Receiver)}
	if !user.UserType.IsManager() {
		filter.Biller = user.Email
	}

	return s.list(ctx, filter, page)
}

// ListAllBills returns every bill, ordered by due date.
func (s *BillService) ListAllBills(ctx context.Context) ([]*model.Bill, error) {
	return s.list(ctx, repository.BillFilter{}, repository.Page{})
}

func (s *BillService) list(ctx context.Context, filter repository.BillFilter, page repository.Page) ([]*model.Bill, error) {
	start := time.Now()
	bills, err := s.deps.Store.ListBills(ctx, filter, page)
	s.deps.Metrics.ObserveListDuration(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	return bills, nil
}

// UpdateBill merges patch into the bill. paid only moves from false to
// true; paymentRefNumber is set independently of paid.
func (s *BillService) UpdateBill(ctx context.Context, id string, patch model.BillPatch) (*model.Bill, error) {
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}

	current, err := s.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Paid != nil && !*patch.Paid {
		if current.Paid {
			return nil, ErrCannotUnpay
		}
		// paid:false on an unpaid bill changes nothing; never write it so a
		// concurrent mark-paid cannot be reverted.
		patch.Paid = nil
		if patch.IsEmpty() {
			return current, nil
		}
	}

	updated, err := s.deps.Store.UpdateBillPayment(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrBillNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, fmt.Errorf("failed to update bill: %w", err)
	}

	var changed []string
	if patch.Paid != nil {
		changed = append(changed, metrics.FieldPaid)
		s.deps.Metrics.IncBillUpdated(metrics.FieldPaid)
	}
	if patch.PaymentRefNumber != nil {
		changed = append(changed, metrics.FieldPaymentRef)
		s.deps.Metrics.IncBillUpdated(metrics.FieldPaymentRef)
	}

	s.publish(ctx, events.NewBillEvent(events.TypeBillUpdated, updated, changed...))

	return updated, nil
}

// ListUniqueReceivers returns the sorted distinct receivers of all bills.
func (s *BillService) ListUniqueReceivers(ctx context.Context) ([]string, error) {
	if s.deps.Cache != nil {
		receivers, err := s.deps.Cache.GetReceivers(ctx)
		if err == nil {
			s.deps.Metrics.IncReceiversCacheHit()
			return receivers, nil
		}
		s.deps.Metrics.IncReceiversCacheMiss()
		if !isCacheMiss(err) {
			s.deps.Logger.Warn("receivers cache read failed", slog.String("error", err.Error()))
		}
	}

	receivers, err := s.deps.Store.ListUniqueReceivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list receivers: %w", err)
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetReceivers(ctx, receivers); err != nil {
			s.deps.Logger.Warn("receivers cache write failed", slog.String("error", err.Error()))
		}
	}

	return receivers, nil
}

func (s *BillService) resolvePage(number, size int) (repository.Page, error) {
	if number < 0 || size < 0 {
		return repository.Page{}, ErrInvalidPagination
	}
	if number == 0 {
		number = DefaultPage
	}
	if size == 0 {
		size = s.defaultSize
	}
	if size > s.maxSize {
		return repository.Page{}, fmt.Errorf("%w: limit must be at most %d", ErrInvalidPagination, s.maxSize)
	}
	if number > math.MaxInt32/size {
		return repository.Page{}, fmt.Errorf("%w: page is out of range", ErrInvalidPagination)
	}
	return repository.Page{Number: number, Size: size}, nil
}

// publish never fails the caller; the change is already committed.
func (s *BillService) publish(ctx context.Context, event events.BillEvent) {
	if err := s.deps.Publisher.Publish(ctx, event); err != nil {
		s.deps.Metrics.IncEventPublished(event.Type, "failed")
		s.deps.Logger.Warn("bill event publish failed",
			slog.String("event_type", event.Type),
			slog.String("bill_id", event.Bill.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.deps.Metrics.IncEventPublished(event.Type, "success")
}

func validateCreate(input CreateBillInput) error {
	var missing []string
	if strings.TrimSpace(input.Category) == "" {
		missing = append(missing, "category")
	}
	if input.Amount == nil {
		missing = append(missing, "amount")
	}
	if input.DueDate.IsZero() {
		missing = append(missing, "dueDate")
	}
	if strings.TrimSpace(input.Receiver) == "" {
		missing = append(missing, "receiver")
	}
	if strings.TrimSpace(input.Biller) == "" {
		missing = append(missing, "biller")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidBill, strings.Join(missing, ", "))
	}
	return nil
}

func isCacheMiss(err error) bool {
	return errors.Is(err, cache.ErrCacheMiss)
}
