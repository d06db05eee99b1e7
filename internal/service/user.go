package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/billtrack/billtrack/internal/model"
	"github.com/billtrack/billtrack/internal/repository"
)

// UserService resolves and maintains user roles.
type UserService struct {
	deps Deps
}

// NewUserService creates a new UserService.
func NewUserService(deps Deps) *UserService {
	return &UserService{deps: deps.withDefaults()}
}

// GetUserDetails returns the user for email, consulting the cache first.
func (s *UserService) GetUserDetails(ctx context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}

	if s.deps.Cache != nil {
		user, err := s.deps.Cache.GetUser(ctx, email)
		if err == nil {
			return user, nil
		}
		if !isCacheMiss(err) {
			s.deps.Logger.Warn("user cache read failed",
				slog.String("error", err.Error()),
			)
		}
	}

	user, err := s.deps.Store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetUser(ctx, user); err != nil {
			s.deps.Logger.Warn("user cache write failed", slog.String("error", err.Error()))
		}
	}

	return user, nil
}

// UpsertUser creates the user or changes its role.
func (s *UserService) UpsertUser(ctx context.Context, email, userType string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}

	ut, ok := model.ParseUserType(userType)
	if !ok {
		return nil, ErrInvalidUserType
	}

	user, err := s.deps.Store.UpsertUser(ctx, &model.User{
		ID:        ulid.Make().String(),
		Email:     email,
		UserType:  ut,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.InvalidateUser(ctx, email); err != nil {
			s.deps.Logger.Warn("user cache invalidation failed", slog.String("error", err.Error()))
		}
	}

	s.deps.Logger.Info("user upserted",
		slog.String("user_id", user.ID),
		slog.String("user_type", string(user.UserType)),
	)

	return user, nil
}

func validEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && domain != "" && !strings.ContainsAny(email, " \t\r\n/")
}
