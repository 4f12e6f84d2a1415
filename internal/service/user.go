package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/auth"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/repository"
)

type RegisterParams struct {
	Username string
	Password string
}

type LoginParams struct {
	Username string
	Password string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      model.User
}

type UserService interface {
	Register(ctx context.Context, params RegisterParams) (model.User, error)
	Login(ctx context.Context, params LoginParams) (LoginResult, error)
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
	Profile(ctx context.Context) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	// EnsureAdmin creates an admin account unless username already exists.
	EnsureAdmin(ctx context.Context, username, password string) error
}

type userService struct {
	logger   *slog.Logger
	userRepo repository.UserRepository
	hasher   auth.PasswordHasher
	tokens   *auth.TokenManager
}

func NewUserService(
	logger *slog.Logger,
	userRepo repository.UserRepository,
	hasher auth.PasswordHasher,
	tokens *auth.TokenManager,
) UserService {
	return &userService{
		logger:   logger.With(slog.String("service", "user")),
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
	}
}

func (s *userService) Register(ctx context.Context, params RegisterParams) (model.User, error) {
	return s.createUser(ctx, strings.TrimSpace(params.Username), params.Password, model.RoleCommon)
}

func (s *userService) createUser(ctx context.Context, username, password string, role model.Role) (model.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, repository.CreateUserParams{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return model.User{}, fmt.Errorf("user repository create user: %w", err)
	}

	return user, nil
}

func (s *userService) Login(ctx context.Context, params LoginParams) (LoginResult, error) {
	user, err := checkCredentials(ctx, s.userRepo, s.hasher, strings.TrimSpace(params.Username), params.Password)
	if err != nil {
		return LoginResult{}, err
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	return LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

func (s *userService) Authenticate(_ context.Context, token string) (auth.Principal, error) {
	if token == "" {
		return auth.Principal{}, apperr.MissingTokenErr
	}

	return s.tokens.Verify(token)
}

func (s *userService) Profile(ctx context.Context) (model.User, error) {
	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return model.User{}, apperr.MissingTokenErr
	}

	user, err := s.userRepo.GetUserByID(ctx, p.UserID)
	if err != nil {
		return model.User{}, fmt.Errorf("user repository get user by id: %w", err)
	}

	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.userRepo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("user repository list users: %w", err)
	}

	return users, nil
}

func (s *userService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	_, err := s.userRepo.GetUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperr.UserNotFoundErr) {
		return fmt.Errorf("user repository get user by username: %w", err)
	}

	if _, err := s.createUser(ctx, username, password, model.RoleAdmin); err != nil {
		// lost a race with another instance
		if errors.Is(err, apperr.UsernameTakenErr) {
			return nil
		}
		return err
	}

	s.logger.InfoContext(ctx, "bootstrap admin created", slog.String("username", username))
	return nil
}
