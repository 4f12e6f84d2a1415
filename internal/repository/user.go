package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
	"github.com/tuanvumaihuynh/stockroom/pkg/zerror"
)

type CreateUserParams struct {
	Username     string
	PasswordHash string
	Role         model.Role
}

type UserRepository interface {
	WithDB(db db.DB) UserRepository
	CreateUser(ctx context.Context, params CreateUserParams) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	GetUserByID(ctx context.Context, id int64) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

type userRepository struct {
	db db.DB
}

func NewUserRepository(db db.DB) UserRepository {
	return &userRepository{db: db}
}

func (r userRepository) WithDB(db db.DB) UserRepository {
	return &userRepository{db: db}
}

var userUniques = map[string]zerror.ZError{
	"users_username_key": apperr.UsernameTakenErr,
}

func (r userRepository) CreateUser(ctx context.Context, params CreateUserParams) (model.User, error) {
	rows, err := r.db.Query(ctx, `
		INSERT INTO users (username, password_hash, role)
		VALUES (@username, @password_hash, @role)
		RETURNING id, username, password_hash, role, created_at
	`, pgx.NamedArgs{
		"username":      params.Username,
		"password_hash": params.PasswordHash,
		"role":          string(params.Role),
	})
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", classify(err, nil, userUniques))
	}

	user, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[model.User])
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", classify(err, nil, userUniques))
	}

	return user, nil
}

func (r userRepository) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return r.getUser(ctx, "username = @username", pgx.NamedArgs{"username": username})
}

func (r userRepository) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	return r.getUser(ctx, "id = @id", pgx.NamedArgs{"id": id})
}

func (r userRepository) getUser(ctx context.Context, where string, args pgx.NamedArgs) (model.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users WHERE `+where, args)
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", classify(err, nil, nil))
	}

	user, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[model.User])
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", classify(err, &apperr.UserNotFoundErr, nil))
	}

	return user, nil
}

func (r userRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", classify(err, nil, nil))
	}

	users, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.User])
	if err != nil {
		return nil, fmt.Errorf("collect users: %w", classify(err, nil, nil))
	}

	return users, nil
}
