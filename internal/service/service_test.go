package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tuanvumaihuynh/stockroom/internal/allocator"
	"github.com/tuanvumaihuynh/stockroom/internal/auth"
	"github.com/tuanvumaihuynh/stockroom/internal/config"
	"github.com/tuanvumaihuynh/stockroom/internal/importer"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/repository"
	"github.com/tuanvumaihuynh/stockroom/internal/repository/repotest"
	"github.com/tuanvumaihuynh/stockroom/internal/service"
	"github.com/tuanvumaihuynh/stockroom/internal/undo"
)

type fixture struct {
	repos    repotest.Repositories
	hasher   auth.PasswordHasher
	deleted  *undo.Buffer
	products service.ProductService
	imports  service.ImportService
	users    service.UserService
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repos := repotest.New()
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	deleted := undo.NewBuffer(undo.DefaultCapacity)

	codes, err := allocator.New(context.Background(), config.AllocatorSequence, repos.Products, repos.CodeSequence)
	require.NoError(t, err)

	return fixture{
		repos:   repos,
		hasher:  hasher,
		deleted: deleted,
		products: service.NewProductService(
			logger, repos.DB, repos.Products, repos.Users, repos.OutboxMsgs, codes, deleted, hasher,
		),
		imports: service.NewImportService(
			logger, repos.DB, repos.Products, repos.OutboxMsgs, codes, importer.NewTracker(), model.ImportModeUpsert,
		),
		users: service.NewUserService(
			logger, repos.Users, hasher, auth.NewTokenManager("test-secret", 30*time.Minute),
		),
	}
}

func (f fixture) addUser(t *testing.T, username, password string, role model.Role) model.User {
	t.Helper()

	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)

	user, err := f.repos.Users.CreateUser(context.Background(), repository.CreateUserParams{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	})
	require.NoError(t, err)
	return user
}

func asUser(user model.User) context.Context {
	return auth.NewContextWithPrincipal(context.Background(), auth.Principal{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
}

var (
	admin  = model.User{ID: 100, Username: "root", Role: model.RoleAdmin}
	common = model.User{ID: 200, Username: "clerk", Role: model.RoleCommon}
)
