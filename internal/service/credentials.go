package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/auth"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/repository"
)

// checkCredentials returns the user owning username when password matches.
// Unknown users and wrong passwords are reported the same way.
func checkCredentials(
	ctx context.Context,
	userRepo repository.UserRepository,
	hasher auth.PasswordHasher,
	username, password string,
) (model.User, error) {
	user, err := userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.UserNotFoundErr) {
			return model.User{}, apperr.InvalidCredentialsErr
		}
		return model.User{}, fmt.Errorf("user repository get user by username: %w", err)
	}

	ok, err := hasher.Compare(user.PasswordHash, password)
	if err != nil {
		return model.User{}, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return model.User{}, apperr.InvalidCredentialsErr
	}

	return user, nil
}

func principal(ctx context.Context) auth.Principal {
	p, _ := auth.PrincipalFromContext(ctx)
	return p
}
