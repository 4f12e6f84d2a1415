package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/service"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type userResponse struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}

func newUserResponse(u model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

type userHandler struct {
	userSvc service.UserService
}

func newUserHandler(userSvc service.UserService) *userHandler {
	return &userHandler{userSvc: userSvc}
}

func (h *userHandler) register(w http.ResponseWriter, r *http.Request, req request) error {
	var body credentialsRequest
	if err := req.bind(w, &body); err != nil {
		return err
	}

	user, err := h.userSvc.Register(r.Context(), service.RegisterParams{
		Username: body.Username,
		Password: body.Password,
	})
	if err != nil {
		return fmt.Errorf("user service register: %w", err)
	}

	return writeJSON(w, http.StatusCreated, newUserResponse(user))
}

func (h *userHandler) login(w http.ResponseWriter, r *http.Request, req request) error {
	// Login accepts any stored username, so only presence is checked.
	var body struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := req.bind(w, &body); err != nil {
		return err
	}

	res, err := h.userSvc.Login(r.Context(), service.LoginParams{
		Username: body.Username,
		Password: body.Password,
	})
	if err != nil {
		return fmt.Errorf("user service login: %w", err)
	}

	return writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      newUserResponse(res.User),
	})
}

func (h *userHandler) profile(w http.ResponseWriter, r *http.Request, _ request) error {
	user, err := h.userSvc.Profile(r.Context())
	if err != nil {
		return fmt.Errorf("user service profile: %w", err)
	}

	return writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *userHandler) listUsers(w http.ResponseWriter, r *http.Request, _ request) error {
	users, err := h.userSvc.ListUsers(r.Context())
	if err != nil {
		return fmt.Errorf("user service list users: %w", err)
	}

	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, newUserResponse(u))
	}

	return writeJSON(w, http.StatusOK, items)
}
