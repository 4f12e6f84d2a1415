package model

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleCommon Role = "common"
)

func (r Role) Validate() error {
	switch r {
	case RoleAdmin, RoleCommon:
		return nil
	default:
		return fmt.Errorf("invalid role: %q", string(r))
	}
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
