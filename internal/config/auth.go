package config

import "time"

type Auth struct {
	JWTSecret  string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL   time.Duration `env:"JWT_TTL" envDefault:"30m" validate:"gt=0"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10" validate:"gte=4,lte=31"`

	// Created on startup when no user with that name exists.
	BootstrapAdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD" validate:"required_with=BootstrapAdminUsername"`
}
