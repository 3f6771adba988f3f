package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrTokenSecretEmpty error if the token signing secret is not configured.
	// The token service refuses to start without one.
	ErrTokenSecretEmpty = errors.New("toml config auth.tokensecret can not be empty")
)
