package secret

import "errors"

var (
	// ErrSecretNotFound indicates the referenced variable or file does not exist.
	ErrSecretNotFound = errors.New("secret: not found")

	// ErrEmptySecret indicates a strict resolver got an empty value.
	ErrEmptySecret = errors.New("secret: empty value")

	// ErrMissingEnv indicates ${VAR} named an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variables")
)
