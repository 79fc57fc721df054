package secret

import "errors"

var (
	// ErrMissingEnv is returned when a ${VAR} reference names an unset
	// variable.
	ErrMissingEnv = errors.New("secret: missing environment variables")

	// ErrUnknownProvider is returned for a reference to an unregistered
	// provider.
	ErrUnknownProvider = errors.New("secret: unknown provider")

	// ErrEmptySecret is returned when a provider resolves to an empty value.
	ErrEmptySecret = errors.New("secret: empty value")

	// ErrInvalidRef is returned for a malformed reference.
	ErrInvalidRef = errors.New("secret: invalid reference")
)
