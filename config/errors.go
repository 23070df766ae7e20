package config

import "errors"

// ErrInvalidConfig wraps every range violation reported by Validate.
var ErrInvalidConfig = errors.New("config: invalid value")
