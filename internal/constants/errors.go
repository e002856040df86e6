package constants

import "errors"

// Configuration errors.
var (
	ErrConfigKeyUnknown     = errors.New("unknown configuration key")
	ErrInvalidOutputFormat  = errors.New("invalid output format")
	ErrInvalidParameterFlag = errors.New("parameters must be given as name=value")
	ErrNoTokenEntered       = errors.New("no token entered")
)

// Discovery errors.
var (
	ErrAPINotInDirectory = errors.New("API not found in directory")
	ErrMethodNotInAPI    = errors.New("method not found in API")
)
