package services

import "errors"

var (
	// ErrInvalidEvent marks a gateway event that cannot be decoded.
	ErrInvalidEvent = errors.New("services: invalid event")
	// ErrGateway marks a failed or rejected gateway command.
	ErrGateway = errors.New("services: gateway error")
)
