package models

import "errors"

// Domain specific errors for itinerary generation.
var (
	ErrValidation           = errors.New("validation failed")
	ErrUnknownTool          = errors.New("unknown tool")
	ErrInvalidToolArguments = errors.New("invalid tool arguments")
	ErrMaxRoundsExceeded    = errors.New("maximum model rounds exceeded")
	ErrProvider             = errors.New("search provider request failed")
	ErrModel                = errors.New("language model request failed")
)
