package app

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrPromptInjection      = errors.New("Potential prompt injection detected")
	ErrNullModelResponse    = errors.New("Got a null response from the model")
	ErrInvalidModelResponse = errors.New("Invalid response")
	ErrMediaNotFound        = errors.New("media file not found")
	ErrModelUnavailable     = errors.New("model call failed")
)

// modelErr marks an upstream model failure, keeping the cause in the chain.
func modelErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
}
