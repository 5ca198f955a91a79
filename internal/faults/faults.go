// Package faults defines the three failure kinds of a run. All of them are
// terminal: the pipeline never substitutes a default decision for an error,
// because an unwarranted "don't water" can harm the plant.
package faults

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks a pre-flight problem (missing credential).
	ErrConfiguration = errors.New("configuration error")
	// ErrInput marks a missing required file or data failing validation.
	ErrInput = errors.New("input error")
	// ErrInference marks a failed or malformed reply from the inference
	// service.
	ErrInference = errors.New("inference failure")
)

func Configuration(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, a...))
}

func Input(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInput, fmt.Sprintf(format, a...))
}

func Inference(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInference, fmt.Sprintf(format, a...))
}
