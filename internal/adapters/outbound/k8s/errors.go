package k8s

import (
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

var (
	// ErrNoMemoryLimit is returned when no container of the pod sets a memory limit
	ErrNoMemoryLimit = errors.New("pod has no memory limit")
	// ErrPodNotFound is returned when the own pod (or its metrics) does not exist
	ErrPodNotFound = errors.New("pod not found")
	// ErrThrottled is returned when the API server answers 429
	ErrThrottled = errors.New("api server throttled the request")
)

// wrapAPIError maps API status errors onto the package sentinels.
func wrapAPIError(op string, err error) error {
	switch {
	case apierrors.IsNotFound(err):
		return fmt.Errorf("%s: %w: %w", op, ErrPodNotFound, err)
	case apierrors.IsTooManyRequests(err):
		return fmt.Errorf("%s: %w: %w", op, ErrThrottled, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
