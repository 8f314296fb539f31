package config

import "errors"

// Validation errors returned by Config.Validate.
var (
	// ErrEmptyHostPriority is returned when no file hosts are configured.
	// Without at least one host nothing can ever be recognised as a mirror.
	ErrEmptyHostPriority = errors.New("invalid host_priority: at least one host is required")

	// ErrInvalidLimit is returned when a display limit is negative.
	ErrInvalidLimit = errors.New("invalid mirror limit: must be non-negative")

	// ErrInvalidRate is returned when requests_per_second is not positive.
	ErrInvalidRate = errors.New("invalid requests_per_second: must be positive")

	// ErrInvalidDebounce is returned when debounce_ms is negative.
	ErrInvalidDebounce = errors.New("invalid debounce_ms: must be non-negative")

	// ErrInvalidInterval is returned when watch_interval_seconds is not positive.
	ErrInvalidInterval = errors.New("invalid watch_interval_seconds: must be positive")

	// ErrInvalidConcurrency is returned when max_concurrent_downloads is not positive.
	ErrInvalidConcurrency = errors.New("invalid max_concurrent_downloads: must be positive")
)
