package quota

import "errors"

var (
	// ErrNoDefaultLimit indicates a call needed the process-wide default
	// limit but none is configured. The gate treats it as a denial.
	ErrNoDefaultLimit = errors.New("quota: no default rate limit configured")

	// ErrInvalidConfig indicates a limiter was constructed with unusable settings.
	ErrInvalidConfig = errors.New("quota: invalid config")
)
