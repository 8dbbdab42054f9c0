package database

// ConflictError is returned when a write violates a uniqueness constraint.
// Both backends translate their driver-specific errors into this type at the
// adapter boundary so callers can match on it without importing drivers.
type ConflictError struct {
	Constraint string
}

func (e ConflictError) Error() string {
	if e.Constraint == "" {
		return "duplicate record"
	}

	return "duplicate record: " + e.Constraint
}

// PoolExhaustedError is returned by the networked backend when no connection
// could be acquired within the acquire budget. The condition is transient and
// the caller may retry.
type PoolExhaustedError struct{}

func (e PoolExhaustedError) Error() string {
	return "database connection pool exhausted, please retry"
}
