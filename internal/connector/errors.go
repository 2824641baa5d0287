package connector

import "fmt"

// AuthenticationError means the vendor rejected the credentials. Terminal;
// the user must fix the configuration.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ServiceUnavailableError means the vendor or the store is unreachable or
// answered with a 5xx class status. Terminal for this run; retry policy
// belongs to the invoking scheduler.
type ServiceUnavailableError struct {
	Err error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("service unavailable: %v", e.Err)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Err }

// MappingError means the vendor payload did not have the expected shape,
// which usually indicates a vendor contract change.
type MappingError struct {
	Field string
	Err   error
}

func (e *MappingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mapping failed on %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("mapping failed on %s", e.Field)
}

func (e *MappingError) Unwrap() error { return e.Err }

// PersistenceError means the store rejected an upsert.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
