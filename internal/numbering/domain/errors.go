package domain

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrConstraintViolation = errors.New("number already exists in domain")
	ErrNotFound            = errors.New("record not found")
	ErrMalformedNumber     = errors.New("malformed number")
	ErrUnknownDomain       = errors.New("unknown domain")
	ErrNoReachableDomain   = errors.New("no domain store reachable")
)

// StoreUnavailableError is returned when a partition cannot be opened or read.
// Scans treat the domain as empty for the current pass.
type StoreUnavailableError struct {
	Domain string
	Err    error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("domain %s: store unavailable: %v", e.Domain, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func (e *StoreUnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }

// ConstraintViolationError is returned when a write would duplicate a number
// inside one domain.
type ConstraintViolationError struct {
	Domain string
	Number string
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("domain %s: number %s already exists", e.Domain, e.Number)
}

func (e *ConstraintViolationError) Is(target error) bool { return target == ErrConstraintViolation }

// NotFoundError is returned when a record vanished between scan and write.
type NotFoundError struct {
	Domain   string
	RecordID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("domain %s: record %d not found", e.Domain, e.RecordID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// MalformedNumberError marks stored data that does not follow the number pattern.
// It never aborts an operation; malformed numbers are skipped when computing maxima.
type MalformedNumberError struct {
	Number string
}

func (e *MalformedNumberError) Error() string {
	return fmt.Sprintf("malformed number %q", e.Number)
}

func (e *MalformedNumberError) Is(target error) bool { return target == ErrMalformedNumber }
