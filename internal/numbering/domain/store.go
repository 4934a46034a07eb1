package domain

import "context"

// Store gives uniform access to one partition's number column.
// Implementations may use SQLite, in-memory storage, or other backends.
type Store interface {
	// Descriptor returns the static description of the partition.
	Descriptor() DomainDescriptor

	// ListNumbers returns every record with a non-empty number, in row order.
	// Returns StoreUnavailableError if the partition cannot be opened or read.
	ListNumbers(ctx context.Context) ([]NumberRecord, error)

	// UpdateNumber rewrites the number of exactly one record, leaving timestamps untouched.
	// Returns ConstraintViolationError if newNumber already exists in the domain and
	// NotFoundError if recordID is absent.
	UpdateNumber(ctx context.Context, recordID int64, newNumber string) error

	// Insert persists a new numbered record and returns its identifier.
	// Returns ConstraintViolationError if the number already exists in the domain.
	Insert(ctx context.Context, rec NewRecord) (int64, error)
}
