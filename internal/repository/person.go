package repository

import (
	"context"

	"ridebook/internal/domain"
)

// PersonRepository defines the persistence operations for people.
type PersonRepository interface {
	// GetByEmail retrieves a person by email, the natural key.
	GetByEmail(ctx context.Context, email string) (*domain.Person, error)

	// GetByName retrieves the oldest person with the given name.
	GetByName(ctx context.Context, name string) (*domain.Person, error)

	// InsertIfAbsent inserts the person unless the email is taken.
	// It reports inserted=false, without error, when another row already holds the email.
	InsertIfAbsent(ctx context.Context, person *domain.Person) (id int64, inserted bool, err error)

	// GetAll retrieves all people ordered by name.
	GetAll(ctx context.Context) ([]*domain.Person, error)
}
