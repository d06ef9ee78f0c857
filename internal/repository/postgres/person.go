package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridebook/internal/domain"
)

// PersonRepository is a PostgreSQL implementation of repository.PersonRepository.
type PersonRepository struct {
	q Querier
}

const personColumns = `person_id, name, email, phone, created_at`

// GetByEmail retrieves a person by email.
func (r *PersonRepository) GetByEmail(ctx context.Context, email string) (*domain.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE email = $1`
	return scanPerson(r.q.QueryRowContext(ctx, query, email))
}

// GetByName retrieves the oldest person with the given name.
func (r *PersonRepository) GetByName(ctx context.Context, name string) (*domain.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE name = $1 ORDER BY person_id LIMIT 1`
	return scanPerson(r.q.QueryRowContext(ctx, query, name))
}

// InsertIfAbsent inserts the person unless the email already exists.
func (r *PersonRepository) InsertIfAbsent(ctx context.Context, person *domain.Person) (int64, bool, error) {
	query := `
		INSERT INTO people (name, email, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
		RETURNING person_id
	`

	var phone sql.NullString
	if person.Phone != "" {
		phone = sql.NullString{String: person.Phone, Valid: true}
	}

	var id int64
	err := r.q.QueryRowContext(ctx, query, person.Name, person.Email, phone).Scan(&id)
	if err != nil {
		// No row back means the conflict clause fired.
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, mapError(err)
	}
	return id, true, nil
}

// GetAll retrieves all people ordered by name.
func (r *PersonRepository) GetAll(ctx context.Context) ([]*domain.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people ORDER BY name, person_id`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []*domain.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*domain.Person, error) {
	var p domain.Person
	var phone sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &phone, &p.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	p.Phone = phone.String
	return &p, nil
}
