package driverrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/transito-regional/licensing-api/internal/adapters/postgres"
	"github.com/transito-regional/licensing-api/internal/domain"
	"github.com/transito-regional/licensing-api/internal/ports/out/driverrepo"
)

// Repo is a Postgres implementation of driverrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, d driverrepo.Driver) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(d.ID))
	if err != nil {
		return fmt.Errorf("invalid driver id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO drivers (id, document_id, full_name, birth_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		id,
		d.DocumentID,
		d.FullName,
		pgtype.Date{Time: domain.DateOnly(d.BirthDate), Valid: true},
		d.CreatedAt.UTC(),
		d.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return driverrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.DriverID) (driverrepo.Driver, error) {
	if r.pool == nil {
		return driverrepo.Driver{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return driverrepo.Driver{}, driverrepo.ErrNotFound
	}

	var (
		documentID string
		fullName   string
		birthDate  pgtype.Date
		createdAt  time.Time
		updatedAt  time.Time
	)
	err = r.pool.QueryRow(ctx, `
		SELECT document_id, full_name, birth_date, created_at, updated_at
		FROM drivers
		WHERE id = $1
	`, uid).Scan(&documentID, &fullName, &birthDate, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return driverrepo.Driver{}, driverrepo.ErrNotFound
		}
		return driverrepo.Driver{}, err
	}
	return driverrepo.Driver{
		ID:         id,
		DocumentID: documentID,
		FullName:   fullName,
		BirthDate:  domain.DateOnly(birthDate.Time),
		CreatedAt:  createdAt.UTC(),
		UpdatedAt:  updatedAt.UTC(),
	}, nil
}

func (r *Repo) Exists(ctx context.Context, id domain.DriverID) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return false, nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM drivers WHERE id = $1)`, uid).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
