package entityrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/transito-regional/licensing-api/internal/adapters/postgres"
	"github.com/transito-regional/licensing-api/internal/domain"
	"github.com/transito-regional/licensing-api/internal/ports/out/entityrepo"
)

// Repo is a Postgres implementation of entityrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, e entityrepo.Entity) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(e.ID))
	if err != nil {
		return fmt.Errorf("invalid entity id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO entities (id, name, type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		id,
		e.Name,
		string(e.Type),
		e.CreatedAt.UTC(),
		e.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return entityrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.EntityID) (entityrepo.Entity, error) {
	if r.pool == nil {
		return entityrepo.Entity{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return entityrepo.Entity{}, entityrepo.ErrNotFound
	}

	var (
		name      string
		typ       string
		createdAt time.Time
		updatedAt time.Time
	)
	err = r.pool.QueryRow(ctx, `
		SELECT name, type, created_at, updated_at
		FROM entities
		WHERE id = $1
	`, uid).Scan(&name, &typ, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entityrepo.Entity{}, entityrepo.ErrNotFound
		}
		return entityrepo.Entity{}, err
	}
	return entityrepo.Entity{
		ID:        id,
		Name:      name,
		Type:      domain.EntityType(typ),
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
	}, nil
}

func (r *Repo) Exists(ctx context.Context, id domain.EntityID) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return false, nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM entities WHERE id = $1)`, uid).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Repo) TypeOf(ctx context.Context, id domain.EntityID) (domain.EntityType, error) {
	if r.pool == nil {
		return "", errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return "", entityrepo.ErrNotFound
	}
	var typ string
	if err := r.pool.QueryRow(ctx, `SELECT type FROM entities WHERE id = $1`, uid).Scan(&typ); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", entityrepo.ErrNotFound
		}
		return "", err
	}
	return domain.EntityType(typ), nil
}
