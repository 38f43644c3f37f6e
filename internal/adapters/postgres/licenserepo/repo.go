package licenserepo

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
	"github.com/transito-regional/licensing-api/internal/ports/out/licenserepo"
)

// Repo is a Postgres implementation of licenserepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const licenseColumns = `
	id,
	driver_id,
	type,
	category,
	status,
	status_reason,
	issue_date,
	expiry_date,
	points,
	restrictions,
	renewed,
	created_at,
	updated_at
`

func (r *Repo) Create(ctx context.Context, l licenserepo.License) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(l.ID))
	if err != nil {
		return fmt.Errorf("invalid license id: %w", err)
	}
	driverID, err := uuid.Parse(string(l.DriverID))
	if err != nil {
		return fmt.Errorf("invalid driver id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO licenses (`+licenseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		id,
		driverID,
		string(l.Type),
		string(l.Category),
		string(l.Status),
		l.StatusReason,
		dateVal(l.IssueDate),
		dateVal(l.ExpiryDate),
		l.Points,
		l.Restrictions,
		l.Renewed,
		l.CreatedAt.UTC(),
		l.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return licenserepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, l licenserepo.License) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(l.ID))
	if err != nil {
		return fmt.Errorf("invalid license id: %w", err)
	}
	driverID, err := uuid.Parse(string(l.DriverID))
	if err != nil {
		return fmt.Errorf("invalid driver id: %w", err)
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE licenses
		SET driver_id = $2,
		    type = $3,
		    category = $4,
		    status = $5,
		    status_reason = $6,
		    issue_date = $7,
		    expiry_date = $8,
		    points = $9,
		    restrictions = $10,
		    renewed = $11,
		    updated_at = $12
		WHERE id = $1
	`,
		id,
		driverID,
		string(l.Type),
		string(l.Category),
		string(l.Status),
		l.StatusReason,
		dateVal(l.IssueDate),
		dateVal(l.ExpiryDate),
		l.Points,
		l.Restrictions,
		l.Renewed,
		l.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return licenserepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.LicenseID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return licenserepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM licenses WHERE id = $1`, uid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return licenserepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.LicenseID) (licenserepo.License, error) {
	if r.pool == nil {
		return licenserepo.License{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return licenserepo.License{}, licenserepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+licenseColumns+` FROM licenses WHERE id = $1`, uid)
	return scanLicense(row)
}

func (r *Repo) ExistsByID(ctx context.Context, id domain.LicenseID) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return false, nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM licenses WHERE id = $1)`, uid).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Repo) ListByDriver(ctx context.Context, driverID domain.DriverID) ([]licenserepo.License, error) {
	uid, err := uuid.Parse(string(driverID))
	if err != nil {
		return []licenserepo.License{}, nil
	}
	return r.query(ctx, `WHERE driver_id = $1`, uid)
}

func (r *Repo) ListByType(ctx context.Context, t domain.LicenseType) ([]licenserepo.License, error) {
	return r.query(ctx, `WHERE type = $1`, string(t))
}

func (r *Repo) ListByCategory(ctx context.Context, c domain.VehicleCategory) ([]licenserepo.License, error) {
	return r.query(ctx, `WHERE category = $1`, string(c))
}

func (r *Repo) ListIssuedBetween(ctx context.Context, from, to time.Time) ([]licenserepo.License, error) {
	return r.query(ctx, `WHERE issue_date BETWEEN $1 AND $2`, dateVal(from), dateVal(to))
}

func (r *Repo) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]licenserepo.License, error) {
	return r.query(ctx, `WHERE expiry_date BETWEEN $1 AND $2`, dateVal(from), dateVal(to))
}

func (r *Repo) ListAll(ctx context.Context) ([]licenserepo.License, error) {
	return r.query(ctx, ``)
}

func (r *Repo) query(ctx context.Context, where string, args ...any) ([]licenserepo.License, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+licenseColumns+`
		FROM licenses
		`+where+`
		ORDER BY issue_date ASC, created_at ASC, id ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]licenserepo.License, 0)
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanLicense(row interface {
	Scan(dest ...any) error
}) (licenserepo.License, error) {
	var (
		id           uuid.UUID
		driverID     uuid.UUID
		typ          string
		category     string
		status       string
		statusReason *string
		issueDate    pgtype.Date
		expiryDate   pgtype.Date
		points       int
		restrictions *string
		renewed      bool
		createdAt    time.Time
		updatedAt    time.Time
	)
	if err := row.Scan(
		&id,
		&driverID,
		&typ,
		&category,
		&status,
		&statusReason,
		&issueDate,
		&expiryDate,
		&points,
		&restrictions,
		&renewed,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return licenserepo.License{}, licenserepo.ErrNotFound
		}
		return licenserepo.License{}, err
	}
	return licenserepo.License{
		ID:           domain.LicenseID(id.String()),
		DriverID:     domain.DriverID(driverID.String()),
		Type:         domain.LicenseType(typ),
		Category:     domain.VehicleCategory(category),
		Status:       domain.LicenseStatus(status),
		StatusReason: statusReason,
		IssueDate:    dateTime(issueDate),
		ExpiryDate:   dateTime(expiryDate),
		Points:       points,
		Restrictions: restrictions,
		Renewed:      renewed,
		CreatedAt:    createdAt.UTC(),
		UpdatedAt:    updatedAt.UTC(),
	}, nil
}

func dateVal(t time.Time) pgtype.Date {
	return pgtype.Date{Time: domain.DateOnly(t), Valid: true}
}

func dateTime(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return domain.DateOnly(d.Time)
}
