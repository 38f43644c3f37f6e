package examrepo

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
	"github.com/transito-regional/licensing-api/internal/ports/out/examrepo"
)

// Repo is a Postgres implementation of examrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const examColumns = `
	id,
	type,
	date,
	result,
	entity_id,
	driver_id,
	examiner,
	created_at,
	updated_at
`

func (r *Repo) Create(ctx context.Context, e examrepo.Exam) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(e.ID))
	if err != nil {
		return fmt.Errorf("invalid exam id: %w", err)
	}
	entityID, err := uuid.Parse(string(e.EntityID))
	if err != nil {
		return fmt.Errorf("invalid entity id: %w", err)
	}
	driverID, err := uuid.Parse(string(e.DriverID))
	if err != nil {
		return fmt.Errorf("invalid driver id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO exams (`+examColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		id,
		string(e.Type),
		dateVal(e.Date),
		string(e.Result),
		entityID,
		driverID,
		e.Examiner,
		e.CreatedAt.UTC(),
		e.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return examrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, e examrepo.Exam) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(e.ID))
	if err != nil {
		return fmt.Errorf("invalid exam id: %w", err)
	}
	entityID, err := uuid.Parse(string(e.EntityID))
	if err != nil {
		return fmt.Errorf("invalid entity id: %w", err)
	}
	driverID, err := uuid.Parse(string(e.DriverID))
	if err != nil {
		return fmt.Errorf("invalid driver id: %w", err)
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE exams
		SET type = $2,
		    date = $3,
		    result = $4,
		    entity_id = $5,
		    driver_id = $6,
		    examiner = $7,
		    updated_at = $8
		WHERE id = $1
	`,
		id,
		string(e.Type),
		dateVal(e.Date),
		string(e.Result),
		entityID,
		driverID,
		e.Examiner,
		e.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return examrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.ExamID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return examrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, uid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return examrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ExamID) (examrepo.Exam, error) {
	if r.pool == nil {
		return examrepo.Exam{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return examrepo.Exam{}, examrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+examColumns+` FROM exams WHERE id = $1`, uid)
	return scanExam(row)
}

func (r *Repo) FindByDriverAndType(ctx context.Context, driverID domain.DriverID, t domain.ExamType) ([]examrepo.Exam, error) {
	uid, err := uuid.Parse(string(driverID))
	if err != nil {
		return []examrepo.Exam{}, nil
	}
	return r.query(ctx, `WHERE driver_id = $1 AND type = $2`, uid, string(t))
}

func (r *Repo) ListByDriver(ctx context.Context, driverID domain.DriverID) ([]examrepo.Exam, error) {
	uid, err := uuid.Parse(string(driverID))
	if err != nil {
		return []examrepo.Exam{}, nil
	}
	return r.query(ctx, `WHERE driver_id = $1`, uid)
}

func (r *Repo) CountByResult(ctx context.Context, res domain.ExamResult) (int, error) {
	return r.count(ctx, `WHERE result = $1`, string(res))
}

func (r *Repo) CountByType(ctx context.Context, t domain.ExamType) (int, error) {
	return r.count(ctx, `WHERE type = $1`, string(t))
}

func (r *Repo) CountByTypeAndResult(ctx context.Context, t domain.ExamType, res domain.ExamResult) (int, error) {
	return r.count(ctx, `WHERE type = $1 AND result = $2`, string(t), string(res))
}

func (r *Repo) CountByEntity(ctx context.Context, entityID domain.EntityID) (int, error) {
	uid, err := uuid.Parse(string(entityID))
	if err != nil {
		return 0, nil
	}
	return r.count(ctx, `WHERE entity_id = $1`, uid)
}

func (r *Repo) CountByEntityAndResult(ctx context.Context, entityID domain.EntityID, res domain.ExamResult) (int, error) {
	uid, err := uuid.Parse(string(entityID))
	if err != nil {
		return 0, nil
	}
	return r.count(ctx, `WHERE entity_id = $1 AND result = $2`, uid, string(res))
}

func (r *Repo) query(ctx context.Context, where string, args ...any) ([]examrepo.Exam, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+examColumns+`
		FROM exams
		`+where+`
		ORDER BY date ASC, created_at ASC, id ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]examrepo.Exam, 0)
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) count(ctx context.Context, where string, args ...any) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM exams `+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanExam(row interface {
	Scan(dest ...any) error
}) (examrepo.Exam, error) {
	var (
		id        uuid.UUID
		typ       string
		date      pgtype.Date
		result    string
		entityID  uuid.UUID
		driverID  uuid.UUID
		examiner  *string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(
		&id,
		&typ,
		&date,
		&result,
		&entityID,
		&driverID,
		&examiner,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return examrepo.Exam{}, examrepo.ErrNotFound
		}
		return examrepo.Exam{}, err
	}
	return examrepo.Exam{
		ID:        domain.ExamID(id.String()),
		Type:      domain.ExamType(typ),
		Date:      dateTime(date),
		Result:    domain.ExamResult(result),
		EntityID:  domain.EntityID(entityID.String()),
		DriverID:  domain.DriverID(driverID.String()),
		Examiner:  examiner,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
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
