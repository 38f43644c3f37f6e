package examrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/transito-regional/licensing-api/internal/domain"
	"github.com/transito-regional/licensing-api/internal/ports/out/examrepo"
)

// Repo is an in-memory implementation of examrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.ExamID]examrepo.Exam
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.ExamID]examrepo.Exam),
	}
}

func (r *Repo) Create(ctx context.Context, e examrepo.Exam) error {
	_ = ctx
	if e.ID == "" {
		return examrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID]; ok {
		return examrepo.ErrAlreadyExists
	}
	r.byID[e.ID] = cloneExam(e)
	return nil
}

func (r *Repo) Save(ctx context.Context, e examrepo.Exam) error {
	_ = ctx
	if e.ID == "" {
		return examrepo.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[e.ID] = cloneExam(e)
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.ExamID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return examrepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.ExamID) (examrepo.Exam, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return examrepo.Exam{}, examrepo.ErrNotFound
	}
	return cloneExam(e), nil
}

func (r *Repo) FindByDriverAndType(ctx context.Context, driverID domain.DriverID, t domain.ExamType) ([]examrepo.Exam, error) {
	return r.list(ctx, func(e examrepo.Exam) bool {
		return e.DriverID == driverID && e.Type == t
	})
}

func (r *Repo) ListByDriver(ctx context.Context, driverID domain.DriverID) ([]examrepo.Exam, error) {
	return r.list(ctx, func(e examrepo.Exam) bool { return e.DriverID == driverID })
}

func (r *Repo) CountByResult(ctx context.Context, res domain.ExamResult) (int, error) {
	return r.count(ctx, func(e examrepo.Exam) bool { return e.Result == res })
}

func (r *Repo) CountByType(ctx context.Context, t domain.ExamType) (int, error) {
	return r.count(ctx, func(e examrepo.Exam) bool { return e.Type == t })
}

func (r *Repo) CountByTypeAndResult(ctx context.Context, t domain.ExamType, res domain.ExamResult) (int, error) {
	return r.count(ctx, func(e examrepo.Exam) bool { return e.Type == t && e.Result == res })
}

func (r *Repo) CountByEntity(ctx context.Context, entityID domain.EntityID) (int, error) {
	return r.count(ctx, func(e examrepo.Exam) bool { return e.EntityID == entityID })
}

func (r *Repo) CountByEntityAndResult(ctx context.Context, entityID domain.EntityID, res domain.ExamResult) (int, error) {
	return r.count(ctx, func(e examrepo.Exam) bool { return e.EntityID == entityID && e.Result == res })
}

func (r *Repo) list(ctx context.Context, keep func(examrepo.Exam) bool) ([]examrepo.Exam, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]examrepo.Exam, 0)
	for _, e := range r.byID {
		if keep(e) {
			out = append(out, cloneExam(e))
		}
	}
	sortExams(out)
	return out, nil
}

func (r *Repo) count(ctx context.Context, keep func(examrepo.Exam) bool) (int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.byID {
		if keep(e) {
			n++
		}
	}
	return n, nil
}

func cloneExam(e examrepo.Exam) examrepo.Exam {
	cp := e
	cp.Examiner = cloneStringPtr(e.Examiner)
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sortExams(es []examrepo.Exam) {
	// Sorting rule: exam date ascending, then createdAt, then ID.
	sort.Slice(es, func(i, j int) bool {
		a, b := es[i], es[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return string(a.ID) < string(b.ID)
	})
}
