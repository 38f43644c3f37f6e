package examrepo

import (
	"testing"

	"github.com/transito-regional/licensing-api/internal/adapters/contracttest"
	memdriverrepo "github.com/transito-regional/licensing-api/internal/adapters/memory/driverrepo"
	mementityrepo "github.com/transito-regional/licensing-api/internal/adapters/memory/entityrepo"
	driverrepoport "github.com/transito-regional/licensing-api/internal/ports/out/driverrepo"
	entityrepoport "github.com/transito-regional/licensing-api/internal/ports/out/entityrepo"
	examrepoport "github.com/transito-regional/licensing-api/internal/ports/out/examrepo"
)

func TestContract_MemoryExamRepo(t *testing.T) {
	t.Parallel()

	contracttest.RunExamRepo(t,
		func(t *testing.T) (driverrepoport.Repository, func()) {
			t.Helper()
			return memdriverrepo.NewRepo(), nil
		},
		func(t *testing.T) (entityrepoport.Repository, func()) {
			t.Helper()
			return mementityrepo.NewRepo(), nil
		},
		func(t *testing.T) (examrepoport.Repository, func()) {
			t.Helper()
			return NewRepo(), nil
		},
	)
}
