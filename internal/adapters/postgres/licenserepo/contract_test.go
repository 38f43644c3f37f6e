package licenserepo

import (
	"testing"

	"github.com/transito-regional/licensing-api/internal/adapters/contracttest"
	pgdriverrepo "github.com/transito-regional/licensing-api/internal/adapters/postgres/driverrepo"
	"github.com/transito-regional/licensing-api/internal/adapters/postgres/testutil"
	driverrepoport "github.com/transito-regional/licensing-api/internal/ports/out/driverrepo"
	licenserepoport "github.com/transito-regional/licensing-api/internal/ports/out/licenserepo"
)

func TestContract_PostgresLicenseRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunLicenseRepo(t,
		func(t *testing.T) (driverrepoport.Repository, func()) {
			t.Helper()
			return pgdriverrepo.NewRepo(pool), nil
		},
		func(t *testing.T) (licenserepoport.Repository, func()) {
			t.Helper()
			return NewRepo(pool), nil
		},
	)
}
