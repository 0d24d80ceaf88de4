package integration

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/pmorozov/vidhub/internal/handlers"
	"github.com/pmorozov/vidhub/internal/logger"
	"github.com/pmorozov/vidhub/internal/repository"
	"github.com/pmorozov/vidhub/internal/repository/postgres"
	"github.com/pmorozov/vidhub/internal/service/auth"
	"github.com/pmorozov/vidhub/internal/service/auth/tokenmanager"
	"github.com/pmorozov/vidhub/internal/service/user"
	"github.com/pmorozov/vidhub/internal/testutil"
)

type Services struct {
	AuthService *auth.AuthService
	UserService *user.UserService

	// Direct repository access for assertions on persisted state
	Users repository.UserRepo
}

// RunTx runs the production router over a single database transaction
// that is rolled back when fn returns, so the database stays clean.
func RunTx(dbpool *pgxpool.Pool, t *testing.T, fn func(srvURL string, s Services)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)

		tokenManager, err := tokenmanager.New(tokenmanager.Config{
			AccessSecret:  "test-access-secret",
			RefreshSecret: "test-refresh-secret",
		})
		require.NoError(t, err, "token manager should be created without errors")

		assetStore := &testutil.MemoryAssetStore{}

		as, err := auth.NewService(auth.Config{}, tokenManager, storage.User(), assetStore)
		require.NoError(t, err, "auth service starting error")

		us := user.NewService(storage.User(), storage.Subscription(), storage.History(), assetStore)

		router := handlers.NewRouter(as, us, logger.NewNoOp())

		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(srv.URL, Services{
			AuthService: as,
			UserService: us,
			Users:       storage.User(),
		})
	})
}
