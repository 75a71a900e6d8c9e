package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aoideee/libraryhub/internal/data"
	"github.com/aoideee/libraryhub/internal/store/postgres"
	"github.com/aoideee/libraryhub/internal/store/storetest"
)

const dsnEnv = "LIBRARYHUB_TEST_POSTGRES_DSN"

// Test_Store_SatisfiesContracts empties the tables before each subtest.
func Test_Store_SatisfiesContracts(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := postgres.Open(ctx, postgres.Config{
		DSN:          dsn,
		MaxOpenConns: 10,
		MaxIdleConns: 10,
		MaxIdleTime:  time.Minute,
		PingDeadline: 5 * time.Second,
	})
	require.NoError(t, err)
	defer store.Close(context.Background())

	storetest.Run(t, func(t *testing.T) data.Models {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, store.Truncate(ctx))
		return store.Models()
	})
}
