package repositories

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"relay-service/internal/db"
)

// testDB is nil when no container runtime is available; tests then skip.
var testDB *sqlx.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := startPostgres(ctx)
	if err != nil {
		log.Printf("postgres container unavailable, repository tests will skip: %v", err)
		os.Exit(m.Run())
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable", "application_name=test")
	if err == nil {
		testDB, err = db.Connect(ctx, dsn, zerolog.Nop())
	}
	if err != nil {
		log.Printf("failed to prepare database: %v", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	testDB.Close()
	if err := container.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func startPostgres(ctx context.Context) (c *postgres.PostgresContainer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("container runtime: %v", r)
		}
	}()
	return postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("relay"),
		postgres.WithUsername("relay"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
}

// requireDB skips without a database and empties every table after the test.
func requireDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres container not available")
	}
	t.Cleanup(func() {
		_, err := testDB.ExecContext(context.Background(), `TRUNCATE TABLE group_messages, group_members, chat_groups, messages, nicknames, blocked_users, users RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
	})
	return testDB
}

func seedUser(t *testing.T, userID, displayName string) {
	t.Helper()
	_, err := testDB.ExecContext(context.Background(), `INSERT INTO users (user_id, public_key, display_name) VALUES ($1, $2, $3)`, userID, "pk-"+userID, displayName)
	require.NoError(t, err)
}
