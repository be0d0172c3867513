//go:build integration

package kb

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/autoweb/agent/core"
)

// TestPostgresSink_InsertAndMigrate runs the sink against a real Postgres
// container, exercising the embedded migrations and the JSONB insert path
// that unit tests can't reach without a live server. Run with
// `go test -tags=integration ./kb/...`.
func TestPostgresSink_InsertAndMigrate(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("autoweb"),
		postgres.WithUsername("autoweb"),
		postgres.WithPassword("autoweb"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sink, err := NewPostgresSink(ctx, dsn, &core.NoOpLogger{})
	require.NoError(t, err)
	t.Cleanup(sink.Close)

	docs := []Document{
		{Text: "hello world", Metadata: map[string]string{"source": "unit-test"}},
	}
	require.NoError(t, sink.Insert(ctx, docs))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	var source string
	var payload []byte
	row := pool.QueryRow(ctx, `SELECT source, payload FROM captured_data LIMIT 1`)
	require.NoError(t, row.Scan(&source, &payload))
	require.Equal(t, "unit-test", source)

	var decoded Document
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, "hello world", decoded.Text)
}
