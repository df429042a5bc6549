package database

import (
	"context"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/njvoter/gateway/ent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestClient creates a test database client inline (avoiding import cycle with test/database)
func newTestClient(t *testing.T) *Client {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	drv, err := sql.Open(dialect.Postgres, connStr)
	require.NoError(t, err)

	db := drv.DB()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	entClient := ent.NewClient(ent.Driver(drv))

	err = entClient.Schema.Create(ctx)
	require.NoError(t, err)

	err = CreateGINIndexes(ctx, drv)
	require.NoError(t, err)

	client := NewClientFromEnt(entClient, db)

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func TestDatabaseClient_ConnectionPool(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	err := client.DB().PingContext(ctx)
	require.NoError(t, err)

	health, err := Health(ctx, client.DB())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Greater(t, health.MaxOpenConns, 0)
}

func TestFullTextSearch_Messages(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	session, err := client.Session.Create().
		SetID("test-session-1").
		SetUserID("user-1").
		SetName("voter turnout question").
		SetModelID("gemini-2.5-flash").
		Save(ctx)
	require.NoError(t, err)

	_, err = client.Message.Create().
		SetID("msg-1").
		SetSessionID(session.ID).
		SetSequenceNumber(1).
		SetRole("user").
		SetText("What is the turnout among registered Democrats in Essex county?").
		Save(ctx)
	require.NoError(t, err)

	_, err = client.Message.Create().
		SetID("msg-2").
		SetSessionID(session.ID).
		SetSequenceNumber(2).
		SetRole("assistant").
		SetText("Essex county shows high registration but moderate mail-in turnout.").
		Save(ctx)
	require.NoError(t, err)

	rows, err := client.DB().QueryContext(ctx,
		`SELECT message_id FROM messages
		WHERE to_tsvector('english', text) @@ to_tsquery('english', $1)`,
		"turnout & democrats",
	)
	require.NoError(t, err)
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}

	assert.Equal(t, []string{"msg-1"}, ids)
}

func TestFullTextSearch_SavedQueries(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.SavedQuery.Create().
		SetID("list-1").
		SetOwnerUserID("user-1").
		SetName("Essex county Democrats").
		SetDescription("Registered Democrats in Essex county who voted in the last primary").
		SetSQLText("SELECT id FROM voters.public.voter_file WHERE county = 'ESSEX'").
		Save(ctx)
	require.NoError(t, err)

	_, err = client.SavedQuery.Create().
		SetID("list-2").
		SetOwnerUserID("user-1").
		SetName("Bergen county independents").
		SetDescription("Unaffiliated voters in Bergen county near Hackensack").
		SetSQLText("SELECT id FROM voters.public.voter_file WHERE county = 'BERGEN'").
		Save(ctx)
	require.NoError(t, err)

	rows, err := client.DB().QueryContext(ctx,
		`SELECT list_id FROM saved_queries
		WHERE to_tsvector('english', COALESCE(name, '') || ' ' || COALESCE(description, ''))
		@@ to_tsquery('english', $1)`,
		"essex & primary",
	)
	require.NoError(t, err)
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}

	assert.Equal(t, []string{"list-1"}, ids)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Host:         "localhost",
				Port:         5432,
				User:         "test",
				Password:     "test",
				Database:     "test",
				SSLMode:      "disable",
				MaxOpenConns: 10,
				MaxIdleConns: 5,
			},
			wantErr: false,
		},
		{
			name: "missing password",
			cfg: Config{
				Host:         "localhost",
				Port:         5432,
				User:         "test",
				Password:     "",
				Database:     "test",
				MaxOpenConns: 10,
				MaxIdleConns: 5,
			},
			wantErr: true,
		},
		{
			name: "idle conns exceed max conns",
			cfg: Config{
				Host:         "localhost",
				Port:         5432,
				User:         "test",
				Password:     "test",
				Database:     "test",
				MaxOpenConns: 5,
				MaxIdleConns: 10,
			},
			wantErr: true,
		},
		{
			name: "zero max open conns",
			cfg: Config{
				Host:         "localhost",
				Port:         5432,
				User:         "test",
				Password:     "test",
				Database:     "test",
				MaxOpenConns: 0,
				MaxIdleConns: 0,
			},
			wantErr: true,
		},
		{
			name: "negative idle conns",
			cfg: Config{
				Host:         "localhost",
				Port:         5432,
				User:         "test",
				Password:     "test",
				Database:     "test",
				MaxOpenConns: 10,
				MaxIdleConns: -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
