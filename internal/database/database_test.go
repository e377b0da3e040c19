package database

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/czczc/inspire-papers-viewer/internal/config"
)

// mockDBTX is a minimal DBTX used to pin down the interface shape.
type mockDBTX struct{}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockDBTX) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

func TestDBTX_Interface(t *testing.T) {
	t.Run("hand-written implementation satisfies DBTX", func(t *testing.T) {
		var _ DBTX = (*mockDBTX)(nil)
	})

	t.Run("pgxmock pool satisfies DBTX", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		var dbtx DBTX = mock
		mock.ExpectExec("SELECT 1").WillReturnResult(pgxmock.NewResult("SELECT", 1))

		tag, err := dbtx.Exec(context.Background(), "SELECT 1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), tag.RowsAffected())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDatabaseConfig_DSN_Parseable(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:           "localhost",
		Port:           5432,
		User:           "user@domain",
		Password:       "pass/word",
		Name:           "inspire_papers",
		SSLMode:        config.SSLModeDisable,
		ConnectTimeout: 10 * time.Second,
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "user@domain", poolCfg.ConnConfig.User)
	assert.Equal(t, "pass/word", poolCfg.ConnConfig.Password)
	assert.Equal(t, "inspire_papers", poolCfg.ConnConfig.Database)
	assert.Equal(t, 10*time.Second, poolCfg.ConnConfig.ConnectTimeout)
}

func TestCheckSchema(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
		errText string
	}{
		{
			name: "table present",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT EXISTS .*information_schema.tables`).
					WithArgs(SchemaTable).
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
			},
		},
		{
			name: "table missing",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT EXISTS .*information_schema.tables`).
					WithArgs(SchemaTable).
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
			},
			wantErr: ErrSchemaMissing,
		},
		{
			name: "query fails",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT EXISTS .*information_schema.tables`).
					WithArgs(SchemaTable).
					WillReturnError(errors.New("permission denied"))
			},
			errText: "check schema: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.setup(mock)

			err = checkSchema(context.Background(), mock)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				assert.EqualError(t, err, tt.errText)
			default:
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHealthStatus_JSON(t *testing.T) {
	t.Run("error field included when populated", func(t *testing.T) {
		hs := HealthStatus{Status: "unhealthy", Error: ErrSchemaMissing.Error(), MaxConns: 10}

		data, err := json.Marshal(hs)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"error":"small_papers table missing; run migrations"`)
		assert.Contains(t, string(data), `"schema_ready":false`)
		assert.Contains(t, string(data), `"max_conns":10`)
	})

	t.Run("empty error field is omitted", func(t *testing.T) {
		data, err := json.Marshal(HealthStatus{Status: "healthy"})
		require.NoError(t, err)
		assert.NotContains(t, string(data), `"error"`)
		assert.Contains(t, string(data), `"status":"healthy"`)
	})
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping network test in short mode")
	}

	// 192.0.2.1 is TEST-NET-1 (RFC 5737), guaranteed unroutable.
	cfg := &config.DatabaseConfig{
		Host:              "192.0.2.1",
		Port:              5432,
		Name:              "testdb",
		User:              "user",
		Password:          "pass",
		SSLMode:           config.SSLModeDisable,
		MaxConns:          2,
		MinConns:          0,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: 30 * time.Second,
		ConnectTimeout:    2 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := New(ctx, cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, db)
}

func TestDB_CloseNilPool(t *testing.T) {
	nilDB := &DB{}
	assert.NotPanics(t, func() {
		nilDB.Close()
	})
}
