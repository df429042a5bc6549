// Package warehouse implements the Query Executor (§4.C): the sole path
// by which SQL reaches the analytical warehouse, gated by the Query
// Guard and rewritten by the Field Remapper before submission.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/snowflakedb/gosnowflake" // registers the "snowflake" driver

	"github.com/njvoter/gateway/pkg/config"
	"github.com/njvoter/gateway/pkg/queryguard"
	"github.com/njvoter/gateway/pkg/remap"
)

// ErrorKind classifies a failed Execute call.
type ErrorKind string

const (
	KindGuardReject ErrorKind = "guard_reject"
	KindBackend     ErrorKind = "backend"
	KindTimeout     ErrorKind = "timeout"
)

// ErrorResult is returned by Execute on any failure.
type ErrorResult struct {
	Kind   ErrorKind
	Detail string
}

func (e *ErrorResult) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// QueryResult is returned by Execute on success.
type QueryResult struct {
	Rows         []map[string]any
	RowCount     int
	Truncated    bool
	ElapsedMS    int64
	OriginalSQL  string
	EffectiveSQL string
}

const (
	defaultQueryTimeout = 600 * time.Second
	defaultRowCap       = 1_000_000
)

// Executor submits guarded, remapped SQL to the warehouse.
type Executor struct {
	db      *sql.DB
	guard   *queryguard.Guard
	remap   *remap.Remapper
	cfg     *config.WarehouseConfig
	timeout time.Duration
	rowCap  int
}

// New opens a warehouse connection pool per cfg and wires in the guard
// and remapper every call to Execute must pass through.
func New(cfg *config.WarehouseConfig, guard *queryguard.Guard, remapper *remap.Remapper) (*Executor, error) {
	dsn := fmt.Sprintf("%s/%s/%s?warehouse=%s&role=%s",
		cfg.Account, cfg.Database, cfg.Schema, cfg.Warehouse, roleFromEnv(cfg.RoleEnv))

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &Executor{
		db:      db,
		guard:   guard,
		remap:   remapper,
		cfg:     cfg,
		timeout: defaultQueryTimeout,
		rowCap:  defaultRowCap,
	}, nil
}

func roleFromEnv(env string) string {
	if env == "" {
		return ""
	}
	return env
}

// Close releases the underlying connection pool.
func (e *Executor) Close() error {
	return e.db.Close()
}

// CallerContext identifies who issued the query, for the warehouse's
// query tag/label and audit trail.
type CallerContext struct {
	UserID    string
	SessionID string
	Purpose   string // e.g. "chat_tool_call", "generate_sql", "campaign_send"
}

// Execute runs sql through the Query Guard and Field Remapper, then
// submits it to the warehouse with a row cap and hard timeout, per §4.C.
func (e *Executor) Execute(ctx context.Context, sqlText string, caller CallerContext) (*QueryResult, *ErrorResult) {
	guardResult := e.guard.Validate(sqlText)
	if !guardResult.OK {
		return nil, &ErrorResult{Kind: KindGuardReject, Detail: guardResult.Detail}
	}

	remapResult := e.remap.Apply(guardResult.EffectiveSQL)

	queryCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	rows, err := e.db.QueryContext(queryCtx, remapResult.EffectiveSQL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ErrorResult{Kind: KindTimeout, Detail: err.Error()}
		}
		return nil, &ErrorResult{Kind: KindBackend, Detail: err.Error()}
	}
	defer rows.Close()

	result, err := e.collectRows(rows, remapResult)
	if err != nil {
		return nil, &ErrorResult{Kind: KindBackend, Detail: err.Error()}
	}
	result.ElapsedMS = time.Since(start).Milliseconds()

	return result, nil
}

func (e *Executor) collectRows(rows *sql.Rows, remapResult remap.Result) (*QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &QueryResult{
		OriginalSQL:  remapResult.OriginalSQL,
		EffectiveSQL: remapResult.EffectiveSQL,
	}

	for rows.Next() {
		if len(result.Rows) >= e.rowCap {
			result.Truncated = true
			// Drain the cursor so driver resources are released cleanly;
			// warehouse-side row count is unavailable without a second
			// query, so truncation is detected by exceeding the cap.
			for rows.Next() {
			}
			break
		}

		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = coerceValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// coerceValue normalizes warehouse-native types per §4.C step 5:
// arbitrary-precision numerics to float64, date/time to ISO-8601 strings,
// everything else (including geography, left opaque) passed through.
func coerceValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339)
	case []byte:
		return string(t)
	default:
		return t
	}
}
