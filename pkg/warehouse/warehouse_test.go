package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/njvoter/gateway/pkg/config"
	"github.com/njvoter/gateway/pkg/queryguard"
	"github.com/njvoter/gateway/pkg/remap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExecutor() *Executor {
	guard := queryguard.New(config.NewAllowlistRegistry([]string{"voters.public.voter_file"}))
	remapper := remap.New(config.DefaultRemapConfig())
	return &Executor{
		guard:   guard,
		remap:   remapper,
		timeout: defaultQueryTimeout,
		rowCap:  defaultRowCap,
	}
}

func TestExecutor_Execute_GuardRejectsBeforeTouchingDB(t *testing.T) {
	e := testExecutor()

	result, errResult := e.Execute(context.Background(), "DROP TABLE voters.public.voter_file", CallerContext{})

	require.Nil(t, result)
	require.NotNil(t, errResult)
	assert.Equal(t, KindGuardReject, errResult.Kind)
}

func TestExecutor_Execute_OffAllowlistIsGuardReject(t *testing.T) {
	e := testExecutor()

	result, errResult := e.Execute(context.Background(), "SELECT * FROM voters.public.secret", CallerContext{})

	require.Nil(t, result)
	require.NotNil(t, errResult)
	assert.Equal(t, KindGuardReject, errResult.Kind)
}

func TestErrorResult_Error(t *testing.T) {
	err := &ErrorResult{Kind: KindTimeout, Detail: "deadline exceeded"}

	assert.Equal(t, "timeout: deadline exceeded", err.Error())
}

func TestCoerceValue(t *testing.T) {
	ts := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-01-15T12:00:00Z", coerceValue(ts))
	assert.Equal(t, "hello", coerceValue([]byte("hello")))
	assert.Equal(t, int64(42), coerceValue(int64(42)))
}
