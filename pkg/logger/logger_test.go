package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry), buf.String())
	return entry
}

func TestErrorCarriesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: "debug", Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithBookingID(ctx, 42)
	log.Error(ctx, "quote failed", errors.New("boom"))

	entry := decodeLine(t, buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.EqualValues(t, 42, entry["booking_id"])
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "stack")
}

func TestFieldsDoNotLeakIntoParentContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})

	parent := log.WithAdminID(context.Background(), "7")
	_ = log.WithField(parent, "step", "quote")
	log.Info(parent, "done")

	entry := decodeLine(t, buf)
	assert.Equal(t, "7", entry["admin_id"])
	assert.NotContains(t, entry, "step")
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "api", Output: buf, WarnStack: true}).Warn(context.Background(), "slow")
	assert.Contains(t, buf.String(), `"stack"`)

	buf.Reset()
	New(Options{ServiceName: "api", Output: buf}).Warn(context.Background(), "slow")
	assert.NotContains(t, buf.String(), `"stack"`)
}

func TestLevelFiltersDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})
	log.Debug(context.Background(), "hidden")
	assert.Empty(t, buf.String())

	log.Info(context.Background(), "shown")
	assert.Contains(t, buf.String(), `"level":"info"`)

	buf.Reset()
	New(Options{ServiceName: "api", Level: "warn", Output: buf}).Info(context.Background(), "quiet")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
}
