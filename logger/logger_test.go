package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogrusLogger_EmitsJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := newLogrusLogger("debug", &buf)

	l.Info(context.Background(), "execution record created", map[string]interface{}{
		"execution_id": "EX0001",
	})

	var line map[string]interface{}
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "execution record created", line["msg"])
	assert.Equal(t, "EX0001", line["execution_id"])
	assert.Equal(t, "info", line["level"])
}

func TestLogrusLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newLogrusLogger("warn", &buf)

	l.Debug(context.Background(), "not emitted", nil)
	l.Info(context.Background(), "not emitted either", nil)
	assert.Zero(t, buf.Len())

	l.Warn(context.Background(), "emitted", nil)
	assert.Contains(t, buf.String(), "emitted")
}

func TestLogrusLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newLogrusLogger("chatty", &buf)

	l.Debug(context.Background(), "filtered", nil)
	assert.Zero(t, buf.Len())

	l.Info(context.Background(), "visible", nil)
	assert.Contains(t, buf.String(), "visible")
}

func TestTestLogger_CapturesAndMatches(t *testing.T) {
	l := NewTestLogger()

	l.Warn(context.Background(), "madl store skipped", map[string]interface{}{"method": "LoginPage.sign_in"})
	l.Error(context.Background(), "healing failed", nil)

	captured := l.Captured()
	assert.Len(t, captured, 2)
	assert.Equal(t, "LoginPage.sign_in", captured[0].Fields["method"])

	assert.True(t, l.Logged("warn", "store skipped"))
	assert.True(t, l.Logged("error", "healing"))
	assert.False(t, l.Logged("info", "store skipped"))
}
