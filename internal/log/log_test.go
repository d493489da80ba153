package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat("json")
	SetLevel(LevelInfo)

	Debug("hidden", "k", "v")
	assert.Empty(t, buf.String())

	Error("store failed", errors.New("boom"), "id", 7, 42, "skipped", "dangling")
	out := buf.String()
	assert.Contains(t, out, `"message":"store failed"`)
	assert.Contains(t, out, `"err":"boom"`)
	assert.Contains(t, out, `"id":7`)
	assert.NotContains(t, out, "skipped")
	assert.NotContains(t, out, "dangling")
}
