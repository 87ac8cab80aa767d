package engine

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogHandler_FatalExits(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var exitCode int
	exited := false
	h := NewLogHandler(logger, func(code int) {
		exitCode = code
		exited = true
	})

	h(SeverityFatal, "database is locked")

	require.True(t, exited)
	assert.Equal(t, 1, exitCode)
	assert.Contains(t, buf.String(), "database is locked")
}

func TestNewLogHandler_AdvisorySeveritiesDoNotExit(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := NewLogHandler(logger, func(int) {
		t.Fatal("advisory severity must not exit")
	})

	for severity := 1; severity <= 5; severity++ {
		h(severity, "advisory")
	}
}
