package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWritesPlainLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Info("booking", "ticket reserved")
	l.LogTicket("CHECKIN", "tkt-1", "gate A")
	l.LogSecurity("TOKEN", "rejected")

	out := buf.String()
	assert.Contains(t, out, "INFO  [BOOKING   ] ticket reserved")
	assert.Contains(t, out, "[TICKET    ] [CHECKIN] tkt-1 - gate A")
	assert.Contains(t, out, "WARN  [SECURITY  ] [TOKEN] rejected")
	assert.Contains(t, out, "logger_test.go")
}

func TestNewWithNilWriterDiscards(t *testing.T) {
	l := New(nil)
	assert.NotPanics(t, func() {
		l.Error("DATABASE", "ignored")
		l.Close()
	})
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.SetLevel(WARN)

	l.Debug("API", "hidden debug")
	l.Info("API", "hidden info")
	l.Warn("API", "shown warning")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown warning")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, ERROR, ParseLevel(" ERROR "))
	assert.Equal(t, INFO, ParseLevel(""))
	assert.Equal(t, INFO, ParseLevel("verbose"))
	assert.Equal(t, "WARN", WARN.String())
}
