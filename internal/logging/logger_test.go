package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, log.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, log.InfoLevel, ParseLevel("chatty"))
}

func TestSentryHookFire(t *testing.T) {
	var captured []*sentry.Event
	hook := &SentryHook{
		levels:  []log.Level{log.ErrorLevel},
		capture: func(e *sentry.Event) { captured = append(captured, e) },
	}

	entry := &log.Entry{
		Level:   log.ErrorLevel,
		Message: "save goal failed",
		Time:    time.Now(),
		Data: log.Fields{
			"user_id":    "user-1",
			log.ErrorKey: errors.New("connection reset"),
		},
	}

	require.NoError(t, hook.Fire(entry))
	require.Len(t, captured, 1)

	event := captured[0]
	assert.Equal(t, sentry.LevelError, event.Level)
	assert.Equal(t, "save goal failed", event.Message)
	assert.Equal(t, "user-1", event.Extra["user_id"])
	require.Len(t, event.Exception, 1)
	assert.Equal(t, "connection reset", event.Exception[0].Value)
	assert.Equal(t, []log.Level{log.ErrorLevel}, hook.Levels())
}
