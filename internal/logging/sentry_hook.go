package logging

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

// SentryHook forwards log entries at the configured levels to Sentry.
type SentryHook struct {
	levels  []log.Level
	capture func(*sentry.Event)
}

// NewSentryHook constructs a hook that reports to the current Sentry hub.
func NewSentryHook(levels []log.Level) *SentryHook {
	return &SentryHook{
		levels: levels,
		capture: func(event *sentry.Event) {
			sentry.CaptureEvent(event)
		},
	}
}

// Levels implements log.Hook.
func (h *SentryHook) Levels() []log.Level {
	return h.levels
}

// Fire implements log.Hook.
func (h *SentryHook) Fire(entry *log.Entry) error {
	event := sentry.NewEvent()
	event.Level = sentryLevel(entry.Level)
	event.Message = entry.Message
	event.Timestamp = entry.Time

	extra := make(map[string]interface{}, len(entry.Data))
	for key, value := range entry.Data {
		if err, ok := value.(error); ok && key == log.ErrorKey {
			event.Exception = append(event.Exception, sentry.Exception{
				Type:  errorType(err),
				Value: err.Error(),
			})
			continue
		}
		extra[key] = value
	}
	event.Extra = extra

	h.capture(event)
	return nil
}

func errorType(err error) string {
	return fmt.Sprintf("%T", err)
}

func sentryLevel(level log.Level) sentry.Level {
	switch level {
	case log.PanicLevel, log.FatalLevel:
		return sentry.LevelFatal
	case log.ErrorLevel:
		return sentry.LevelError
	case log.WarnLevel:
		return sentry.LevelWarning
	case log.InfoLevel:
		return sentry.LevelInfo
	default:
		return sentry.LevelDebug
	}
}
