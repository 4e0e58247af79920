// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Params selects level, format and sinks.
type Params struct {
	Level       string
	FormatJSON  bool
	FileName    string
	Environment string
	SentryDSN   string
	ServerName  string
}

// Setup configures the standard logrus logger. The returned func flushes
// buffered sinks and should be deferred by main.
func Setup(params Params) func() {
	if params.FormatJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetLevel(ParseLevel(params.Level))

	flush := func() {}
	if params.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         params.SentryDSN,
			Environment: params.Environment,
			ServerName:  params.ServerName,
		})
		if err != nil {
			log.Errorf("sentry init: %s", err)
		} else {
			log.AddHook(NewSentryHook([]log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel}))
			flush = func() { sentry.Flush(2 * time.Second) }
			log.Info("sentry error reporting enabled")
		}
	}

	if params.FileName == "" {
		log.SetOutput(os.Stdout)
		return flush
	}

	fileName := params.FileName
	if !strings.HasSuffix(fileName, ".log") {
		fileName += ".log"
	}
	rotating := &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    50, // megabytes
		MaxBackups: 10,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotating))
	log.Infof("writing logs to stdout and %s", fileName)

	return func() {
		flush()
		_ = rotating.Close()
	}
}

// ParseLevel maps a level name to a logrus level, defaulting to info.
func ParseLevel(level string) log.Level {
	parsed, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel
	}
	return parsed
}
