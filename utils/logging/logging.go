// Package logging configures the logrus loggers used across the runtime.
package logging

import (
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
)

// Discard returns an entry that writes nowhere.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.Out = ioutil.Discard
	l.Level = logrus.PanicLevel
	return logrus.NewEntry(l)
}

// Config of a root logger.
type Config struct {
	Level  string
	Format string
	Color  bool
	// SentryDSN enables the sentry hook for error and above.
	SentryDSN string
}

// New builds a logger writing to out.
func New(out io.Writer, cfg Config) (*logrus.Logger, error) {
	l := logrus.New()
	l.Out = out

	lvl, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	l.Level = lvl

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		l.Formatter = &logrus.TextFormatter{
			ForceColors:      cfg.Color,
			DisableColors:    !cfg.Color,
			FullTimestamp:    true,
			QuoteEmptyFields: true,
		}
	case "json":
		l.Formatter = &logrus.JSONFormatter{}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.SentryDSN != "" {
		hook, err := logrus_sentry.NewSentryHook(cfg.SentryDSN, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			return nil, err
		}
		hook.StacktraceConfiguration.Enable = true
		l.AddHook(hook)
	}
	return l, nil
}
