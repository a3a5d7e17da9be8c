package bg

import (
	"strings"

	"github.com/dgraph-io/badger"
	"go.uber.org/zap"
)

// zapLogger adapts a zap logger to badger.Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

var _ badger.Logger = &zapLogger{}

func newLogger(log *zap.Logger) badger.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &zapLogger{s: log.Named("badger").Sugar()}
}

func (l *zapLogger) Errorf(f string, v ...interface{}) {
	l.s.Errorf(strings.TrimSpace(f), v...)
}

func (l *zapLogger) Warningf(f string, v ...interface{}) {
	l.s.Warnf(strings.TrimSpace(f), v...)
}

func (l *zapLogger) Infof(f string, v ...interface{}) {
	l.s.Infof(strings.TrimSpace(f), v...)
}

func (l *zapLogger) Debugf(f string, v ...interface{}) {
	l.s.Debugf(strings.TrimSpace(f), v...)
}
