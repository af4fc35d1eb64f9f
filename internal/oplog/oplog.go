// Package oplog writes operational messages to the process log and,
// when asked, to the ledger's operation log.
package oplog

import (
	"context"
	"time"

	"credit-checkout/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	LevelInfo  = "info"
	LevelError = "error"
)

type Sink interface {
	AppendLog(ctx context.Context, entry domain.LogEntry) error
}

type Logger struct {
	log  *logrus.Entry
	sink Sink
}

// New returns a Logger. sink may be nil, in which case nothing is persisted.
func New(log *logrus.Logger, sink Sink, module string) *Logger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Logger{log: log.WithField("module", module), sink: sink}
}

func (l *Logger) Entry() *logrus.Entry { return l.log }

func (l *Logger) Record(ctx context.Context, msg string, persist bool) {
	l.log.Info(msg)
	if persist {
		l.persist(ctx, LevelInfo, msg)
	}
}

func (l *Logger) Error(ctx context.Context, msg string, err error, persist bool) {
	entry := l.log
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
	if persist {
		text := msg
		if err != nil {
			text = msg + ": " + err.Error()
		}
		l.persist(ctx, LevelError, text)
	}
}

// persist never fails the caller; a broken sink is only reported.
func (l *Logger) persist(ctx context.Context, level, msg string) {
	if l.sink == nil {
		return
	}
	entry := domain.LogEntry{
		ID:        uuid.New(),
		Level:     level,
		Message:   msg,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.sink.AppendLog(context.WithoutCancel(ctx), entry); err != nil {
		l.log.WithError(err).Warn("operation log write failed")
	}
}
