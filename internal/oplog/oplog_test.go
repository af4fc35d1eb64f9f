package oplog

import (
	"context"
	"errors"
	"testing"

	"credit-checkout/internal/domain"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	entries []domain.LogEntry
	err     error
}

func (s *memorySink) AppendLog(_ context.Context, e domain.LogEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func TestRecordPersistsWhenAsked(t *testing.T) {
	base, hook := test.NewNullLogger()
	sink := &memorySink{}
	l := New(base, sink, "checkout")

	l.Record(context.Background(), "transient", false)
	l.Record(context.Background(), "PAYMENT: done", true)

	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, "checkout", hook.LastEntry().Data["module"])
	require.Len(t, sink.entries, 1)
	assert.Equal(t, LevelInfo, sink.entries[0].Level)
	assert.Equal(t, "PAYMENT: done", sink.entries[0].Message)
}

func TestErrorIncludesCause(t *testing.T) {
	base, hook := test.NewNullLogger()
	sink := &memorySink{}
	l := New(base, sink, "checkout")

	l.Error(context.Background(), "verify failed", errors.New("timeout"), true)

	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, "verify failed: timeout", sink.entries[0].Message)
	assert.Equal(t, LevelError, sink.entries[0].Level)
}

func TestBrokenSinkOnlyWarns(t *testing.T) {
	base, hook := test.NewNullLogger()
	l := New(base, &memorySink{err: errors.New("disk full")}, "checkout")

	l.Record(context.Background(), "hello", true)

	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestNilSink(t *testing.T) {
	base, hook := test.NewNullLogger()
	New(base, nil, "x").Record(context.Background(), "hello", true)
	assert.Len(t, hook.AllEntries(), 1)
}
