package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type published struct {
	subject string
	data    []byte
}

type fakeJetStream struct {
	sent []published
	err  error
}

func (f *fakeJetStream) PublishAsync(subj string, data []byte, _ ...nats.PubOpt) (nats.PubAckFuture, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, published{subject: subj, data: data})
	return nil, nil
}

func TestPublisher_NilIsNoop(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, func() {
		p.Publish(SubjectProgressCompleted, "progress_completed", "u1", nil)
	})

	p = New(nil, zap.NewNop())
	assert.NotPanics(t, func() {
		p.Publish(SubjectProgressCompleted, "progress_completed", "u1", nil)
	})
}

func TestPublisher_PublishesEnvelope(t *testing.T) {
	js := &fakeJetStream{}
	p := &Publisher{js: js, log: zap.NewNop()}

	p.Publish(SubjectLessonsReconciled, "lessons_reconciled", "admin-1", map[string]any{"inserted": 2})

	require.Len(t, js.sent, 1)
	assert.Equal(t, SubjectLessonsReconciled, js.sent[0].subject)

	var ev Event
	require.NoError(t, json.Unmarshal(js.sent[0].data, &ev))
	assert.Equal(t, "lessons_reconciled", ev.EventName)
	assert.Equal(t, "admin-1", ev.UserID)
	assert.NotEmpty(t, ev.EventID)
	assert.EqualValues(t, 2, ev.Properties["inserted"])
}

func TestPublisher_FailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := &Publisher{js: &fakeJetStream{err: errors.New("no responders")}, log: zap.New(core)}

	p.Publish(SubjectProgressCompleted, "progress_completed", "u1", nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "events: publish failed", logs.All()[0].Message)
}
