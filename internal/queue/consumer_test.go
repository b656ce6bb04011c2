package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	to, subject, body string
	calls             int
	err               error
}

func (f *fakeSender) Send(to, subject, body string) error {
	f.calls++
	f.to, f.subject, f.body = to, subject, body
	return f.err
}

func TestNotifyBuildsPortugueseMail(t *testing.T) {
	s := &fakeSender{}
	err := notify(s, ProcessStatusChangedEvent{
		ProcessID:     3,
		ProcessNumber: 12345,
		ClientEmail:   "ana@example.com",
		OldStatus:     "Em Progresso",
		NewStatus:     "Finalizado",
	})
	require.NoError(t, err)
	require.Equal(t, 1, s.calls)
	assert.Equal(t, "ana@example.com", s.to)
	assert.Contains(t, s.subject, "Avialex")
	assert.Contains(t, s.body, "12345")
	assert.Contains(t, s.body, "Em Progresso")
	assert.Contains(t, s.body, "Finalizado")
}

func TestNotifySkipsMissingEmail(t *testing.T) {
	s := &fakeSender{}
	err := notify(s, ProcessStatusChangedEvent{ProcessID: 3})
	require.NoError(t, err)
	assert.Zero(t, s.calls)
}
