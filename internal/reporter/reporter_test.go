package reporter

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"go-easyapply-automation/internal/models"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func outcome(state models.State, kind models.ErrorKind) models.Outcome {
	score := 64.5
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	return models.Outcome{
		ID: "a", Title: "Go Intern (Remote)", Company: "Acme Inc.", Location: "Remote",
		URL: "https://www.linkedin.com/jobs/view/1", RelevanceScore: &score,
		State: state, ErrorKind: kind, StartedAt: start, FinishedAt: start.Add(time.Second),
	}
}

func TestTelegramReporterOnlySubmittedByDefault(t *testing.T) {
	fs := &fakeSender{}
	r := &TelegramReporter{bot: fs, chatID: 42}

	require.NoError(t, r.Report(context.Background(), outcome(models.StateSkipped, models.ErrModalTimeout)))
	assert.Empty(t, fs.sent)

	require.NoError(t, r.Report(context.Background(), outcome(models.StateSubmitted, models.ErrNone)))
	require.Len(t, fs.sent, 1)
	msg := fs.sent[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "MarkdownV2", msg.ParseMode)
	assert.Contains(t, msg.Text, `Go Intern \(Remote\)`)
	assert.Contains(t, msg.Text, `Acme Inc\.`)
	assert.Contains(t, msg.Text, `64\.5/100`)
	assert.NotNil(t, msg.ReplyMarkup)
}

func TestTelegramReporterNotifyAll(t *testing.T) {
	fs := &fakeSender{err: errors.New("chat not found")}
	r := &TelegramReporter{bot: fs, chatID: 1, notifyAll: true}

	err := r.Report(context.Background(), outcome(models.StateAbandoned, models.ErrSessionLost))
	assert.ErrorContains(t, err, "chat not found")
	require.Len(t, fs.sent, 1)
	assert.Contains(t, fs.sent[0].Text, "SessionLost")
}

func TestLogReporter(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewLogReporter(zap.New(core))

	require.NoError(t, r.Report(context.Background(), outcome(models.StateSubmitted, models.ErrNone)))
	require.NoError(t, r.Report(context.Background(), outcome(models.StateAbandoned, models.ErrStepLimitReached)))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "StepLimitReached", entries[1].ContextMap()["reason"])
}

func TestMultiJoinsErrors(t *testing.T) {
	bad := &TelegramReporter{bot: &fakeSender{err: errors.New("boom")}, chatID: 1}
	m := Multi{NewLogReporter(zap.NewNop()), bad}

	err := m.Summary(context.Background(), Summary{RunID: "r"})
	assert.ErrorContains(t, err, "boom")
}

func TestRenderSummary(t *testing.T) {
	s := Summary{
		RunID:    "run-1",
		Started:  time.Now().Add(-time.Minute),
		Finished: time.Now(),
		Outcomes: []models.Outcome{
			outcome(models.StateSubmitted, models.ErrNone),
			outcome(models.StateSkipped, models.ErrLowRelevance),
		},
	}
	out := RenderSummary(s)
	assert.Contains(t, out, "1 submitted")
	assert.Contains(t, out, "1 skipped")
	assert.Contains(t, out, "LowRelevance")
	assert.Contains(t, out, "run-1")

	assert.Contains(t, RenderOutcomes("x", nil), "no attempts recorded")

	counts := RenderCounts("RUN run-1", map[models.State]int{models.StateSubmitted: 3, models.StateAbandoned: 2})
	assert.Contains(t, counts, "3 submitted")
	assert.Contains(t, counts, "0 skipped")
	assert.Contains(t, counts, "2 abandoned")
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
