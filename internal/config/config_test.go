package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	keyring.MockInit()
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("EMBEDDING_API_KEY", "")

	resume := writeFile(t, "resume.pdf", "%PDF")
	path := writeFile(t, "config.yaml", `
search:
  keywords: ["Go Intern", "Backend Intern"]
profile:
  resume_path: `+resume+`
  fields:
    - {name: first_name, value: Ada}
    - {name: portfolio, value: "https://ada.dev", synonyms: [portfolio, website]}
limits:
  max_steps: 5
timeouts:
  modal: 8s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Go Intern", "Backend Intern"}, cfg.Search.Keywords)
	assert.Equal(t, "United States", cfg.Search.Location)
	assert.Equal(t, 5, cfg.Limits.MaxSteps)
	assert.Equal(t, 3, cfg.Limits.MaxPages)
	assert.Equal(t, 8*time.Second, cfg.Timeouts.Modal.D())
	assert.Equal(t, 10*time.Second, cfg.Timeouts.DetailPane.D())

	first, ok := cfg.Profile.Fields.Get("first_name")
	require.True(t, ok)
	assert.Equal(t, "Ada", first.Value)
	assert.Contains(t, first.Synonyms, "given name")
	_, ok = cfg.Profile.Fields.Get("portfolio")
	assert.True(t, ok)
	assert.Equal(t, "phone_country_code", cfg.Profile.Fields[2].Name)
}

func TestLoadEnvAndKeyring(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, SetSecret(AccountEmbeddingAPIKey, "from-keyring"))
	t.Setenv("EMBEDDING_API_KEY", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")
	t.Setenv("JOBPILOT_HEADLESS", "true")
	t.Setenv("JOBPILOT_DSN", "postgres://u:p@localhost/jobs")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", cfg.Scoring.APIKey)
	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, int64(12345), cfg.Telegram.ChatID)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "postgres://u:p@localhost/jobs", cfg.Storage.DSN)
}

func TestLoadErrors(t *testing.T) {
	keyring.MockInit()
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	tests := []struct {
		name string
		body string
		env  map[string]string
		want string
	}{
		{name: "bad duration", body: "timeouts:\n  modal: soon\n", want: "invalid duration"},
		{name: "zero steps", body: "limits:\n  max_steps: 0\n", want: "max_steps"},
		{name: "score range", body: "scoring:\n  min_score: 120\n", want: "min_score"},
		{name: "missing resume", body: "profile:\n  resume_path: /nope/resume.pdf\n", want: "resume_path"},
		{name: "bad chat id", body: "", env: map[string]string{"TELEGRAM_CHAT_ID": "abc"}, want: "TELEGRAM_CHAT_ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeFile(t, "config.yaml", tt.body))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
