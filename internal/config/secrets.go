package config

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups this tool's secrets in the OS keychain.
const KeyringService = "go-easyapply"

const (
	AccountTelegramToken   = "telegram-bot-token"
	AccountEmbeddingAPIKey = "embedding-api-key"
)

// resolveSecrets fills secrets the environment did not provide from the
// keyring. A missing keyring entry is not an error.
func resolveSecrets(cfg *Config) {
	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = secret(AccountTelegramToken)
	}
	if cfg.Scoring.APIKey == "" {
		cfg.Scoring.APIKey = secret(AccountEmbeddingAPIKey)
	}
}

func secret(account string) string {
	v, err := keyring.Get(KeyringService, account)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func SetSecret(account, value string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret is empty")
	}
	return keyring.Set(KeyringService, account, value)
}

func DeleteSecret(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}
