package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override values from the YAML file
const (
	EnvBotToken = "TELEGRAM_BOT_TOKEN"
	EnvRedisURL = "WIKIBOT_REDIS_URL"
	EnvLogLevel = "WIKIBOT_LOG_LEVEL"
)

// ApplyEnv loads optional dotenv files (missing files are ignored) and applies
// environment overrides. Secrets such as the bot token normally arrive this way.
func ApplyEnv(c *AppConfig, envFiles ...string) error {
	for _, f := range envFiles {
		if f == "" {
			continue
		}
		// godotenv.Load never overwrites variables already present in the process env
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if v := os.Getenv(EnvBotToken); v != "" {
		c.Bot.Token = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Storage.RedisURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	return nil
}
