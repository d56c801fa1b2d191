package testutil

import (
	"testing"

	"github.com/lepinkainen/bookmind/internal/config"
	"github.com/spf13/viper"
)

// ResetConfig resets viper and registers the default configuration.
// The viper state is reset again when the test completes.
func ResetConfig(t *testing.T) {
	t.Helper()

	viper.Reset()
	config.InitConfig()

	t.Cleanup(viper.Reset)
}

// SetTestConfig sets up a test configuration rooted in the test environment:
// all stores live under env, external credentials are blank and the
// offline hash embedder is selected.
func SetTestConfig(t *testing.T, env *TestEnv) config.Config {
	t.Helper()

	ResetConfig(t)

	viper.Set("data.dir", env.RootDir())
	viper.Set("cache.ttl", "24h")
	viper.Set("embedding.provider", "hash")
	viper.Set("embedding.dimensions", 64)
	viper.Set("openai.apikey", "")
	viper.Set("nyt.apikey", "")
	viper.Set("pushover.user", "")
	viper.Set("pushover.token", "")
	viper.Set("workers", 2)

	return config.Load()
}
