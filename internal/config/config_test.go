package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
server:
  port: 8080
  read_timeout: 30s
  write_timeout: 60s
tokenizer:
  encoding: cl100k_base
embeddings:
  provider: hash
compression:
  ratio: 0.7
  min_words: 5
store:
  cache_ttl: 1h
logging:
  level: info
  format: json
`

func TestLoadFromBytes_Valid(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "cl100k_base", cfg.Tokenizer.Encoding)
	assert.Equal(t, "hash", cfg.Embeddings.Provider)
	assert.Equal(t, 0.7, cfg.Compression.Ratio)
	assert.Equal(t, 5, cfg.Compression.MinWords)
	assert.Equal(t, time.Hour, cfg.Store.CacheTTL)
}

func TestLoadFromBytes_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing port", "server:\n  read_timeout: 1s\n  write_timeout: 1s\ncompression:\n  ratio: 0.7\n  min_words: 5\n"},
		{"ratio too high", "server:\n  port: 1\n  read_timeout: 1s\n  write_timeout: 1s\ncompression:\n  ratio: 1.5\n  min_words: 5\n"},
		{"ratio zero", "server:\n  port: 1\n  read_timeout: 1s\n  write_timeout: 1s\ncompression:\n  ratio: 0\n  min_words: 5\n"},
		{"min_words zero", "server:\n  port: 1\n  read_timeout: 1s\n  write_timeout: 1s\ncompression:\n  ratio: 0.7\n  min_words: 0\n"},
		{"bad provider", "server:\n  port: 1\n  read_timeout: 1s\n  write_timeout: 1s\nembeddings:\n  provider: quantum\ncompression:\n  ratio: 0.7\n  min_words: 5\n"},
		{"not yaml", "{{{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

// TestEnvExpansion verifies ${VAR:-default} syntax in config files.
func TestEnvExpansion(t *testing.T) {
	t.Setenv("COMPAQT_TEST_PORT", "9999")

	yaml := `
server:
  port: ${COMPAQT_TEST_PORT}
  read_timeout: ${COMPAQT_TEST_RT:-15s}
  write_timeout: 30s
compression:
  ratio: 0.7
  min_words: 5
`
	cfg, err := LoadFromBytes([]byte(yaml))
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "unset var falls back to default")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
