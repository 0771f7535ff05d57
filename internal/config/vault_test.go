package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"resumetex/internal/errors"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets map[string]map[string]string

func (f fakeSecrets) GetStringSecret(path, key string) (string, error) {
	data, ok := f[path]
	if !ok {
		return "", fmt.Errorf("secret not found at path: %s", path)
	}
	value, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	return value, nil
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "float64 value", input: float64(42.0), expected: 42},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/test")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseKVv2Secret(t *testing.T) {
	t.Run("valid secret", func(t *testing.T) {
		secret := &api.Secret{Data: map[string]any{
			"data":     map[string]any{"api_key": "AIza-test"},
			"metadata": map[string]any{"version": float64(3)},
		}}

		parsed, err := parseKVv2Secret(secret, "secret/data/gemini")
		require.NoError(t, err)
		assert.Equal(t, int64(3), parsed.Version)
		assert.Equal(t, "AIza-test", parsed.Data["api_key"])
	})

	t.Run("kv v1 layout", func(t *testing.T) {
		secret := &api.Secret{Data: map[string]any{"api_key": "AIza-test"}}
		_, err := parseKVv2Secret(secret, "secret/gemini")
		assert.ErrorContains(t, err, "missing 'data' field")
	})

	t.Run("missing version", func(t *testing.T) {
		secret := &api.Secret{Data: map[string]any{
			"data":     map[string]any{},
			"metadata": map[string]any{},
		}}
		_, err := parseKVv2Secret(secret, "secret/data/gemini")
		assert.ErrorContains(t, err, "missing 'version'")
	})
}

func TestStringFromSecret(t *testing.T) {
	secret := &VaultSecret{Data: map[string]any{"api_key": "abc", "count": 3}}

	value, err := stringFromSecret(secret, "p", "api_key")
	require.NoError(t, err)
	assert.Equal(t, "abc", value)

	_, err = stringFromSecret(secret, "p", "missing")
	assert.Error(t, err)

	_, err = stringFromSecret(secret, "p", "count")
	assert.ErrorContains(t, err, "not a string")
}

func TestApplySecrets(t *testing.T) {
	logger := errors.NewNopLogger()
	client := fakeSecrets{
		"secret/data/gemini": {"api_key": "vault-gemini-key"},
		"secret/data/server": {"keys": "k1, k2 ,,k3"},
	}

	cfg := &Config{
		AI: AIConfig{APIKey: "env-key"},
		Vault: VaultConfig{Secrets: VaultSecrets{
			GeminiKey: "secret/data/gemini",
			APIKeys:   "secret/data/server",
		}},
	}

	require.NoError(t, applySecrets(client, cfg, logger))
	assert.Equal(t, "vault-gemini-key", cfg.AI.APIKey)
	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.Server.APIKeys)
}

func TestApplySecretsMissingPath(t *testing.T) {
	cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{GeminiKey: "secret/data/nope"}}}
	err := applySecrets(fakeSecrets{}, cfg, errors.NewNopLogger())
	assert.ErrorContains(t, err, "Gemini API key")
}

func TestResolveVaultToken(t *testing.T) {
	t.Run("inline token wins", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "inline", TokenFile: "/nonexistent"})
		require.NoError(t, err)
		assert.Equal(t, "inline", token)
	})

	t.Run("token file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(path, []byte("  from-file\n"), 0600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: path})
		require.NoError(t, err)
		assert.Equal(t, "from-file", token)
	})

	t.Run("no token", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{})
		assert.Error(t, err)
	})
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{AI: AIConfig{APIKey: "unchanged"}}
	require.NoError(t, ApplyVaultSecrets(cfg, errors.NewNopLogger()))
	assert.Equal(t, "unchanged", cfg.AI.APIKey)
}
