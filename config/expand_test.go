package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestExpandEnvWithDefaults verifies that environment variable expansion
// properly handles ${VAR:-default} syntax.
func TestExpandEnvWithDefaults(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		env      map[string]string
		expected string
	}{
		{
			name:     "default used when var unset",
			input:    `${ENS_RUNPATH_ROOT:-/scratch}/runpaths`,
			env:      map[string]string{},
			expected: `/scratch/runpaths`,
		},
		{
			name:     "env value used when set",
			input:    `${ENS_RUNPATH_ROOT:-/scratch}/runpaths`,
			env:      map[string]string{"ENS_RUNPATH_ROOT": "/project"},
			expected: `/project/runpaths`,
		},
		{
			name:     "multiple vars with defaults",
			input:    `nats://${ENS_NATS_HOST:-localhost}:${ENS_NATS_PORT:-4222}`,
			env:      map[string]string{},
			expected: `nats://localhost:4222`,
		},
		{
			name:     "partial env set",
			input:    `nats://${ENS_NATS_HOST:-localhost}:${ENS_NATS_PORT:-4222}`,
			env:      map[string]string{"ENS_NATS_HOST": "nats.prod"},
			expected: `nats://nats.prod:4222`,
		},
		{
			name:     "empty default",
			input:    `prefix${ENS_OPTIONAL:-}suffix`,
			env:      map[string]string{},
			expected: `prefixsuffix`,
		},
		{
			name:     "simple var without default",
			input:    `${ENS_SIMPLE_VAR}`,
			env:      map[string]string{"ENS_SIMPLE_VAR": "value"},
			expected: `value`,
		},
		{
			name:     "simple var unset without default",
			input:    `${ENS_SIMPLE_VAR}`,
			env:      map[string]string{},
			expected: ``,
		},
		{
			name:     "bare dollar left alone",
			input:    `cost $5 and $HOME`,
			env:      map[string]string{},
			expected: `cost $5 and $HOME`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range []string{"ENS_RUNPATH_ROOT", "ENS_NATS_HOST", "ENS_NATS_PORT", "ENS_OPTIONAL", "ENS_SIMPLE_VAR"} {
				t.Setenv(v, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			result := ExpandEnvWithDefaults(tt.input)

			assert.Equal(t, tt.expected, result, "expansion mismatch for input: %s", tt.input)
		})
	}
}
