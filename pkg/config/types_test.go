package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"
)

func TestValueSource(t *testing.T) {
	t.Setenv("TEST_SECRET_VALUE", "from-env")

	tests := []struct {
		name     string
		vs       ValueSource
		expected string
	}{
		{
			name:     "env source",
			vs:       ValueSource{Type: ValueSourceType_ENV, Value: "TEST_SECRET_VALUE"},
			expected: "from-env",
		},
		{
			name:     "text source",
			vs:       ValueSource{Type: ValueSourceType_TEXT, Value: "literal"},
			expected: "literal",
		},
		{
			name:     "unknown source",
			vs:       ValueSource{Type: "vault", Value: "whatever"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.vs.String())
		})
	}
}

func TestDurationUnmarshal(t *testing.T) {
	var s struct {
		Timeout Duration `yaml:"timeout"`
	}

	require.NoError(t, yaml.Unmarshal([]byte("timeout: 90s"), &s))
	assert.Equal(t, 90*time.Second, s.Timeout.Duration())

	assert.Error(t, yaml.Unmarshal([]byte("timeout: not-a-duration"), &s))
}
