package parser

import (
	"testing"

	"github.com/RekGRpth/pg-curl-sub000/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAMLConfigParser(t *testing.T) {
	doc := `
module_name: pg_curl
max_headers: 32
max_response_size: 1048576
handle_interrupt: false
default_user_agent: "pg_curl/2.4"
`
	m, err := NewYAMLConfigParser().Parse([]byte(doc))
	require.NoError(t, err)

	cfg, err := config.FromMap(m)
	require.NoError(t, err)
	assert.Equal(t, "pg_curl", cfg.ModuleName)
	assert.Equal(t, 32, cfg.MaxHeaders)
	assert.Equal(t, 1<<20, cfg.MaxResponseSize)
	assert.False(t, cfg.HandleInterrupt)
	assert.Equal(t, "pg_curl/2.4", cfg.DefaultUserAgent)
}

func TestYAMLConfigParser_JSON(t *testing.T) {
	m, err := NewYAMLConfigParser().Parse([]byte(`{"max_headers": 8}`))
	require.NoError(t, err)
	assert.Equal(t, 8, m["max_headers"])
}

func TestYAMLConfigParser_Empty(t *testing.T) {
	m, err := NewYAMLConfigParser().Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestYAMLConfigParser_Invalid(t *testing.T) {
	_, err := NewYAMLConfigParser().Parse([]byte("max_headers: [1, 2"))
	assert.ErrorContains(t, err, "failed to parse config")

	_, err = NewYAMLConfigParser().Parse([]byte("- just\n- a list\n"))
	assert.Error(t, err)
}
