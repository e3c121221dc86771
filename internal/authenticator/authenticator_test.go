package auth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveUpstreamConfig_BearerSchemes(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantKey string
	}{
		{
			name:    "uppercase bearer prefix is stripped",
			value:   "Bearer sk-test",
			wantKey: "sk-test",
		},
		{
			name:    "lowercase bearer prefix is stripped",
			value:   "bearer sk-test",
			wantKey: "sk-test",
		},
		{
			name:    "raw key without scheme passes through",
			value:   "sk-test",
			wantKey: "sk-test",
		},
		{
			name:    "all-caps scheme is not recognized and passes through",
			value:   "BEARER sk-test",
			wantKey: "BEARER sk-test",
		},
		{
			name:    "only the first prefix occurrence is stripped",
			value:   "Bearer Bearer sk-test",
			wantKey: "Bearer sk-test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			h.Set("Authorization", tt.value)

			cfg, err := ResolveUpstreamConfig(h, false)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, cfg.APIKey)
			assert.Empty(t, cfg.ExtraHeaders)
		})
	}
}

func TestResolveUpstreamConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		headers http.Header
		wantErr error
	}{
		{
			name:    "missing header",
			headers: http.Header{},
			wantErr: ErrAuthHeaderMissing,
		},
		{
			name: "bearer prefix with nothing following is an empty key",
			headers: http.Header{
				"Authorization": []string{"Bearer "},
			},
			wantErr: ErrApiKeyEmpty,
		},
		{
			name: "lowercase prefix with nothing following is an empty key",
			headers: http.Header{
				"Authorization": []string{"bearer "},
			},
			wantErr: ErrApiKeyEmpty,
		},
		{
			name: "empty header value",
			headers: http.Header{
				"Authorization": []string{""},
			},
			wantErr: ErrApiKeyEmpty,
		},
		{
			name: "control characters are not valid text",
			headers: http.Header{
				"Authorization": []string{"Bearer sk-\x00test"},
			},
			wantErr: ErrAuthHeaderNotText,
		},
		{
			name: "non-ascii bytes are not valid text",
			headers: http.Header{
				"Authorization": []string{"Bearer sk-\xc3\xa9"},
			},
			wantErr: ErrAuthHeaderNotText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ResolveUpstreamConfig(tt.headers, false)
			assert.Nil(t, cfg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolveUpstreamConfig_CaseInsensitiveLookup(t *testing.T) {
	// non-canonical key, as a hand-built header map would carry it
	h := http.Header{
		"authorization": []string{"sk-test"},
	}

	cfg, err := ResolveUpstreamConfig(h, false)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.APIKey)
}

func TestResolveUpstreamConfig_AssistantsBetaHeader(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer sk-test")

	cfg, err := ResolveUpstreamConfig(h, true)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, map[string]string{"OpenAI-Beta": "assistants=v2"}, cfg.ExtraHeaders)

	cfg, err = ResolveUpstreamConfig(h, false)
	require.NoError(t, err)
	assert.Empty(t, cfg.ExtraHeaders)
}

func TestResolveUpstreamConfig_Idempotent(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer sk-test")

	first, err := ResolveUpstreamConfig(h, true)
	require.NoError(t, err)
	second, err := ResolveUpstreamConfig(h, true)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
