package util

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProxyFunc_Explicit(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.internal:3128", "http://secure-proxy.internal:3128", "localhost,.corp.example")

	tests := []struct {
		url  string
		want string
	}{
		{"http://analytics.example.com/events", "http://proxy.internal:3128"},
		{"https://analytics.example.com/events", "http://secure-proxy.internal:3128"},
		{"https://api.corp.example/events", ""},
		{"http://localhost:9000/events", ""},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(http.MethodPost, tt.url, nil)
		require.NoError(t, err)

		got, err := proxy(req)
		require.NoError(t, err)
		if tt.want == "" {
			assert.Nil(t, got, tt.url)
			continue
		}
		require.NotNil(t, got, tt.url)
		assert.Equal(t, tt.want, got.String(), tt.url)
	}
}

func TestNewProxyFunc_HTTPOnly(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.internal:3128", "", "")

	req, err := http.NewRequest(http.MethodGet, "https://analytics.example.com", nil)
	require.NoError(t, err)

	got, err := proxy(req)
	require.NoError(t, err)
	assert.Nil(t, got, "https traffic is not sent through an http-only proxy")
}

func TestNewTransport(t *testing.T) {
	tr := NewTransport("http://proxy.internal:3128", "", "")
	require.NotNil(t, tr.Proxy)
	assert.NotSame(t, http.DefaultTransport, tr)
}
