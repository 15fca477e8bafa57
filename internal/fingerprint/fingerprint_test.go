package fingerprint

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashDeterminism(t *testing.T) {
	inputs := []string{"unknown", "203.0.113.7", "10.0.0.1", "::1", ""}
	for _, in := range inputs {
		assert.Equal(t, Hash(in), Hash(in), "hashing %q twice must match", in)
	}
}

func TestHashKnownTokens(t *testing.T) {
	// Tokens must stay stable across releases: they are persisted as
	// rate-limit bucket keys.
	cases := map[string]string{
		"unknown":     "-4pl4mu",
		"203.0.113.7": "n0wiat",
		"192.168.1.1": "xbjmd",
		"10.0.0.1":    "8gkc6e",
		"hello":       "1n1e4y",
	}
	for in, want := range cases {
		assert.Equal(t, want, Hash(in), "Hash(%q)", in)
	}
}

func TestHashDistinctInputs(t *testing.T) {
	assert.NotEqual(t, Hash("10.0.0.1"), Hash("10.0.0.2"))
}

func TestClientAddrChain(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/messages", nil)
	r.RemoteAddr = "192.0.2.9:4321"

	// Socket address only.
	assert.Equal(t, "192.0.2.9", ClientAddr(r))

	// X-Real-IP beats the socket address.
	r.Header.Set("X-Real-IP", "198.51.100.3")
	assert.Equal(t, "198.51.100.3", ClientAddr(r))

	// X-Forwarded-For beats both, first hop wins.
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 198.51.100.1")
	assert.Equal(t, "203.0.113.7", ClientAddr(r))
}

func TestClientAddrUnknown(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/messages", nil)
	r.RemoteAddr = ""

	require.Equal(t, Unknown, ClientAddr(r))
	assert.Equal(t, "-4pl4mu", FromRequest(r))
}
