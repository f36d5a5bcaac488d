package ratelimiting

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockedRateLimiter struct {
	consumeFunc func(key string) bool
}

func (m *mockedRateLimiter) Consume(key string) bool {
	return m.consumeFunc(key)
}

func TestTokenBucketRateLimiter(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping test in short mode")
	}
	t.Parallel()

	rateLimiter, stop := NewTokenBucketRateLimiter(1, 2)
	defer stop()

	assert.True(t, rateLimiter.Consume("player2"))

	// Burst of 2
	assert.True(t, rateLimiter.Consume("player1"))
	assert.True(t, rateLimiter.Consume("player1"))
	assert.False(t, rateLimiter.Consume("player1"))

	time.Sleep(1100 * time.Millisecond)

	// Refill rate of 1
	assert.True(t, rateLimiter.Consume("player1"))
	assert.False(t, rateLimiter.Consume("player1"))

	// Burst of 2 - even after refill
	assert.True(t, rateLimiter.Consume("player3"))
	assert.True(t, rateLimiter.Consume("player3"))
	assert.False(t, rateLimiter.Consume("player3"))

	assert.True(t, rateLimiter.Consume("player2"))
	assert.True(t, rateLimiter.Consume("player2"))
	assert.False(t, rateLimiter.Consume("player2"))
}

func TestIPKeyFunc(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		remoteAddr string
		expected   string
	}{
		{remoteAddr: "123.123.123.123", expected: "ip: 123.123.123.123"},
		{remoteAddr: "123.123.123.123:4321", expected: "ip: 123.123.123.123"},
		{remoteAddr: "[2001:db8::1]:8080", expected: "ip: 2001:db8::1"},
	} {
		require.Equal(t, tc.expected, IPKeyFunc(&http.Request{RemoteAddr: tc.remoteAddr}), tc.remoteAddr)
	}

	t.Run("forwarded", func(t *testing.T) {
		t.Parallel()

		r := &http.Request{RemoteAddr: "169.254.169.126:58418", Header: http.Header{}}
		r.Header.Set("X-Forwarded-For", "12.12.123.123, 34.111.7.239")
		require.Equal(t, "ip: 12.12.123.123", IPKeyFunc(r))
	})
}

func TestPlayerIDKeyFunc(t *testing.T) {
	t.Parallel()

	makeRequest := func(playerID string) *http.Request {
		r := &http.Request{Header: http.Header{}}
		if playerID != "" {
			r.Header.Set("X-Player-Id", playerID)
		}
		return r
	}

	require.Equal(t, "player-id: <missing>", PlayerIDKeyFunc(makeRequest("")))
	require.Equal(t, "player-id: 0199a5b2-0000-7000-8000-0000000000aa", PlayerIDKeyFunc(makeRequest("0199a5b2-0000-7000-8000-0000000000aa")))

	// Truncated, since the value is user controlled
	require.Equal(t, "player-id: "+strings.Repeat("a", 50), PlayerIDKeyFunc(makeRequest(strings.Repeat("a", 500))))
}

func TestRequestBasedRateLimiter(t *testing.T) {
	t.Parallel()

	var expectedKey string
	var allowed bool
	rateLimiter := &mockedRateLimiter{
		consumeFunc: func(key string) bool {
			t.Helper()
			assert.Equal(t, expectedKey, key)
			return allowed
		},
	}
	requestRateLimiter := NewRequestBasedRateLimiter(rateLimiter, IPKeyFunc)

	expectedKey = "ip: 1.1.1.1"
	allowed = true
	assert.True(t, requestRateLimiter.Consume(&http.Request{RemoteAddr: "1.1.1.1"}))
	assert.True(t, requestRateLimiter.Consume(&http.Request{RemoteAddr: "1.1.1.1:1234"}))
	allowed = false
	assert.False(t, requestRateLimiter.Consume(&http.Request{RemoteAddr: "1.1.1.1"}))

	expectedKey = "ip: 2.1.1.1"
	allowed = true
	assert.True(t, requestRateLimiter.Consume(&http.Request{RemoteAddr: "2.1.1.1"}))
	assert.Equal(t, "ip: 2.1.1.1", requestRateLimiter.KeyFor(&http.Request{RemoteAddr: "2.1.1.1"}))
}
