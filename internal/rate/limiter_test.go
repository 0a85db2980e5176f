package rate

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_AllowAndThrottle(t *testing.T) {
	l := New(2, 1, 200*time.Millisecond) // 2 req/min, burst 1
	defer l.Stop()
	require.True(t, l.Allow("1.2.3.4"))
	require.False(t, l.Allow("1.2.3.4"))
	// Keys are independent.
	require.True(t, l.Allow("caller-b"))
}

func TestLimiter_ReaperEvictsIdle(t *testing.T) {
	l := New(100, 1, 50*time.Millisecond)
	defer l.Stop()
	require.True(t, l.Allow("5.6.7.8"))
	require.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 10*time.Millisecond)
	require.True(t, l.Allow("5.6.7.8"))
}

func TestLimiter_StopTwice(t *testing.T) {
	l := New(1, 1, time.Second)
	l.Stop()
	l.Stop()
}

func TestIPFromRequest_HeaderAndRemoteAddr(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "http://x/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.1, 10.0.0.1")
	require.Equal(t, "203.0.113.1", IPFromRequest(r))

	r2, _ := http.NewRequest(http.MethodGet, "http://x/", nil)
	r2.RemoteAddr = "192.0.2.5:1234"
	require.Equal(t, "192.0.2.5", IPFromRequest(r2))

	r3, _ := http.NewRequest(http.MethodGet, "http://x/", nil)
	r3.RemoteAddr = "pipe"
	require.Equal(t, "pipe", IPFromRequest(r3))
}
