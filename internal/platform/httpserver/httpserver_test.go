package httpserver

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaultsAndOptions(t *testing.T) {
	h := http.NotFoundHandler()

	srv := New(":9000", h)
	assert.Equal(t, ":9000", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 15*time.Second, srv.ReadTimeout)

	srv = New(":9000", h, WithTimeouts(time.Second, 0), WithIdleTimeout(-time.Second))
	assert.Equal(t, time.Second, srv.ReadTimeout)
	assert.Equal(t, 30*time.Second, srv.WriteTimeout, "zero keeps default")
	assert.Equal(t, 2*time.Minute, srv.IdleTimeout, "negative ignored")
}

func TestServeTreatsShutdownAsClean(t *testing.T) {
	srv := New("127.0.0.1:0", http.NotFoundHandler())
	done := make(chan error, 1)
	go func() { done <- Serve(srv) }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}
