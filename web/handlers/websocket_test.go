package handlers

import (
	"context"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nhooyr.io/websocket"
)

func TestWebSocketHubBroadcastAndStop(t *testing.T) {
	baseline := runtime.NumGoroutine()

	hub := NewWebSocketHub()
	go hub.Run()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Registration races the dial, so broadcast until the client hears one.
	stopBroadcast := make(chan struct{})
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopBroadcast:
				return
			case <-ticker.C:
				hub.Broadcast(map[string]int{"total_runs": 1})
			}
		}
	}()

	_, data, err := conn.Read(ctx)
	close(stopBroadcast)
	require.NoError(t, err)
	assert.Contains(t, string(data), "total_runs")

	hub.Stop()

	_, _, err = conn.Read(ctx)
	assert.Error(t, err, "a stopped hub must close the client connection")

	// The client pumps must exit instead of blocking on unregister after
	// the hub loop has stopped.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && runtime.NumGoroutine() > baseline+5 {
		time.Sleep(10 * time.Millisecond)
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), baseline+5,
		"pump goroutines leaked after hub stop")
}

func TestWebSocketHubStopIsSafeWithoutClients(t *testing.T) {
	hub := NewWebSocketHub()
	go hub.Run()

	done := make(chan struct{})
	go func() {
		hub.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked with no connected clients")
	}
}
