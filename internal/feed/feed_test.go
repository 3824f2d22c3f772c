package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoServer accepts one WebSocket connection, records every subscribe
// message it receives, and lets the test push arbitrary frames back
// down to the client.
type echoServer struct {
	upgrader websocket.Upgrader
	connCh   chan *websocket.Conn
}

func newEchoServer() *echoServer {
	return &echoServer{connCh: make(chan *websocket.Conn, 4)}
}

func (s *echoServer) handler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.connCh <- conn
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFeed_SubscribeSendsSymbols(t *testing.T) {
	srv := newEchoServer()
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	f := New(wsURL, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.Subscribe("BTCUSDT")
	go f.Run(ctx)

	var conn *websocket.Conn
	select {
	case conn = <-srv.connCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server never received a connection")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got subscribeMessage
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read subscribe message: %v", err)
	}
	if got.Op != "subscribe" || len(got.Symbols) != 1 || got.Symbols[0] != "BTCUSDT" {
		t.Errorf("subscribe message = %+v, want op=subscribe symbols=[BTCUSDT]", got)
	}
}

func TestFeed_DispatchesDepthAndTradeFrames(t *testing.T) {
	srv := newEchoServer()
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	f := New(wsURL, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go f.Run(ctx)

	var conn *websocket.Conn
	select {
	case conn = <-srv.connCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server never received a connection")
	}

	conn.WriteJSON(wireMessage{
		Type:   "depth",
		Symbol: "BTCUSDT",
		Bids:   [][2]string{{"100.00", "1.0"}},
		Asks:   [][2]string{{"100.10", "1.0"}},
	})
	conn.WriteJSON(wireMessage{
		Type:   "trade",
		Symbol: "BTCUSDT",
		Price:  "100.05",
		Qty:    "0.5",
		Side:   "buy",
	})

	select {
	case snap := <-f.Depth():
		if snap.Symbol != "BTCUSDT" || len(snap.Bids) != 1 {
			t.Errorf("depth snapshot = %+v, want symbol BTCUSDT with 1 bid", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no depth snapshot received")
	}

	select {
	case evt := <-f.Trades():
		if evt.Symbol != "BTCUSDT" || !evt.Tick.Price.Equal(dec("100.05")) {
			t.Errorf("trade event = %+v, want symbol BTCUSDT price 100.05", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no trade event received")
	}
}

func TestFeed_ResubscribeCallbackFiresOnInitialConnect(t *testing.T) {
	srv := newEchoServer()
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	f := New(wsURL, testLogger())
	var reasons []string
	f.OnResubscribe(func(reason string) { reasons = append(reasons, reason) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	select {
	case <-srv.connCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server never received a connection")
	}

	time.Sleep(100 * time.Millisecond)
	if len(reasons) != 1 || reasons[0] != "initial" {
		t.Errorf("resubscribe reasons = %v, want [initial]", reasons)
	}
}
