package bus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestMessageWireShape(t *testing.T) {
	b, err := json.Marshal(New(TypeChannelTrigger, map[string]any{"channelName": "C#"}))
	if err != nil {
		t.Fatal(err)
	}
	var flat map[string]any
	if err := json.Unmarshal(b, &flat); err != nil {
		t.Fatal(err)
	}
	if flat["type"] != TypeChannelTrigger || flat["channelName"] != "C#" {
		t.Fatalf("wire shape = %v", flat)
	}

	var msg Message
	if err := json.Unmarshal(b, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != TypeChannelTrigger || msg.Str("channelName") != "C#" {
		t.Fatalf("decoded = %+v", msg)
	}
	if _, ok := msg.Props["type"]; ok {
		t.Fatal("type leaked into props")
	}
}

func TestSendWithNoPeerIsSilent(t *testing.T) {
	h := NewHub(Hooks{})
	// Must not panic or block.
	h.SendToProjector(New(TypeRefreshProjector, nil))
	h.SendToDashboard(New(TypeDebugLog, map[string]any{"message": "x"}))
	if h.ProjectorConnected() {
		t.Fatal("empty hub reports a projector")
	}
}

func TestHubClientRoundTrip(t *testing.T) {
	ready := make(chan Message, 4)
	connected := make(chan struct{}, 1)
	h := NewHub(Hooks{
		OnProjectorMessage: func(m Message) { ready <- m },
		OnProjectorConnect: func() {
			select {
			case connected <- struct{}{}:
			default:
			}
		},
	})
	mux := http.NewServeMux()
	h.Attach(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer h.Close()

	got := make(chan Message, 4)
	c := NewClient("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/projector", func(m Message) {
		got <- m
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("projector never connected")
	}
	select {
	case m := <-ready:
		if m.Type != TypeProjectorReady {
			t.Fatalf("first message = %q", m.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no projector-ready handshake")
	}

	h.SendToProjector(New(TypeTrackActivate, map[string]any{"trackName": "Intro"}))
	select {
	case m := <-got:
		if m.Type != TypeTrackActivate || m.Str("trackName") != "Intro" {
			t.Fatalf("client got %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client never received the trigger")
	}

	c.Send(New(TypeModuleIntrospected, map[string]any{"moduleId": "Sphere"}))
	select {
	case m := <-ready:
		if m.Type != TypeModuleIntrospected || m.Str("moduleId") != "Sphere" {
			t.Fatalf("hub got %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub never received the response")
	}
}

func TestClientSendWhileDisconnected(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws/projector", nil)
	// Silent no-op, like the hub side.
	c.Send(New(TypeProjectorReady, nil))
}

func TestConcurrentSendsToOnePeer(t *testing.T) {
	attached := make(chan struct{}, 1)
	h := NewHub(Hooks{
		OnDashboardMessage: func(Message) {
			select {
			case attached <- struct{}{}:
			default:
			}
		},
	})
	mux := http.NewServeMux()
	h.Attach(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer h.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/dashboard", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	// The hub registers the peer before starting its read loop, so a
	// handled message proves registration is done.
	if err := conn.WriteJSON(map[string]any{"type": "hello"}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-attached:
	case <-time.After(2 * time.Second):
		t.Fatal("dashboard never attached")
	}

	const senders, perSender = 8, 50
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				h.SendToDashboard(New(TypeSequencerStep, map[string]any{"step": j}))
			}
		}()
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for received := 0; received < senders*perSender; received++ {
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("received %d of %d: %v", received, senders*perSender, err)
		}
	}
	wg.Wait()
}
