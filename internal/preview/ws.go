package preview

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"playground/internal/engine"
	"playground/internal/events"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
	wsQueueSize = 256
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type wsInbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

type wsOutbound struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		s.logger.Debug().Err(err).Msg("ws set read deadline failed")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	queue := newWSQueue(wsQueueSize)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-queue.ch:
				for _, msg := range queue.batch(out) {
					if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
						return
					}
					if err := conn.WriteJSON(msg); err != nil {
						return
					}
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	unsubscribe := s.bus.Subscribe(func(e events.Event) {
		queue.push(wsOutbound{Type: string(e.Type), Data: e.Data, Timestamp: e.Timestamp})
	})
	defer unsubscribe()

	queue.push(wsOutbound{Type: "subscribed", Data: map[string]any{
		"busy":  s.orch.IsBusy(),
		"state": s.orch.State().String(),
	}})

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			queue.push(wsOutbound{Type: "pong"})
		case "send":
			if err := s.start(in.Content); err != nil {
				code := "invalid_argument"
				if errors.Is(err, engine.ErrBusy) {
					code = "busy"
				}
				queue.push(wsOutbound{Type: "error", Code: code, Message: err.Error()})
				continue
			}
			queue.push(wsOutbound{Type: "send_ack"})
		case "":
			queue.push(wsOutbound{Type: "error", Code: "invalid_argument", Message: "type is required"})
		default:
			queue.push(wsOutbound{Type: "error", Code: "invalid_argument", Message: "unsupported type: " + in.Type})
		}
	}
}

// wsResync tells the client that events were dropped and its view must be
// reloaded from the HTTP API.
var wsResync = wsOutbound{
	Type:    "resync",
	Code:    "dropped",
	Message: "events were dropped; reload /api/files and /api/messages",
}

// wsQueue buffers outbound messages without ever blocking the publisher.
type wsQueue struct {
	ch      chan wsOutbound
	dropped atomic.Bool
}

func newWSQueue(size int) *wsQueue {
	return &wsQueue{ch: make(chan wsOutbound, size)}
}

// push enqueues out. When the queue is full the oldest message is dropped
// and the next batch is preceded by wsResync.
func (q *wsQueue) push(out wsOutbound) {
	select {
	case q.ch <- out:
		return
	default:
	}
	select {
	case <-q.ch:
		q.dropped.Store(true)
	default:
	}
	select {
	case q.ch <- out:
	default:
		q.dropped.Store(true)
	}
}

// batch returns what the writer sends for a dequeued message.
func (q *wsQueue) batch(out wsOutbound) []wsOutbound {
	if q.dropped.Swap(false) {
		return []wsOutbound{wsResync, out}
	}
	return []wsOutbound{out}
}
