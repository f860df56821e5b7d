package http

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"quiz-player/internal/app"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second
	// pongWait is how long a silent watcher is kept.
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// WSHandler streams the live board of a quiz to websocket watchers.
type WSHandler struct {
	service  *app.AttemptService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: msg}}
}

// watcher owns one upgraded connection. Only writeLoop writes frames.
type watcher struct {
	conn *websocket.Conn
	out  chan outboundMessage
	done chan struct{}
}

// push queues msg unless the writer already stopped.
func (w *watcher) push(msg outboundMessage) bool {
	select {
	case w.out <- msg:
		return true
	case <-w.done:
		return false
	}
}

func (w *watcher) writeLoop() {
	defer close(w.done)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-w.out:
			if !ok {
				_ = w.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-ticker.C:
			if err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades the request and pushes a "board" message on every change.
// Watchers may send {"type":"refresh"} to get the current board again.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	// The server's write deadline would otherwise outlive the handshake.
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

	updates, cancel, err := h.service.Watch(r.Context(), quizID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err.Error()))
		return
	}
	defer cancel()

	ws := &watcher{conn: conn, out: make(chan outboundMessage, 16), done: make(chan struct{})}
	go ws.writeLoop()

	readerDone := make(chan struct{})
	forwardDone := make(chan struct{})
	go func() {
		defer close(forwardDone)
		for {
			select {
			case board, ok := <-updates:
				if !ok || !ws.push(outboundMessage{Type: "board", Payload: board}) {
					return
				}
			case <-readerDone:
				return
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	h.readLoop(r, quizID, ws)

	close(readerDone)
	<-forwardDone
	close(ws.out)
	<-ws.done
}

func (h *WSHandler) readLoop(r *http.Request, quizID string, ws *watcher) {
	for {
		var inbound inboundMessage
		if err := ws.conn.ReadJSON(&inbound); err != nil {
			return
		}
		_ = ws.conn.SetReadDeadline(time.Now().Add(pongWait))

		msg := errorMessage("unsupported message type")
		if inbound.Type == "refresh" {
			board, err := h.service.Board(r.Context(), quizID)
			if err != nil {
				msg = errorMessage(err.Error())
			} else {
				msg = outboundMessage{Type: "board", Payload: board}
			}
		}
		if !ws.push(msg) {
			return
		}
	}
}
