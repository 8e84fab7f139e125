package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"foodsaver/internal/scanner"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client message types
const (
	MessageScan    = "scan"
	MessageConfirm = "confirm"
	MessageCancel  = "cancel"
)

// Server message types
const (
	MessageProcessing = "processing"
	MessageItems      = "items"
	MessageImported   = "imported"
	MessageCancelled  = "cancelled"
	MessageError      = "error"
)

// ScanRequest is a message sent by the client
type ScanRequest struct {
	Type     string `json:"type"`
	MimeType string `json:"mimeType,omitempty"`
	// Image is the base64 encoded receipt photo of a scan message
	Image string `json:"image,omitempty"`
}

// ScanEvent is a message sent to the client
type ScanEvent struct {
	Type     string      `json:"type"`
	Items    interface{} `json:"items,omitempty"`
	Rejected interface{} `json:"rejected,omitempty"`
	Added    interface{} `json:"added,omitempty"`
	Error    string      `json:"error,omitempty"`
	Code     string      `json:"code,omitempty"`
}

// wsConnection maintains one scanner session over a WebSocket
type wsConnection struct {
	conn    *websocket.Conn
	send    chan []byte
	session *scanner.Session
	api     *TrackerAPI
	logger  *logrus.Entry
}

// ScanSocket upgrades to a WebSocket and runs a scanner session until the
// client disconnects
func (a *TrackerAPI) ScanSocket(c *gin.Context) {
	if !a.scanningEnabled(c) {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to upgrade connection")
		return
	}

	opts := []scanner.Option{
		scanner.WithClock(a.tracker.Now),
		scanner.WithTimeout(a.scanTimeout),
		scanner.WithLogger(a.logger),
	}
	if a.collector != nil {
		opts = append(opts, scanner.WithRecorder(a.collector))
	}

	ws := &wsConnection{
		conn:    conn,
		send:    make(chan []byte, 16),
		session: scanner.NewSession(a.extractor, opts...),
		api:     a,
		logger:  a.logger.WithField("remote", conn.RemoteAddr().String()),
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	forwarded := make(chan struct{})
	go ws.writePump()
	go func() {
		defer close(forwarded)
		ws.forwardResults()
	}()

	ws.readPump(ctx)

	// closing the session discards any scan in flight
	ws.session.Close()
	<-forwarded
	close(ws.send)
}

// readPump pumps messages from the WebSocket connection to the session
func (ws *wsConnection) readPump(ctx context.Context) {
	defer ws.conn.Close()

	// base64 grows the image by a third
	ws.conn.SetReadLimit(ws.api.maxImageBytes/3*4 + 4096)
	ws.conn.SetReadDeadline(time.Now().Add(pongWait))
	ws.conn.SetPongHandler(func(string) error {
		ws.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := ws.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.logger.WithError(err).Warn("WebSocket error")
			}
			return
		}
		ws.conn.SetReadDeadline(time.Now().Add(pongWait))
		ws.handleMessage(ctx, message)
	}
}

// writePump pumps messages from the server to the WebSocket connection
func (ws *wsConnection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.conn.Close()
	}()

	for {
		select {
		case message, ok := <-ws.send:
			ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The channel was closed
				ws.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// forwardResults relays finished scans until the session closes
func (ws *wsConnection) forwardResults() {
	for result := range ws.session.Results() {
		if result.Err != nil {
			ws.sendError(result.Err)
			continue
		}
		ws.sendEvent(ScanEvent{Type: MessageItems, Items: result.Drafts, Rejected: result.Rejected})
	}
}

// handleMessage processes incoming messages
func (ws *wsConnection) handleMessage(ctx context.Context, message []byte) {
	var req ScanRequest
	if err := json.Unmarshal(message, &req); err != nil {
		ws.sendEvent(ScanEvent{Type: MessageError, Error: "invalid message: " + err.Error(), Code: "invalid_message"})
		return
	}

	switch req.Type {
	case MessageScan:
		image, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			ws.sendEvent(ScanEvent{Type: MessageError, Error: "image is not base64", Code: "invalid_message"})
			return
		}
		if err := ws.session.Start(ctx, image, req.MimeType); err != nil {
			ws.sendError(err)
			return
		}
		ws.sendEvent(ScanEvent{Type: MessageProcessing})

	case MessageConfirm:
		result, err := ws.session.Confirm(ctx, ws.api.tracker)
		if err != nil {
			ws.sendError(err)
			return
		}
		ws.sendEvent(ScanEvent{Type: MessageImported, Added: result.Added, Rejected: result.Rejected})

	case MessageCancel:
		ws.session.Cancel()
		ws.sendEvent(ScanEvent{Type: MessageCancelled})

	default:
		ws.sendEvent(ScanEvent{Type: MessageError, Error: "unknown message type: " + req.Type, Code: "invalid_message"})
	}
}

func (ws *wsConnection) sendError(err error) {
	_, code := errorStatus(err)
	ws.sendEvent(ScanEvent{Type: MessageError, Error: err.Error(), Code: code})
}

// sendEvent queues an event for the write pump
func (ws *wsConnection) sendEvent(event ScanEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		ws.logger.WithError(err).Error("Error marshaling scan event")
		return
	}

	select {
	case ws.send <- data:
	default:
		ws.logger.Warn("WebSocket buffer full, dropping message")
	}
}
