package controllers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/overunder/overunder/modules/gradebook/services"
	"github.com/overunder/overunder/pkg/application"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamSendBuffer   = 16
)

// StreamController pushes accepted edits to every open gradebook view over
// a websocket, so concurrent editors see each other's changes without
// polling.
type StreamController struct {
	app      application.Application
	log      logrus.FieldLogger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*streamClient]struct{}
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewStreamController(app application.Application) application.Controller {
	c := &StreamController{
		app: app,
		log: app.Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*streamClient]struct{}),
	}
	app.EventPublisher().Subscribe(c.onScoreSaved)
	return c
}

func (c *StreamController) Key() string {
	return "/ws"
}

func (c *StreamController) Register(r *mux.Router) {
	r.HandleFunc("/ws", c.Serve).Methods(http.MethodGet)
}

func (c *StreamController) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	client := &streamClient{conn: conn, send: make(chan []byte, streamSendBuffer)}

	c.mu.Lock()
	c.clients[client] = struct{}{}
	c.mu.Unlock()

	go c.writeLoop(client)
	c.readLoop(client)
}

// readLoop drains incoming frames so pings and close frames are handled;
// clients never send application data.
func (c *StreamController) readLoop(client *streamClient) {
	defer c.drop(client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *StreamController) writeLoop(client *streamClient) {
	for message := range client.send {
		_ = client.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.drop(client)
			return
		}
	}
	_ = client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (c *StreamController) drop(client *streamClient) {
	c.mu.Lock()
	if _, ok := c.clients[client]; ok {
		delete(c.clients, client)
		close(client.send)
	}
	c.mu.Unlock()
	_ = client.conn.Close()
}

type scoreSavedMessage struct {
	Alias         string                 `json:"alias"`
	QualifiedName string                 `json:"qualifiedName"`
	Value         string                 `json:"value"`
	Updates       []services.ScoreUpdate `json:"updates"`
}

func (c *StreamController) onScoreSaved(event *services.ScoreSavedEvent) {
	message, err := json.Marshal(scoreSavedMessage{
		Alias:         event.Alias,
		QualifiedName: event.QualifiedName,
		Value:         event.Value,
		Updates:       event.Updates,
	})
	if err != nil {
		c.log.WithError(err).Error("marshaling score event")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for client := range c.clients {
		select {
		case client.send <- message:
		default:
			// Slow consumer; it will reconnect.
			delete(c.clients, client)
			close(client.send)
			_ = client.conn.Close()
		}
	}
}
