// Package transport is an optional, demo-only WebSocket adapter that
// exposes a pipeline.Pipeline's outbound streams to external observers.
// It is not part of the core embeddable API (spec §6 names no wire
// protocol for the core itself) — this package only gives the reference
// command a way to show the pipeline's output in a browser.
package transport

import (
	"encoding/json"
	"log"
	"net/http"

	"biosignal/internal/model"
	"biosignal/internal/pipeline"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame is the envelope every outbound WebSocket message is wrapped in.
// Kind discriminates Payload's shape on the client.
type Frame struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload"`
}

const (
	KindFiducial = "fiducial"
	KindQtEvent  = "qt_event"
	KindMetric   = "metric"
	KindDisplay  = "display"
)

// Hub maintains the set of connected clients and fans out frames
// collected from a Pipeline's subscriptions.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan Frame
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Frame, 256),
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			log.Printf("transport: client connected (%d total)", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				log.Printf("transport: client disconnected (%d total)", len(h.clients))
			}
		case frame := <-h.broadcast:
			msg, err := json.Marshal(frame)
			if err != nil {
				log.Printf("transport: failed to encode frame: %v", err)
				continue
			}
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client — drop this frame rather than block the hub.
				}
			}
		}
	}
}

// Client wraps one upgraded WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Server owns the hub and the pump goroutines feeding it from a
// pipeline's subscriptions.
type Server struct {
	hub *Hub
	p   *pipeline.Pipeline
}

// New creates a transport server over p. Call Start to launch the pump
// goroutines and begin serving.
func New(p *pipeline.Pipeline) *Server {
	return &Server{hub: newHub(), p: p}
}

// Start launches the hub, the pipeline-pump goroutines, and an HTTP
// server exposing a single "/ws" endpoint. Blocks until ListenAndServe
// returns an error.
func (s *Server) Start(addr string) error {
	go s.hub.run()
	go s.pumpFiducials()
	go s.pumpQtEvents()
	go s.pumpDisplay()
	go s.pumpMetrics()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.serveWs(w, r)
	})

	log.Printf("transport: listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) pumpFiducials() {
	for fp := range s.p.SubscribeFiducials(256) {
		s.hub.broadcast <- Frame{Kind: KindFiducial, Payload: fp}
	}
}

func (s *Server) pumpQtEvents() {
	for ev := range s.p.SubscribeQtEvents(64) {
		s.hub.broadcast <- Frame{Kind: KindQtEvent, Payload: ev}
	}
}

func (s *Server) pumpDisplay() {
	for ds := range s.p.SubscribeDisplay(4096) {
		s.hub.broadcast <- Frame{Kind: KindDisplay, Payload: ds}
	}
}

func (s *Server) pumpMetrics() {
	for m := range s.p.Store.Subscribe(256) {
		s.hub.broadcast <- Frame{Kind: KindMetric, Payload: metricPayloadOf(m)}
	}
}

// metricPayload mirrors spec §6's MetricStream shape.
type metricPayload struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Precision int     `json:"precision"`
}

func metricPayloadOf(m model.Metric) metricPayload {
	return metricPayload{Name: m.Name, Value: m.Value, Unit: m.Unit, Precision: m.Precision}
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("transport: upgrade failed: %v", err)
		return
	}
	client := &Client{hub: s.hub, conn: conn, send: make(chan []byte, 256)}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		if err := w.Close(); err != nil {
			return
		}
	}
}
