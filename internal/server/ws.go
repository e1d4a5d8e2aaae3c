package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"exchange_go/internal/domain"
	"exchange_go/internal/infra"
)

const writeTimeout = 5 * time.Second

// Event is one UI update pushed to connected clients. The six numeric
// displays of the screen are fed by balance and commission events; the info
// line and error toast by outcome events.
type Event struct {
	Type    string           `json:"type"` // "balance", "commission" or "outcome"
	Code    domain.Code      `json:"code,omitempty"`
	Value   *decimal.Decimal `json:"value,omitempty"`
	Outcome *domain.Outcome  `json:"outcome,omitempty"`
}

// wsClient is one connected UI. Writes are serialized per connection.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub broadcasts session events to every connected websocket client. It is
// the push boundary standing in for the original screen's observable
// bindings: clients receive values, they never poll.
type Hub struct {
	upgrader websocket.Upgrader
	metrics  *infra.Metrics

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// NewHub creates an empty hub
func NewHub(metrics *infra.Metrics) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		metrics: metrics,
		clients: make(map[*wsClient]struct{}),
	}
}

// OnBalanceChanged implements the session listener contract
func (h *Hub) OnBalanceChanged(code domain.Code, balance decimal.Decimal) {
	h.broadcast(Event{Type: "balance", Code: code, Value: &balance})
}

// OnCommissionChanged implements the session listener contract
func (h *Hub) OnCommissionChanged(code domain.Code, commission decimal.Decimal) {
	h.broadcast(Event{Type: "commission", Code: code, Value: &commission})
}

// OnOutcome implements the session listener contract
func (h *Hub) OnOutcome(outcome domain.Outcome) {
	h.broadcast(Event{Type: "outcome", Outcome: &outcome})
}

func (h *Hub) broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshaling event failed", slog.Any("error", err))
		return
	}

	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.send(payload); err != nil {
			h.drop(c)
		}
	}
}

// Attach upgrades the request to a websocket, replays the current ledger
// values to the new client and keeps the connection until the client leaves.
func (h *Hub) Attach(w http.ResponseWriter, r *http.Request, snapshot domain.LedgerSnapshot) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &wsClient{conn: conn}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.metrics.IncrementClients()

	// seed the new client with the current six values
	for _, code := range domain.Codes() {
		balance := snapshot.Balances[code]
		commission := snapshot.Commissions[code]
		h.sendEvent(client, Event{Type: "balance", Code: code, Value: &balance})
		h.sendEvent(client, Event{Type: "commission", Code: code, Value: &commission})
	}

	go h.readLoop(client)
}

func (h *Hub) sendEvent(c *wsClient, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := c.send(payload); err != nil {
		h.drop(c)
	}
}

// readLoop drains the connection to detect the client going away. Clients
// never send application messages.
func (h *Hub) readLoop(c *wsClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *wsClient) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if present {
		h.metrics.DecrementClients()
		c.conn.Close()
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.drop(c)
	}
}
