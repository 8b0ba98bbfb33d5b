package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/relionflow/api/internal/model"
)

// Client is one websocket subscriber to a job's status stream.
type Client struct {
	JobID string
	Conn  *websocket.Conn
	Send  chan []byte
}

// Hub fans job status messages out to subscribed clients. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	log        *slog.Logger
}

// BroadcastMessage is a payload addressed to a job's subscribers.
type BroadcastMessage struct {
	JobID   string
	Message []byte
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		log:        logger,
	}
}

// Run processes registrations and broadcasts until ctx is done. On return
// every client's Send channel is closed and later Register and Unregister
// calls return immediately. Run must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.clients {
				for client := range clients {
					h.drop(client)
				}
			}
			return

		case client := <-h.register:
			if h.clients[client.JobID] == nil {
				h.clients[client.JobID] = make(map[*Client]bool)
			}
			h.clients[client.JobID][client] = true
			h.log.Debug("websocket client registered", "job_id", client.JobID)

		case client := <-h.unregister:
			h.drop(client)
			h.log.Debug("websocket client unregistered", "job_id", client.JobID)

		case msg := <-h.broadcast:
			for client := range h.clients[msg.JobID] {
				select {
				case client.Send <- msg.Message:
				default:
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	clients, ok := h.clients[client.JobID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.JobID)
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastStatus publishes the job's current status. It never blocks
// the caller: when the buffer is full the message is dropped.
func (h *Hub) BroadcastStatus(job *model.JobRecord) {
	h.send(job.ID, model.WSStatusMessage{
		Type:    model.WSMessageTypeStatus,
		JobID:   job.ID,
		JobName: job.JobName,
		Status:  job.Status,
		QueueID: job.QueueID,
		Error:   job.Error,
	})
}

func (h *Hub) BroadcastError(jobID string, code, message string) {
	h.send(jobID, model.WSErrorMessage{
		Type:  model.WSMessageTypeError,
		JobID: jobID,
		Error: model.WSError{
			Code:    code,
			Message: message,
		},
	})
}

func (h *Hub) send(jobID string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal websocket message", "error", err)
		return
	}
	select {
	case h.broadcast <- &BroadcastMessage{JobID: jobID, Message: data}:
	default:
		h.log.Warn("websocket broadcast buffer full, dropping message", "job_id", jobID)
	}
}

// HandleConnection serves one websocket until the peer disconnects.
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string, initial *model.JobRecord) {
	client := &Client{
		JobID: jobID,
		Conn:  c,
		Send:  make(chan []byte, 256),
	}

	h.Register(client)
	defer h.Unregister(client)

	if initial != nil {
		h.BroadcastStatus(initial)
	}

	pong := make(chan struct{}, 1)

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-pong:
				data, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
				if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket error", "job_id", jobID, "error", err)
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			select {
			case pong <- struct{}{}:
			default:
			}
		}
	}
}
