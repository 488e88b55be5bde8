package websocket

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

type Client struct {
	UserID   uuid.UUID
	Role     string
	TenantID *uuid.UUID
	Conn     *websocket.Conn
}

// PaymentEvent is pushed to dashboards whenever a transaction resolves, giving
// connected clients an alternative to polling the query endpoint.
type PaymentEvent struct {
	CheckoutRequestID string     `json:"checkout_request_id"`
	Status            string     `json:"status"`
	Amount            float64    `json:"amount"`
	Receipt           *string    `json:"receipt,omitempty"`
	TenantID          *uuid.UUID `json:"tenant_id,omitempty"`
	RentPeriodID      *uuid.UUID `json:"rent_period_id,omitempty"`
}

var clients = make(map[uuid.UUID]*Client)
var clientsMu sync.RWMutex
var Register = make(chan *Client)
var Unregister = make(chan *Client)
var Broadcast = make(chan *PaymentEvent, 16)

func RunHub() {
	for {
		select {
		case client := <-Register:
			log.Printf("Payment feed client registered: %s", client.UserID)
			clientsMu.Lock()
			clients[client.UserID] = client
			clientsMu.Unlock()
		case client := <-Unregister:
			log.Printf("Payment feed client unregistered: %s", client.UserID)
			clientsMu.Lock()
			if existing, ok := clients[client.UserID]; ok && existing.Conn == client.Conn {
				delete(clients, client.UserID)
			}
			clientsMu.Unlock()
		case event := <-Broadcast:
			deliver(event)
		}
	}
}

// deliver sends the event to every admin and to the tenant it concerns.
func deliver(event *PaymentEvent) {
	var failed []uuid.UUID

	clientsMu.RLock()
	for userID, client := range clients {
		if client.Role != "admin" {
			if event.TenantID == nil || client.TenantID == nil || *client.TenantID != *event.TenantID {
				continue
			}
		}
		if err := client.Conn.WriteJSON(event); err != nil {
			log.Printf("Error sending payment event to client %s: %v", userID, err)
			client.Conn.Close()
			failed = append(failed, userID)
		}
	}
	clientsMu.RUnlock()

	if len(failed) > 0 {
		clientsMu.Lock()
		for _, userID := range failed {
			delete(clients, userID)
		}
		clientsMu.Unlock()
	}
}

// NotifyResolved is the hook the reconciliation path calls; it never blocks.
func NotifyResolved(event PaymentEvent) {
	select {
	case Broadcast <- &event:
	default:
		log.Println("Payment event dropped: broadcast buffer full")
	}
}
