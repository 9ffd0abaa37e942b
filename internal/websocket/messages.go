package websocket

import (
	"time"

	"marketmaker/internal/models"
)

// EventMessage - проводной формат одного события шины для подписчиков
// /ws/stream. Повторяет форму models.Event, но хранит Decimal-значения
// как строки, чтобы не тянуть decimal.Decimal через внешнюю границу.
type EventMessage struct {
	Kind      string    `json:"kind"`
	Pair      string    `json:"pair,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	Value     string    `json:"value,omitempty"`
	Orders    []Order   `json:"orders,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Order - проводное представление одного ордера внутри EventMessage.
type Order struct {
	ID      string    `json:"id"`
	Type    string    `json:"type,omitempty"`
	Amount  string    `json:"amount,omitempty"`
	Price   string    `json:"price,omitempty"`
	Created time.Time `json:"created,omitempty"`
}

// NewEventMessage переводит models.Event в проводной формат для Hub.Broadcast.
func NewEventMessage(e models.Event) *EventMessage {
	msg := &EventMessage{
		Kind:      e.Kind.String(),
		Timestamp: time.Now(),
	}

	if e.Pair != (models.CurrencyPair{}) {
		msg.Pair = e.Pair.String()
	}
	if e.Currency.Name != "" {
		msg.Currency = e.Currency.Name
	}
	if !e.Value.IsZero() {
		msg.Value = e.Value.String()
	}
	if len(e.Orders) > 0 {
		msg.Orders = make([]Order, len(e.Orders))
		for i, o := range e.Orders {
			msg.Orders[i] = Order{
				ID:      o.ID,
				Type:    o.Type.String(),
				Amount:  o.Amount.String(),
				Price:   o.Price.String(),
				Created: o.Created,
			}
		}
	}

	return msg
}
