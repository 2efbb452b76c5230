package models

import (
	"encoding/json"
	"fmt"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPrinting  OrderStatus = "printing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
)

var OrderStatuses = []OrderStatus{OrderPending, OrderPrinting, OrderReady, OrderDelivered}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPrinting, OrderReady, OrderDelivered:
		return true
	}
	return false
}

// OrderAction is a staff-triggered transition. Each maps to its own backend
// endpoint; the client never writes a status directly.
type OrderAction string

const (
	ActionAccept  OrderAction = "accept"
	ActionReject  OrderAction = "reject"
	ActionPrint   OrderAction = "print"
	ActionDeliver OrderAction = "deliver"
)

func ParseOrderAction(s string) (OrderAction, error) {
	switch a := OrderAction(s); a {
	case ActionAccept, ActionReject, ActionPrint, ActionDeliver:
		return a, nil
	}
	return "", fmt.Errorf("unknown order action %q", s)
}

// AllowedActions lists the controls a view may offer for an order in status s.
func AllowedActions(s OrderStatus) []OrderAction {
	switch s {
	case OrderPending:
		return []OrderAction{ActionAccept, ActionReject}
	case OrderPrinting:
		return []OrderAction{ActionPrint}
	case OrderReady:
		return []OrderAction{ActionDeliver}
	}
	return nil
}

// Next reports the status an order reaches when action succeeds from s.
// Rejected orders leave the workflow, so their next status is empty.
func (s OrderStatus) Next(action OrderAction) (OrderStatus, bool) {
	switch {
	case s == OrderPending && action == ActionAccept:
		return OrderPrinting, true
	case s == OrderPending && action == ActionReject:
		return "", true
	case s == OrderPrinting && action == ActionPrint:
		return OrderReady, true
	case s == OrderReady && action == ActionDeliver:
		return OrderDelivered, true
	}
	return "", false
}

type OrderStudent struct {
	ID          string `json:"id,omitempty"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// OrderLine is one material of an order. On the wire it is a
// [material, quantity] pair.
type OrderLine struct {
	Material Material
	Quantity int
}

func (l *OrderLine) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("order line: expected 2 elements, got %d", len(pair))
		}
		if err := json.Unmarshal(pair[0], &l.Material); err != nil {
			return fmt.Errorf("order line material: %w", err)
		}
		if err := json.Unmarshal(pair[1], &l.Quantity); err != nil {
			return fmt.Errorf("order line quantity: %w", err)
		}
		return nil
	}

	var obj struct {
		Material Material `json:"material"`
		Quantity int      `json:"quantity"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("order line: %w", err)
	}
	l.Material, l.Quantity = obj.Material, obj.Quantity
	return nil
}

func (l OrderLine) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{l.Material, l.Quantity})
}

func (l OrderLine) Subtotal() float64 {
	return l.Material.PriceDZD * float64(l.Quantity)
}

type Order struct {
	ID              string        `json:"id"`
	Student         *OrderStudent `json:"student,omitempty"`
	Items           []OrderLine   `json:"item"`
	Status          OrderStatus   `json:"status"`
	CreatedAt       Timestamp     `json:"created_at"`
	AppointmentDate *Timestamp    `json:"appointment_date,omitempty"`
}

func (o *Order) UnmarshalJSON(data []byte) error {
	type alias Order
	aux := struct {
		*alias
		LegacyID string `json:"_id"`
	}{alias: (*alias)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if o.ID == "" {
		o.ID = aux.LegacyID
	}
	return nil
}

func (o Order) Total() float64 {
	var total float64
	for _, line := range o.Items {
		total += line.Subtotal()
	}
	return total
}

func (o Order) ItemCount() int {
	var n int
	for _, line := range o.Items {
		n += line.Quantity
	}
	return n
}

type MarkReadyRequest struct {
	AppointmentDate *Timestamp `json:"appointment_date,omitempty"`
}
