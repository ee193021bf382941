package domain

import "time"

// Order status constants. These are wire values owned by the order service;
// the storefront only observes them.
const (
	OrderStatusPending   = "Pending"
	OrderStatusPaid      = "Paid"
	OrderStatusFailed    = "Failed"
	OrderStatusCancelled = "Cancelled"
	OrderStatusDelivered = "Delivered"
)

// Order is the order record as returned by the order service.
type Order struct {
	OrderID     string     `json:"orderId"`
	Status      string     `json:"status"`
	Items       []LineItem `json:"items"`
	TotalAmount int64      `json:"totalAmount"`
	Currency    string     `json:"currency,omitempty"`
	PaymentID   string     `json:"paymentId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ValidStatuses returns all order statuses the storefront understands.
func ValidStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusPaid,
		OrderStatusFailed,
		OrderStatusCancelled,
		OrderStatusDelivered,
	}
}

// IsValidStatus checks if a status string is one the storefront understands.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions defines the status transitions the storefront may
// observe between consecutive fetches of the same order.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:   {OrderStatusPaid, OrderStatusFailed, OrderStatusCancelled},
		OrderStatusPaid:      {OrderStatusDelivered},
		OrderStatusFailed:    {},
		OrderStatusCancelled: {},
		OrderStatusDelivered: {},
	}
}

// CanTransitionTo checks whether the order may move to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// IsPaid reports whether the order has a confirmed payment. Delivered
// implies Paid since delivery only follows payment.
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid || o.Status == OrderStatusDelivered
}

// IsTerminal reports whether the order can no longer change except for
// delivery of a paid order.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusPaid, OrderStatusFailed, OrderStatusCancelled, OrderStatusDelivered:
		return true
	}
	return false
}
