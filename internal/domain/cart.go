package domain

import "time"

// Cart is the per-user line-item ledger. It is persisted wholesale as a
// single slot keyed by user; Version backs the optimistic save.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Items     []LineItem `json:"items"`
	Currency  string     `json:"currency"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// LineItem is a single cart entry. Identity is (ProductID, Size): the cart
// holds at most one entry per pair, and price and product fields are fixed
// at the time the entry is first added.
type LineItem struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Size        string `json:"size"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
	Image       string `json:"image,omitempty"`
}

// TotalAmount calculates the total price of all items in the cart (in cents).
func (c *Cart) TotalAmount() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// ItemCount returns the total number of units across all entries.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItemIndex returns the index of the entry matching the given product ID
// and size, or -1 if no such entry exists.
func (c *Cart) FindItemIndex(productID, size string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].Size == size {
			return i
		}
	}
	return -1
}

// IsEmpty reports whether the cart has no entries.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
