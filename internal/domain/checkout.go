package domain

// CheckoutRedirect describes the payment hand-off produced by a prepared
// checkout. Fields is the opaque payment payload from the order service,
// rendered verbatim as hidden form inputs; the storefront never inspects it.
type CheckoutRedirect struct {
	OrderID     string            `json:"orderId"`
	CheckoutURL string            `json:"checkoutUrl"`
	Method      string            `json:"method"`
	Fields      map[string]string `json:"fields"`
}

// ReconciliationResult is the outcome of resolving an order after the
// payment redirect returns. CartCleared reports whether this resolution
// cleared the cart (true only on the first observation of a paid order
// while the cart still had items).
type ReconciliationResult struct {
	Order       *Order `json:"order"`
	CartCleared bool   `json:"cartCleared"`
}
