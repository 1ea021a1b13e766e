package domain

// OrderLine is one line of a paid order
type OrderLine struct {
	ID         string `json:"id"`
	ProductSKU string `json:"productSku"`
	Quantity   int    `json:"quantity"`
}

// Order is the part of the ORDER_FULLY_PAID payload the credits app reads
type Order struct {
	ID        string      `json:"id"`
	Number    string      `json:"number"`
	UserEmail string      `json:"userEmail"`
	Lines     []OrderLine `json:"lines"`
}
