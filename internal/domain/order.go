package domain

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

func (s OrderStatus) String() string {
	return string(s)
}

// OrderRequestItem is one line of POST /order.
type OrderRequestItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// OrderRequest is the body of POST /order.
type OrderRequest struct {
	UserID int64              `json:"userId"`
	Status OrderStatus        `json:"status"`
	Items  []OrderRequestItem `json:"items"`
}

type OrderItem struct {
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Order is the order service's view of a created order.
type Order struct {
	ID         int64       `json:"id"`
	UserID     int64       `json:"userId"`
	Status     OrderStatus `json:"status"`
	OrderItems []OrderItem `json:"orderItems"`
	CreatedAt  string      `json:"createdAt"`
}
