package model

import "time"

const (
	OrderStatusNew        = "new"
	OrderStatusDelivering = "delivering"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

var ValidOrderStatuses = []string{OrderStatusNew, OrderStatusDelivering, OrderStatusCompleted, OrderStatusCancelled}

const (
	PaymentCard   = "card"
	PaymentOnline = "online"
)

type Order struct {
	ID          string      `json:"id"`
	OrderNumber int64       `json:"orderNumber"`
	CustomerID  string      `json:"customerId"`
	Status      string      `json:"status"`
	TotalAmount float64     `json:"totalAmount"`
	Payment     string      `json:"payment"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Address     string      `json:"address"`
	Comment     string      `json:"comment,omitempty"`
	Products    []OrderItem `json:"products"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ProductID string  `json:"productId"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
}

type OrderFilter struct {
	Page            int
	Limit           int
	SortField       string
	SortOrder       string
	Status          string
	TotalAmountFrom *float64
	TotalAmountTo   *float64
	OrderDateFrom   *time.Time
	OrderDateTo     *time.Time
	Search          string
	CustomerID      string
}

type CustomerFilter struct {
	Page                 int
	Limit                int
	SortField            string
	SortOrder            string
	RegistrationDateFrom *time.Time
	RegistrationDateTo   *time.Time
	Search               string
}
