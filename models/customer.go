package models

type Customer struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Phone        string   `json:"phone"`
	OrderHistory []string `json:"order_history,omitempty"`
}
