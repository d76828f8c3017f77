package model

import "github.com/shopspring/decimal"

// DeliveryInfo is the shipping address attached to an order.
type DeliveryInfo struct {
	DeliveryName   string `json:"deliveryName"`
	DeliveryStreet string `json:"deliveryStreet"`
	DeliveryCity   string `json:"deliveryCity"`
	DeliveryState  string `json:"deliveryState"`
	DeliveryZip    string `json:"deliveryZip"`
}

// Checkout is the POST /orders payload (address plus payment card).
type Checkout struct {
	DeliveryName   string `json:"deliveryName" validate:"required,max=100"`
	DeliveryStreet string `json:"deliveryStreet" validate:"required,max=255"`
	DeliveryCity   string `json:"deliveryCity" validate:"required,max=100"`
	DeliveryState  string `json:"deliveryState" validate:"required,len=2,alpha"`
	DeliveryZip    string `json:"deliveryZip" validate:"required,zip"`
	CCNumber       string `json:"ccNumber" validate:"required,len=16,number"`
	CCExpiration   string `json:"ccExpiration" validate:"required,mmyy,mmyy_future"`
	CCCvv          string `json:"ccCvv" validate:"required,len=3,number"`
}

// OrderItem is one purchased line.
type OrderItem struct {
	ArticleID          int64           `json:"articleId"`
	ArticleName        string          `json:"articleName"`
	ArticleDescription string          `json:"articleDescription,omitempty"`
	ImageURL           string          `json:"imageUrl,omitempty"`
	Price              decimal.Decimal `json:"price"`
	Quantity           int             `json:"quantity"`
	TotalPrice         decimal.Decimal `json:"totalPrice"`
	Currency           string          `json:"currency"`
}

// Order is a placed order as listed by /orders/my and /admin/orders.
type Order struct {
	OrderID       int64           `json:"orderId"`
	OrderNumber   string          `json:"orderNumber,omitempty"`
	OrderDate     string          `json:"orderDate"`
	Status        string          `json:"status"`
	CustomerName  string          `json:"customerName,omitempty"`
	CustomerEmail string          `json:"customerEmail,omitempty"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	TotalItems    int             `json:"totalItems"`
	Currency      string          `json:"currency"`
	Items         []OrderItem     `json:"items,omitempty"`
	DeliveryInfo  *DeliveryInfo   `json:"deliveryInfo,omitempty"`
}

// OrderStats summarizes a visible page of orders for the admin panel.
type OrderStats struct {
	TotalOrders     int             `json:"totalOrders"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	UniqueCustomers int             `json:"uniqueCustomers"`
}

// Profile is the GET /profile body.
type Profile struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// ProfileUpdate is the PUT /profile body.
type ProfileUpdate struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,max=255,email_loose"`
	Phone string `json:"phone,omitempty" validate:"omitempty,phone"`
}

// PasswordChange is the change-password form; ConfirmPassword stays local.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,nefield=CurrentPassword"`
	ConfirmPassword string `json:"-" validate:"required,eqfield=NewPassword"`
}

// ImageUpload is the POST /profile/image response.
type ImageUpload struct {
	ImageURL string `json:"imageUrl"`
}
