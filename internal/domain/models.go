package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money goes over the wire as JSON numbers, matching what clients send.
	decimal.MarshalJSONWithoutQuotes = true
}

type Distributor struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	ContactNumber string    `json:"contactNumber,omitempty"`
	Address       string    `json:"address,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type DistributorRequest struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	ContactNumber string `json:"contactNumber"`
	Address       string `json:"address"`
}

type Product struct {
	Name     string          `json:"name" validate:"required"`
	Quantity int             `json:"quantity" validate:"gte=1"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
}

type InvoiceImage struct {
	URL       string `json:"url"`
	StorageID string `json:"storageId"`
}

type InvoiceStatus string

const (
	InvoiceStatusDone  InvoiceStatus = "done"
	InvoiceStatusToPay InvoiceStatus = "topay"
)

type Invoice struct {
	ID            string          `json:"id"`
	DistributorID string          `json:"distributorId"`
	InvoiceNumber string          `json:"invoiceNumber,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	ToPayAmount   decimal.Decimal `json:"toPayAmount"`
	Products      []Product       `json:"products"`
	Image         *InvoiceImage   `json:"invoiceImage,omitempty"`
	ToPayDate     *time.Time      `json:"toPayDate,omitempty"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	Status        InvoiceStatus   `json:"status"`
	DaysOverdue   int             `json:"daysOverdue"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// InvoiceCreateRequest carries no status or toPayAmount: both are always derived.
type InvoiceCreateRequest struct {
	DistributorID string           `json:"distributorId" validate:"required"`
	InvoiceNumber string           `json:"invoiceNumber"`
	Amount        *decimal.Decimal `json:"amount" validate:"required,gte=0"`
	PaidAmount    *decimal.Decimal `json:"paidAmount"`
	Products      []Product        `json:"products" validate:"dive"`
	ToPayDate     string           `json:"toPayDate"`
	DueDate       string           `json:"dueDate"`
}

// InvoiceUpdateRequest is a partial update; nil fields are left untouched.
type InvoiceUpdateRequest struct {
	DistributorID *string          `json:"distributorId,omitempty" validate:"omitempty,min=1"`
	InvoiceNumber *string          `json:"invoiceNumber,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,gte=0"`
	PaidAmount    *decimal.Decimal `json:"paidAmount,omitempty"`
	Products      *[]Product       `json:"products,omitempty" validate:"omitempty,dive"`
	ToPayDate     *string          `json:"toPayDate,omitempty"`
	DueDate       *string          `json:"dueDate,omitempty"`
}

type InvoiceFilter struct {
	DistributorID string
}

type Payment struct {
	ID              string          `json:"id"`
	DistributorID   string          `json:"distributorId"`
	DistributorName string          `json:"distributorName"`
	InvoiceID       string          `json:"invoiceId"`
	InvoiceNumber   string          `json:"invoiceNumber"`
	Amount          decimal.Decimal `json:"amount"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type PaymentRequest struct {
	DistributorID string           `json:"distributorId" validate:"required"`
	InvoiceID     string           `json:"invoiceId" validate:"required"`
	Amount        *decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

type PaymentResponse struct {
	Message string  `json:"message"`
	Payment Payment `json:"payment"`
	Invoice Invoice `json:"invoice"`
}

type PaymentFilter struct {
	DistributorID string
	InvoiceID     string
}

// ImageUpload is an image file received from a client, before it is stored.
type ImageUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string      `json:"accessToken"`
	ExpiresAt   string      `json:"expiresAt"`
	User        UserSummary `json:"user"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UserSummary struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
