package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"invoicebook/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError reports rejected request fields, keyed by field name with
// the failed rule as value. It matches ErrInvalidInput.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", key, e.Fields[key]))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, ","))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func Invalid(message string) error {
	return &ValidationError{Message: message}
}

// DistributorInUseError blocks deleting a distributor that invoices still
// reference. It matches ErrConflict.
type DistributorInUseError struct {
	DistributorID string
	InvoiceCount  int
}

func (e *DistributorInUseError) Error() string {
	return fmt.Sprintf("distributor %s is referenced by %d invoice(s)", e.DistributorID, e.InvoiceCount)
}

func (e *DistributorInUseError) Is(target error) bool {
	return target == ErrConflict
}

type Repository interface {
	CreateDistributor(ctx context.Context, distributor domain.Distributor) (*domain.Distributor, error)
	GetDistributor(ctx context.Context, id string) (*domain.Distributor, error)
	ListDistributors(ctx context.Context) ([]domain.Distributor, error)
	UpdateDistributor(ctx context.Context, distributor domain.Distributor) (*domain.Distributor, error)
	// DeleteDistributor removes the distributor only when no invoice
	// references it, otherwise it returns *DistributorInUseError.
	DeleteDistributor(ctx context.Context, id string) error

	CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error)
	// UpdateInvoice runs apply on the current record and persists the result
	// in one unit, so a payment landing concurrently is not overwritten. It
	// returns the saved invoice and the record as it was before apply.
	UpdateInvoice(ctx context.Context, id string, apply func(*domain.Invoice)) (*domain.Invoice, *domain.Invoice, error)
	DeleteInvoice(ctx context.Context, id string) (*domain.Invoice, error)

	// RecordPayment inserts the payment and applies its amount to the invoice
	// as one unit: either both writes land or neither does.
	RecordPayment(ctx context.Context, payment domain.Payment) (*domain.Payment, *domain.Invoice, error)
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)
	ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
