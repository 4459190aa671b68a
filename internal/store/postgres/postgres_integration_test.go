package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invoicebook/backend/internal/domain"
	"invoicebook/backend/internal/service"
	"invoicebook/backend/internal/store"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("INVOICEBOOK_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set INVOICEBOOK_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if _, err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestRecordPaymentUpdatesInvoiceInSameTransaction(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	stamp := time.Now().UnixNano()

	distributor, err := s.CreateDistributor(ctx, domain.Distributor{
		Name:  "IT Distributor",
		Email: fmt.Sprintf("it-%d@example.test", stamp),
	})
	if err != nil {
		t.Fatalf("create distributor: %v", err)
	}
	invoice, err := s.CreateInvoice(ctx, domain.Invoice{
		DistributorID: distributor.ID,
		InvoiceNumber: fmt.Sprintf("IT-%d", stamp),
		Amount:        decimal.NewFromInt(1000),
		Products:      []domain.Product{{Name: "Amoxicillin", Quantity: 2, Price: decimal.NewFromInt(500)}},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM payments WHERE invoice_id = $1`, invoice.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, invoice.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM distributors WHERE id = $1`, distributor.ID)
	})

	if err := s.DeleteDistributor(ctx, distributor.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict deleting referenced distributor, got %v", err)
	}

	for _, amount := range []int64{400, 600} {
		if _, _, err := s.RecordPayment(ctx, domain.Payment{
			DistributorID: distributor.ID,
			InvoiceID:     invoice.ID,
			Amount:        decimal.NewFromInt(amount),
		}); err != nil {
			t.Fatalf("record payment %d: %v", amount, err)
		}
	}

	stored, err := s.GetInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if !stored.PaidAmount.Equal(decimal.NewFromInt(1000)) || !stored.ToPayAmount.IsZero() {
		t.Fatalf("expected fully paid invoice, got paid=%s toPay=%s", stored.PaidAmount, stored.ToPayAmount)
	}
	if stored.Status != domain.InvoiceStatusDone {
		t.Fatalf("expected status done, got %s", stored.Status)
	}
	if len(stored.Products) != 1 || stored.Products[0].Name != "Amoxicillin" {
		t.Fatalf("expected products to round-trip, got %+v", stored.Products)
	}

	payments, err := s.ListPayments(ctx, domain.PaymentFilter{InvoiceID: invoice.ID})
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(payments))
	}
}

func TestMoneyRoundTripsThroughService(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := service.WithActor(context.Background(), domain.Actor{Username: "it", Role: domain.RoleAdmin})
	svc := service.New(s, nil, service.Options{})
	stamp := time.Now().UnixNano()

	distributor, err := svc.CreateDistributor(ctx, domain.DistributorRequest{
		Name:  "IT Money",
		Email: fmt.Sprintf("money-%d@example.test", stamp),
	})
	if err != nil {
		t.Fatalf("create distributor: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(context.Background(), `DELETE FROM payments WHERE distributor_id = $1`, distributor.ID)
		_, _ = s.db.ExecContext(context.Background(), `DELETE FROM invoices WHERE distributor_id = $1`, distributor.ID)
		_, _ = s.db.ExecContext(context.Background(), `DELETE FROM distributors WHERE id = $1`, distributor.ID)
	})

	tooFine := decimal.RequireFromString("10.004")
	ten := decimal.NewFromInt(10)
	if _, err := svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{DistributorID: distributor.ID, Amount: &tooFine, PaidAmount: &ten}, nil); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected validation error for sub-cent amount, got %v", err)
	}

	amount := decimal.RequireFromString("10.01")
	created, err := svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{DistributorID: distributor.ID, Amount: &amount, PaidAmount: &ten}, nil)
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	stored, err := s.GetInvoice(ctx, created.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	for _, inv := range []domain.Invoice{created, *stored} {
		if !inv.ToPayAmount.Equal(decimal.RequireFromString("0.01")) || inv.Status != domain.InvoiceStatusToPay {
			t.Fatalf("expected toPay=0.01 topay, got toPay=%s status=%s", inv.ToPayAmount, inv.Status)
		}
	}

	if _, _, err := s.RecordPayment(ctx, domain.Payment{DistributorID: distributor.ID, InvoiceID: created.ID, Amount: decimal.RequireFromString("0.01")}); err != nil {
		t.Fatalf("record payment: %v", err)
	}
	number := fmt.Sprintf("IT-M-%d", stamp)
	updated, err := svc.UpdateInvoice(ctx, created.ID, domain.InvoiceUpdateRequest{InvoiceNumber: &number}, nil)
	if err != nil {
		t.Fatalf("update invoice: %v", err)
	}
	if !updated.ToPayAmount.IsZero() || updated.Status != domain.InvoiceStatusDone || updated.InvoiceNumber != number {
		t.Fatalf("expected settled invoice after update, got %+v", updated)
	}
}
