package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"invoicebook/backend/internal/domain"
)

// RecordPayment stores the payment and applies it to the invoice in one
// store transaction.
func (s *Service) RecordPayment(ctx context.Context, req domain.PaymentRequest) (domain.PaymentResponse, error) {
	req.DistributorID = strings.TrimSpace(req.DistributorID)
	req.InvoiceID = strings.TrimSpace(req.InvoiceID)
	if err := validateRequest(&req); err != nil {
		return domain.PaymentResponse{}, err
	}

	payment, invoice, err := s.repo.RecordPayment(ctx, domain.Payment{
		DistributorID: req.DistributorID,
		InvoiceID:     req.InvoiceID,
		Amount:        *req.Amount,
	})
	if err != nil {
		return domain.PaymentResponse{}, err
	}

	s.logAudit(ctx, "payment_recorded", logrus.Fields{
		"paymentId":     payment.ID,
		"invoiceId":     invoice.ID,
		"distributorId": payment.DistributorID,
		"amount":        payment.Amount.String(),
		"toPayAmount":   invoice.ToPayAmount.String(),
		"status":        invoice.Status,
	})

	return domain.PaymentResponse{
		Message: "Payment recorded",
		Payment: *payment,
		Invoice: s.decorate(invoice),
	}, nil
}

func (s *Service) ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
	filter.DistributorID = strings.TrimSpace(filter.DistributorID)
	filter.InvoiceID = strings.TrimSpace(filter.InvoiceID)
	return s.repo.ListPayments(ctx, filter)
}

func (s *Service) GetPayment(ctx context.Context, id string) (domain.Payment, error) {
	payment, err := s.repo.GetPayment(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Payment{}, err
	}
	return *payment, nil
}

// ListInvoicePayments does not require the invoice to still exist: payment
// rows outlive the invoice they were applied to.
func (s *Service) ListInvoicePayments(ctx context.Context, invoiceID string) ([]domain.Payment, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, fieldError("invoiceId", "required")
	}
	return s.repo.ListPayments(ctx, domain.PaymentFilter{InvoiceID: invoiceID})
}
