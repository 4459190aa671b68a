package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"invoicebook/backend/internal/domain"
	"invoicebook/backend/internal/xid"
)

var errImagesDisabled = errors.New("invoice image uploads are not configured")

func (s *Service) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	filter.DistributorID = strings.TrimSpace(filter.DistributorID)
	invoices, err := s.repo.ListInvoices(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range invoices {
		invoices[i].DaysOverdue = domain.DaysSince(invoices[i].CreatedAt, now)
	}
	return invoices, nil
}

func (s *Service) GetInvoice(ctx context.Context, id string) (domain.Invoice, error) {
	invoice, err := s.repo.GetInvoice(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Invoice{}, err
	}
	return s.decorate(invoice), nil
}

// CreateInvoice stores a new invoice and, when image is non-nil, its
// attachment. The id is allocated first so the image lands under it.
func (s *Service) CreateInvoice(ctx context.Context, req domain.InvoiceCreateRequest, image *domain.ImageUpload) (domain.Invoice, error) {
	req.DistributorID = strings.TrimSpace(req.DistributorID)
	req.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)
	req.Products = normalizeProducts(req.Products)
	if err := validateRequest(&req); err != nil {
		return domain.Invoice{}, err
	}

	toPayDate, err := parseDateField("toPayDate", req.ToPayDate)
	if err != nil {
		return domain.Invoice{}, err
	}
	dueDate, err := parseDateField("dueDate", req.DueDate)
	if err != nil {
		return domain.Invoice{}, err
	}

	if _, err := s.repo.GetDistributor(ctx, req.DistributorID); err != nil {
		return domain.Invoice{}, err
	}

	invoice := domain.Invoice{
		ID:            xid.New("inv"),
		DistributorID: req.DistributorID,
		InvoiceNumber: req.InvoiceNumber,
		Amount:        *req.Amount,
		Products:      req.Products,
		ToPayDate:     toPayDate,
		DueDate:       dueDate,
	}
	if req.PaidAmount != nil {
		invoice.PaidAmount = *req.PaidAmount
	}

	if image != nil {
		uploaded, err := s.uploadImage(ctx, invoice.ID, *image)
		if err != nil {
			return domain.Invoice{}, err
		}
		invoice.Image = &uploaded
	}

	created, err := s.repo.CreateInvoice(ctx, invoice)
	if err != nil {
		if invoice.Image != nil {
			s.attachments.Release(ctx, invoice.Image.StorageID)
		}
		return domain.Invoice{}, err
	}

	s.logAudit(ctx, "invoice_created", logrus.Fields{
		"invoiceId":     created.ID,
		"distributorId": created.DistributorID,
		"amount":        created.Amount.String(),
	})
	return s.decorate(created), nil
}

// UpdateInvoice applies the fields present in req to the current record.
// A new image replaces the old one, which is released only after the
// invoice is saved.
func (s *Service) UpdateInvoice(ctx context.Context, id string, req domain.InvoiceUpdateRequest, image *domain.ImageUpload) (domain.Invoice, error) {
	id = strings.TrimSpace(id)
	if req.DistributorID != nil {
		trimmed := strings.TrimSpace(*req.DistributorID)
		req.DistributorID = &trimmed
	}
	if req.InvoiceNumber != nil {
		trimmed := strings.TrimSpace(*req.InvoiceNumber)
		req.InvoiceNumber = &trimmed
	}
	if req.Products != nil {
		products := normalizeProducts(*req.Products)
		req.Products = &products
	}
	if err := validateRequest(&req); err != nil {
		return domain.Invoice{}, err
	}

	var toPayDate, dueDate *time.Time
	var err error
	if req.ToPayDate != nil {
		if toPayDate, err = parseDateField("toPayDate", *req.ToPayDate); err != nil {
			return domain.Invoice{}, err
		}
	}
	if req.DueDate != nil {
		if dueDate, err = parseDateField("dueDate", *req.DueDate); err != nil {
			return domain.Invoice{}, err
		}
	}

	if req.DistributorID != nil {
		if _, err := s.repo.GetDistributor(ctx, *req.DistributorID); err != nil {
			return domain.Invoice{}, err
		}
	}

	var replacement *domain.InvoiceImage
	if image != nil {
		if _, err := s.repo.GetInvoice(ctx, id); err != nil {
			return domain.Invoice{}, err
		}
		uploaded, err := s.uploadImage(ctx, id, *image)
		if err != nil {
			return domain.Invoice{}, err
		}
		replacement = &uploaded
	}

	saved, previous, err := s.repo.UpdateInvoice(ctx, id, func(inv *domain.Invoice) {
		if req.DistributorID != nil {
			inv.DistributorID = *req.DistributorID
		}
		if req.InvoiceNumber != nil {
			inv.InvoiceNumber = *req.InvoiceNumber
		}
		if req.Amount != nil {
			inv.Amount = *req.Amount
		}
		if req.PaidAmount != nil {
			inv.PaidAmount = *req.PaidAmount
		}
		if req.Products != nil {
			inv.Products = *req.Products
		}
		if req.ToPayDate != nil {
			inv.ToPayDate = toPayDate
		}
		if req.DueDate != nil {
			inv.DueDate = dueDate
		}
		if replacement != nil {
			inv.Image = replacement
		}
	})
	if err != nil {
		if replacement != nil {
			s.attachments.Release(ctx, replacement.StorageID)
		}
		return domain.Invoice{}, err
	}

	if replacement != nil && previous.Image != nil && previous.Image.StorageID != replacement.StorageID {
		s.attachments.Release(ctx, previous.Image.StorageID)
	}

	s.logAudit(ctx, "invoice_updated", logrus.Fields{
		"invoiceId":     saved.ID,
		"imageReplaced": replacement != nil,
	})
	return s.decorate(saved), nil
}

// DeleteInvoice removes the record, then releases its image. Payments
// keep their snapshots.
func (s *Service) DeleteInvoice(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteInvoice(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if deleted.Image != nil && s.attachments != nil {
		s.attachments.Release(ctx, deleted.Image.StorageID)
	}

	s.logAudit(ctx, "invoice_deleted", logrus.Fields{"invoiceId": deleted.ID})
	return nil
}

func (s *Service) uploadImage(ctx context.Context, invoiceID string, image domain.ImageUpload) (domain.InvoiceImage, error) {
	if s.attachments == nil {
		return domain.InvoiceImage{}, errImagesDisabled
	}
	return s.attachments.Upload(ctx, invoiceID, image)
}

func (s *Service) decorate(invoice *domain.Invoice) domain.Invoice {
	out := *invoice
	out.DaysOverdue = domain.DaysSince(out.CreatedAt, s.now())
	return out
}

func normalizeProducts(products []domain.Product) []domain.Product {
	if products == nil {
		return []domain.Product{}
	}
	out := make([]domain.Product, len(products))
	for i, product := range products {
		product.Name = strings.TrimSpace(product.Name)
		out[i] = product
	}
	return out
}

func parseDateField(field string, raw string) (*time.Time, error) {
	parsed, err := domain.ParseDate(raw)
	if err != nil {
		return nil, fieldError(field, "date")
	}
	return parsed, nil
}
