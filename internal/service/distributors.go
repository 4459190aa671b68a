package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"invoicebook/backend/internal/domain"
	"invoicebook/backend/internal/store"
)

func (s *Service) ListDistributors(ctx context.Context) ([]domain.Distributor, error) {
	return s.repo.ListDistributors(ctx)
}

// GetDistributor reads through the distributor cache. Cache errors only cost
// a store lookup.
func (s *Service) GetDistributor(ctx context.Context, id string) (domain.Distributor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Distributor{}, fieldError("id", "required")
	}

	cached, ok, err := s.distributorCache.Get(ctx, id)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"distributorId": id, "error": err.Error()}).Warn("distributor_cache_get_failed")
	}
	if ok && cached != nil {
		return *cached, nil
	}

	distributor, err := s.repo.GetDistributor(ctx, id)
	if err != nil {
		return domain.Distributor{}, err
	}
	if err := s.distributorCache.Set(ctx, distributor, s.cacheTTL); err != nil {
		s.logger.WithFields(logrus.Fields{"distributorId": id, "error": err.Error()}).Warn("distributor_cache_set_failed")
	}
	return *distributor, nil
}

func (s *Service) CreateDistributor(ctx context.Context, req domain.DistributorRequest) (domain.Distributor, error) {
	req = normalizeDistributorRequest(req)
	if err := validateRequest(&req); err != nil {
		return domain.Distributor{}, err
	}

	created, err := s.repo.CreateDistributor(ctx, domain.Distributor{
		Name:          req.Name,
		Email:         req.Email,
		ContactNumber: req.ContactNumber,
		Address:       req.Address,
	})
	if err != nil {
		return domain.Distributor{}, err
	}

	s.logAudit(ctx, "distributor_created", logrus.Fields{"distributorId": created.ID})
	return *created, nil
}

// UpdateDistributor replaces every editable field.
func (s *Service) UpdateDistributor(ctx context.Context, id string, req domain.DistributorRequest) (domain.Distributor, error) {
	req = normalizeDistributorRequest(req)
	if err := validateRequest(&req); err != nil {
		return domain.Distributor{}, err
	}

	updated, err := s.repo.UpdateDistributor(ctx, domain.Distributor{
		ID:            strings.TrimSpace(id),
		Name:          req.Name,
		Email:         req.Email,
		ContactNumber: req.ContactNumber,
		Address:       req.Address,
	})
	if err != nil {
		return domain.Distributor{}, err
	}

	s.invalidateDistributor(ctx, updated.ID)
	s.logAudit(ctx, "distributor_updated", logrus.Fields{"distributorId": updated.ID})
	return *updated, nil
}

// DeleteDistributor refuses while any invoice references the distributor;
// the returned *store.DistributorInUseError carries the count.
func (s *Service) DeleteDistributor(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)

	if err := s.repo.DeleteDistributor(ctx, id); err != nil {
		var inUse *store.DistributorInUseError
		if errors.As(err, &inUse) {
			s.logger.WithFields(logrus.Fields{
				"distributorId": id,
				"invoiceCount":  inUse.InvoiceCount,
			}).Info("distributor_delete_blocked")
		}
		return err
	}

	s.invalidateDistributor(ctx, id)
	s.logAudit(ctx, "distributor_deleted", logrus.Fields{"distributorId": id})
	return nil
}

// ListDistributorInvoices fails with ErrNotFound only when the distributor
// itself is missing.
func (s *Service) ListDistributorInvoices(ctx context.Context, distributorID string) ([]domain.Invoice, error) {
	if _, err := s.GetDistributor(ctx, distributorID); err != nil {
		return nil, err
	}
	return s.ListInvoices(ctx, domain.InvoiceFilter{DistributorID: strings.TrimSpace(distributorID)})
}

func (s *Service) invalidateDistributor(ctx context.Context, id string) {
	if err := s.distributorCache.Delete(ctx, id); err != nil {
		s.logger.WithFields(logrus.Fields{"distributorId": id, "error": err.Error()}).Warn("distributor_cache_invalidate_failed")
	}
}

func normalizeDistributorRequest(req domain.DistributorRequest) domain.DistributorRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.ContactNumber = strings.TrimSpace(req.ContactNumber)
	req.Address = strings.TrimSpace(req.Address)
	return req
}
