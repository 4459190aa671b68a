package memory

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"invoicebook/backend/internal/domain"
	"invoicebook/backend/internal/store"
	"invoicebook/backend/internal/xid"
)

type Store struct {
	mu               sync.RWMutex
	distributorsByID map[string]domain.Distributor
	invoicesByID     map[string]domain.Invoice
	paymentsByID     map[string]domain.Payment
	paymentOrder     []string
	usersByUsername  map[string]domain.UserAccount
	now              func() time.Time
}

func New() *Store {
	return &Store{
		distributorsByID: make(map[string]domain.Distributor),
		invoicesByID:     make(map[string]domain.Invoice),
		paymentsByID:     make(map[string]domain.Payment),
		usersByUsername:  make(map[string]domain.UserAccount),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// NewSeeded returns a store with dev accounts and one sample distributor.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_USER_PASSWORD; when
// unset, dev defaults are used with a warning. The postgres store is used
// whenever DATABASE_URL is set, so these never reach production.
func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()

	now := s.now()
	distributor := domain.Distributor{
		ID:            xid.New("dist"),
		Name:          "Sample Pharma Supply",
		Email:         "orders@sample-pharma.test",
		ContactNumber: "+62-21-555-0100",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.distributorsByID[distributor.ID] = distributor
	return s
}

func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	userPwd := envOr("SEED_USER_PASSWORD", "user12345")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_USER_PASSWORD") == "" {
		logrus.WithField("component", "memory-store").Warn("using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_USER_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"clerk", userPwd, domain.RoleUser},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logrus.WithField("username", u.username).WithError(err).Fatal("failed to hash seed password")
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) CreateDistributor(_ context.Context, distributor domain.Distributor) (*domain.Distributor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if distributor.Name == "" || distributor.Email == "" {
		return nil, store.Invalid("name and email are required")
	}
	if s.emailTakenLocked(distributor.Email, "") {
		return nil, store.ErrConflict
	}
	if distributor.ID == "" {
		distributor.ID = xid.New("dist")
	}
	now := s.now()
	if distributor.CreatedAt.IsZero() {
		distributor.CreatedAt = now
	}
	distributor.UpdatedAt = now

	s.distributorsByID[distributor.ID] = distributor
	saved := distributor
	return &saved, nil
}

func (s *Store) GetDistributor(_ context.Context, id string) (*domain.Distributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	distributor, ok := s.distributorsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &distributor, nil
}

func (s *Store) ListDistributors(_ context.Context) ([]domain.Distributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	distributors := make([]domain.Distributor, 0, len(s.distributorsByID))
	for _, distributor := range s.distributorsByID {
		distributors = append(distributors, distributor)
	}
	slices.SortFunc(distributors, func(a, b domain.Distributor) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(a.Name, b.Name)
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return distributors, nil
}

func (s *Store) UpdateDistributor(_ context.Context, distributor domain.Distributor) (*domain.Distributor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.distributorsByID[distributor.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if distributor.Name == "" || distributor.Email == "" {
		return nil, store.Invalid("name and email are required")
	}
	if s.emailTakenLocked(distributor.Email, distributor.ID) {
		return nil, store.ErrConflict
	}

	distributor.CreatedAt = existing.CreatedAt
	distributor.UpdatedAt = s.now()
	s.distributorsByID[distributor.ID] = distributor
	saved := distributor
	return &saved, nil
}

func (s *Store) DeleteDistributor(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.distributorsByID[id]; !ok {
		return store.ErrNotFound
	}
	if count := s.countInvoicesLocked(id); count > 0 {
		return &store.DistributorInUseError{DistributorID: id, InvoiceCount: count}
	}
	delete(s.distributorsByID, id)
	return nil
}

func (s *Store) CreateInvoice(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.distributorsByID[invoice.DistributorID]; !ok {
		return nil, store.ErrNotFound
	}
	if s.invoiceNumberTakenLocked(invoice.InvoiceNumber, "") {
		return nil, store.ErrConflict
	}
	if invoice.ID == "" {
		invoice.ID = xid.New("inv")
	}
	if _, exists := s.invoicesByID[invoice.ID]; exists {
		return nil, store.ErrConflict
	}
	now := s.now()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now

	domain.Recalculate(&invoice)
	s.invoicesByID[invoice.ID] = *cloneInvoice(invoice)
	return cloneInvoice(invoice), nil
}

func (s *Store) GetInvoice(_ context.Context, id string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoice, ok := s.invoicesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneInvoice(invoice), nil
}

func (s *Store) ListInvoices(_ context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoices := make([]domain.Invoice, 0, len(s.invoicesByID))
	for _, invoice := range s.invoicesByID {
		if filter.DistributorID != "" && invoice.DistributorID != filter.DistributorID {
			continue
		}
		invoices = append(invoices, *cloneInvoice(invoice))
	}
	slices.SortFunc(invoices, func(a, b domain.Invoice) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(a.ID, b.ID)
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return invoices, nil
}

func (s *Store) UpdateInvoice(_ context.Context, id string, apply func(*domain.Invoice)) (*domain.Invoice, *domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.invoicesByID[id]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	previous := cloneInvoice(existing)
	invoice := *cloneInvoice(existing)
	apply(&invoice)
	invoice.ID = existing.ID

	if _, ok := s.distributorsByID[invoice.DistributorID]; !ok {
		return nil, nil, store.ErrNotFound
	}
	if s.invoiceNumberTakenLocked(invoice.InvoiceNumber, invoice.ID) {
		return nil, nil, store.ErrConflict
	}

	invoice.CreatedAt = existing.CreatedAt
	invoice.UpdatedAt = s.now()

	domain.Recalculate(&invoice)
	s.invoicesByID[invoice.ID] = *cloneInvoice(invoice)
	return cloneInvoice(invoice), previous, nil
}

func (s *Store) DeleteInvoice(_ context.Context, id string) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	invoice, ok := s.invoicesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(s.invoicesByID, id)
	return cloneInvoice(invoice), nil
}

func (s *Store) RecordPayment(_ context.Context, payment domain.Payment) (*domain.Payment, *domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payment.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, store.Invalid("payment amount must be greater than zero")
	}
	distributor, ok := s.distributorsByID[payment.DistributorID]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	invoice, ok := s.invoicesByID[payment.InvoiceID]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	if invoice.DistributorID != distributor.ID {
		return nil, nil, store.Invalid("invoice does not belong to distributor")
	}

	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	now := s.now()
	payment.DistributorName = distributor.Name
	payment.InvoiceNumber = invoice.InvoiceNumber
	payment.CreatedAt = now

	// Both mutations happen under the same write lock, so readers never
	// observe a payment without its invoice increment.
	invoice.Products = cloneProducts(invoice.Products)
	domain.ApplyPayment(&invoice, payment.Amount)
	invoice.UpdatedAt = now

	s.invoicesByID[invoice.ID] = invoice
	s.paymentsByID[payment.ID] = payment
	s.paymentOrder = append(s.paymentOrder, payment.ID)

	saved := payment
	return &saved, cloneInvoice(invoice), nil
}

func (s *Store) GetPayment(_ context.Context, id string) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payment, ok := s.paymentsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &payment, nil
}

func (s *Store) ListPayments(_ context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payments := make([]domain.Payment, 0, len(s.paymentOrder))
	for i := len(s.paymentOrder) - 1; i >= 0; i-- {
		payment := s.paymentsByID[s.paymentOrder[i]]
		if filter.DistributorID != "" && payment.DistributorID != filter.DistributorID {
			continue
		}
		if filter.InvoiceID != "" && payment.InvoiceID != filter.InvoiceID {
			continue
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return store.Invalid("username is required")
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) countInvoicesLocked(distributorID string) int {
	count := 0
	for _, invoice := range s.invoicesByID {
		if invoice.DistributorID == distributorID {
			count++
		}
	}
	return count
}

func (s *Store) emailTakenLocked(email string, exceptID string) bool {
	for id, distributor := range s.distributorsByID {
		if id != exceptID && strings.EqualFold(distributor.Email, email) {
			return true
		}
	}
	return false
}

func (s *Store) invoiceNumberTakenLocked(number string, exceptID string) bool {
	if number == "" {
		return false
	}
	for id, invoice := range s.invoicesByID {
		if id != exceptID && invoice.InvoiceNumber == number {
			return true
		}
	}
	return false
}

func cloneInvoice(invoice domain.Invoice) *domain.Invoice {
	out := invoice
	out.Products = cloneProducts(invoice.Products)
	if invoice.Image != nil {
		image := *invoice.Image
		out.Image = &image
	}
	if invoice.ToPayDate != nil {
		date := *invoice.ToPayDate
		out.ToPayDate = &date
	}
	if invoice.DueDate != nil {
		date := *invoice.DueDate
		out.DueDate = &date
	}
	return &out
}

func cloneProducts(products []domain.Product) []domain.Product {
	out := make([]domain.Product, len(products))
	copy(out, products)
	return out
}
