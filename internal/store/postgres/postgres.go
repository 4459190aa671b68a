package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"invoicebook/backend/internal/domain"
	"invoicebook/backend/internal/store"
	"invoicebook/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const distributorColumns = `id, name, email, COALESCE(contact_number,''), COALESCE(address,''), created_at, updated_at`

func (s *Store) CreateDistributor(ctx context.Context, distributor domain.Distributor) (*domain.Distributor, error) {
	if distributor.Name == "" || distributor.Email == "" {
		return nil, store.Invalid("name and email are required")
	}
	if distributor.ID == "" {
		distributor.ID = xid.New("dist")
	}
	now := time.Now().UTC()
	if distributor.CreatedAt.IsZero() {
		distributor.CreatedAt = now
	}
	distributor.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO distributors (id, name, email, contact_number, address, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, distributor.ID, distributor.Name, distributor.Email, nullIfEmpty(distributor.ContactNumber), nullIfEmpty(distributor.Address), distributor.CreatedAt, distributor.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	saved := distributor
	return &saved, nil
}

func (s *Store) GetDistributor(ctx context.Context, id string) (*domain.Distributor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+distributorColumns+` FROM distributors WHERE id = $1`, id)
	distributor, err := scanDistributor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return distributor, nil
}

func (s *Store) ListDistributors(ctx context.Context) ([]domain.Distributor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+distributorColumns+` FROM distributors ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	distributors := make([]domain.Distributor, 0, 64)
	for rows.Next() {
		distributor, err := scanDistributor(rows)
		if err != nil {
			return nil, err
		}
		distributors = append(distributors, *distributor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return distributors, nil
}

func (s *Store) UpdateDistributor(ctx context.Context, distributor domain.Distributor) (*domain.Distributor, error) {
	if distributor.Name == "" || distributor.Email == "" {
		return nil, store.Invalid("name and email are required")
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE distributors
		SET name = $2, email = $3, contact_number = $4, address = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+distributorColumns,
		distributor.ID, distributor.Name, distributor.Email, nullIfEmpty(distributor.ContactNumber), nullIfEmpty(distributor.Address))
	saved, err := scanDistributor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return saved, nil
}

func (s *Store) DeleteDistributor(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var lockedID string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM distributors WHERE id = $1 FOR UPDATE`, id).Scan(&lockedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices WHERE distributor_id = $1`, id).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return &store.DistributorInUseError{DistributorID: id, InvoiceCount: count}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM distributors WHERE id = $1`, id); err != nil {
		if isForeignKeyViolation(err) {
			return &store.DistributorInUseError{DistributorID: id, InvoiceCount: count}
		}
		return err
	}
	return tx.Commit()
}

const invoiceColumns = `id, distributor_id, COALESCE(invoice_number,''), amount, paid_amount, to_pay_amount, products,
	image_url, image_storage_id, to_pay_date, due_date, status, created_at, updated_at`

func (s *Store) CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if invoice.ID == "" {
		invoice.ID = xid.New("inv")
	}
	now := time.Now().UTC()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	if invoice.Products == nil {
		invoice.Products = []domain.Product{}
	}

	domain.Recalculate(&invoice)
	products, err := json.Marshal(invoice.Products)
	if err != nil {
		return nil, err
	}
	imageURL, imageID := imageColumns(invoice.Image)

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO invoices (
			id, distributor_id, invoice_number, amount, paid_amount, to_pay_amount, products,
			image_url, image_storage_id, to_pay_date, due_date, status, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING `+invoiceColumns, invoice.ID, invoice.DistributorID, nullIfEmpty(invoice.InvoiceNumber), invoice.Amount, invoice.PaidAmount, invoice.ToPayAmount, string(products),
		imageURL, imageID, nullTime(invoice.ToPayDate), nullTime(invoice.DueDate), string(invoice.Status), invoice.CreatedAt, invoice.UpdatedAt)
	saved, err := scanInvoice(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return saved, nil
}

func (s *Store) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	invoice, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return invoice, nil
}

func (s *Store) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE ($1 = '' OR distributor_id = $1)
		ORDER BY created_at DESC, id ASC
	`, filter.DistributorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, 64)
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, id string, apply func(*domain.Invoice)) (*domain.Invoice, *domain.Invoice, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	previous, err := scanInvoice(tx.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, err
	}

	invoice := *previous
	invoice.Products = append([]domain.Product(nil), previous.Products...)
	apply(&invoice)
	invoice.ID = previous.ID
	if invoice.Products == nil {
		invoice.Products = []domain.Product{}
	}
	domain.Recalculate(&invoice)
	products, err := json.Marshal(invoice.Products)
	if err != nil {
		return nil, nil, err
	}
	imageURL, imageID := imageColumns(invoice.Image)

	row := tx.QueryRowContext(ctx, `
		UPDATE invoices
		SET distributor_id = $2, invoice_number = $3, amount = $4, paid_amount = $5, to_pay_amount = $6,
			products = $7, image_url = $8, image_storage_id = $9, to_pay_date = $10, due_date = $11,
			status = $12, updated_at = now()
		WHERE id = $1
		RETURNING `+invoiceColumns,
		invoice.ID, invoice.DistributorID, nullIfEmpty(invoice.InvoiceNumber), invoice.Amount, invoice.PaidAmount, invoice.ToPayAmount,
		string(products), imageURL, imageID, nullTime(invoice.ToPayDate), nullTime(invoice.DueDate), string(invoice.Status))
	saved, err := scanInvoice(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, nil, store.ErrConflict
		}
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return saved, previous, nil
}

func (s *Store) DeleteInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	row := s.db.QueryRowContext(ctx, `DELETE FROM invoices WHERE id = $1 RETURNING `+invoiceColumns, id)
	invoice, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return invoice, nil
}

func (s *Store) RecordPayment(ctx context.Context, payment domain.Payment) (*domain.Payment, *domain.Invoice, error) {
	if payment.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, store.Invalid("payment amount must be greater than zero")
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var distributorName string
	err = tx.QueryRowContext(ctx, `SELECT name FROM distributors WHERE id = $1 FOR SHARE`, payment.DistributorID).Scan(&distributorName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, err
	}

	invoice, err := scanInvoice(tx.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, payment.InvoiceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, err
	}
	if invoice.DistributorID != payment.DistributorID {
		return nil, nil, store.Invalid("invoice does not belong to distributor")
	}

	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	now := time.Now().UTC()
	payment.DistributorName = distributorName
	payment.InvoiceNumber = invoice.InvoiceNumber
	payment.CreatedAt = now

	domain.ApplyPayment(invoice, payment.Amount)
	invoice.UpdatedAt = now

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO payments (id, distributor_id, distributor_name, invoice_id, invoice_number, amount, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, payment.ID, payment.DistributorID, payment.DistributorName, payment.InvoiceID, payment.InvoiceNumber, payment.Amount, payment.CreatedAt); err != nil {
		return nil, nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE invoices
		SET paid_amount = $2, to_pay_amount = $3, status = $4, updated_at = $5
		WHERE id = $1
	`, invoice.ID, invoice.PaidAmount, invoice.ToPayAmount, string(invoice.Status), invoice.UpdatedAt); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	saved := payment
	return &saved, invoice, nil
}

const paymentColumns = `id, distributor_id, distributor_name, invoice_id, invoice_number, amount, created_at`

func (s *Store) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return payment, nil
}

func (s *Store) ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE ($1 = '' OR distributor_id = $1)
			AND ($2 = '' OR invoice_id = $2)
		ORDER BY created_at DESC, id ASC
	`, filter.DistributorID, filter.InvoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0, 64)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return store.Invalid("username is required")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password = $2 WHERE username = $1`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDistributor(row rowScanner) (*domain.Distributor, error) {
	var d domain.Distributor
	if err := row.Scan(&d.ID, &d.Name, &d.Email, &d.ContactNumber, &d.Address, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return &d, nil
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var (
		inv       domain.Invoice
		products  []byte
		imageURL  sql.NullString
		imageID   sql.NullString
		toPayDate sql.NullTime
		dueDate   sql.NullTime
		status    string
	)
	err := row.Scan(&inv.ID, &inv.DistributorID, &inv.InvoiceNumber, &inv.Amount, &inv.PaidAmount, &inv.ToPayAmount, &products,
		&imageURL, &imageID, &toPayDate, &dueDate, &status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}

	inv.Products = []domain.Product{}
	if len(products) > 0 {
		if err := json.Unmarshal(products, &inv.Products); err != nil {
			return nil, err
		}
	}
	if imageURL.Valid && imageID.Valid {
		inv.Image = &domain.InvoiceImage{URL: imageURL.String, StorageID: imageID.String}
	}
	inv.ToPayDate = timePtr(toPayDate)
	inv.DueDate = timePtr(dueDate)
	inv.Status = domain.InvoiceStatus(status)
	inv.CreatedAt = inv.CreatedAt.UTC()
	inv.UpdatedAt = inv.UpdatedAt.UTC()
	return &inv, nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.DistributorID, &p.DistributorName, &p.InvoiceID, &p.InvoiceNumber, &p.Amount, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func imageColumns(image *domain.InvoiceImage) (any, any) {
	if image == nil {
		return nil, nil
	}
	return image.URL, image.StorageID
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC()
}

func timePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time.UTC()
	return &t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
