package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Recalculate normalizes the derived money fields of an invoice:
// paidAmount is clamped at zero, toPayAmount is the clamped remainder and
// status is done exactly when nothing is left to pay. Every write path that
// persists an invoice must call it first.
func Recalculate(inv *Invoice) {
	paid := decimal.Max(decimal.Zero, inv.PaidAmount)
	remaining := decimal.Max(decimal.Zero, inv.Amount.Sub(paid))

	inv.PaidAmount = paid
	inv.ToPayAmount = remaining
	if remaining.IsZero() {
		inv.Status = InvoiceStatusDone
	} else {
		inv.Status = InvoiceStatusToPay
	}
}

// ApplyPayment adds amount to the invoice's paid total and recalculates.
func ApplyPayment(inv *Invoice, amount decimal.Decimal) {
	inv.PaidAmount = inv.PaidAmount.Add(amount)
	Recalculate(inv)
}

// DaysSince reports whole days elapsed between created and now, never negative.
func DaysSince(created time.Time, now time.Time) int {
	if created.IsZero() || now.Before(created) {
		return 0
	}
	return int(now.Sub(created).Hours() / 24)
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate accepts RFC3339 timestamps or plain YYYY-MM-DD dates. An empty
// string yields nil.
func ParseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			utc := parsed.UTC()
			return &utc, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", raw)
}
