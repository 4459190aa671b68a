package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"invoicebook/backend/internal/domain"
	"invoicebook/backend/internal/store"
)

// Money fits NUMERIC(14,2): at most two decimal places, below 1e12.
const moneyScale = 2

var (
	moneyLimit = decimal.New(1, 12)
	validate   = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	// Numeric rules such as gte=0 compare decimals through their float value.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// The type func above hides the decimal from field-level rules, so scale
	// and range are checked per struct where the raw values are visible.
	v.RegisterStructValidation(validateMoneyFields,
		domain.Product{},
		domain.InvoiceCreateRequest{},
		domain.InvoiceUpdateRequest{},
		domain.PaymentRequest{},
	)
	return v
}

func validateMoneyFields(sl validator.StructLevel) {
	switch req := sl.Current().Interface().(type) {
	case domain.Product:
		checkMoney(sl, &req.Price, "price", "Price")
	case domain.InvoiceCreateRequest:
		checkMoney(sl, req.Amount, "amount", "Amount")
		checkMoney(sl, req.PaidAmount, "paidAmount", "PaidAmount")
	case domain.InvoiceUpdateRequest:
		checkMoney(sl, req.Amount, "amount", "Amount")
		checkMoney(sl, req.PaidAmount, "paidAmount", "PaidAmount")
	case domain.PaymentRequest:
		checkMoney(sl, req.Amount, "amount", "Amount")
	}
}

func checkMoney(sl validator.StructLevel, value *decimal.Decimal, field string, structField string) {
	if value == nil || validMoney(*value) {
		return
	}
	sl.ReportError(value.String(), field, structField, "money", "")
}

func validMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(moneyScale)) && d.Abs().LessThan(moneyLimit)
}

// validateRequest runs struct tag validation and reports failures as a
// *store.ValidationError keyed by JSON field path.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	return &store.ValidationError{
		Message: "validation failed",
		Fields:  processValidationErrors(fieldErrs),
	}
}

func processValidationErrors(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		fields[fieldPath(fe.Namespace())] = fe.Tag()
	}
	return fields
}

// fieldPath drops the struct name validator puts in front of the namespace.
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func fieldError(field string, rule string) error {
	return &store.ValidationError{
		Message: "validation failed",
		Fields:  map[string]string{field: rule},
	}
}
