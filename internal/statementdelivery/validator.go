package statementdelivery

import (
	"reflect"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// AmountTag is the binding tag ValidAmount is registered under.
const AmountTag = "amount"

// maxFractionDigits matches the scale of the amount column.
const maxFractionDigits = 2

// ValidAmount validates whether the field holds a positive decimal amount up to
// domain.MaxAmount with at most two fractional digits.
var ValidAmount validator.Func = func(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}

	amount, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}

	return domain.ValidAmount(amount) && amount.Equal(amount.Truncate(maxFractionDigits))
}
