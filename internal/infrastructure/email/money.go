package email

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MoneyFormatter formats amounts in a currency for one locale
type MoneyFormatter struct {
	printer *message.Printer
}

// NewMoneyFormatter creates a formatter for the given locale
func NewMoneyFormatter(tag language.Tag) *MoneyFormatter {
	return &MoneyFormatter{printer: message.NewPrinter(tag)}
}

// Format renders amount with the currency symbol. Unknown currency codes
// fall back to the plain amount followed by the code.
func (f *MoneyFormatter) Format(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(code)
	unit, err := currency.ParseISO(code)
	if err != nil {
		return amount.StringFixed(2) + " " + code
	}
	return f.printer.Sprint(currency.Symbol(unit.Amount(amount.InexactFloat64())))
}
