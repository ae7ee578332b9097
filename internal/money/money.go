package money

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Format renders minor units as a rounded whole-dollar display string with
// grouping, e.g. 34300 -> "$343". Display only; arithmetic stays in cents.
func Format(cents int) string {
	dollars := int64(math.Round(float64(cents) / 100))
	return printer.Sprintf("$%d", dollars)
}
