package dashboard

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatRupiah 按印尼习惯格式化金额，例如 Rp 1.250.000
func FormatRupiah(d decimal.Decimal) string {
	p := message.NewPrinter(language.Indonesian)
	return p.Sprintf("Rp %d", d.Round(0).IntPart())
}

// FormatLiters 格式化体积，例如 12.500 L
func FormatLiters(v float64) string {
	p := message.NewPrinter(language.Indonesian)
	return p.Sprintf("%d L", int64(math.Round(v)))
}
