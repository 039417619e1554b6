package ledger

import (
	"fmt"
	"regexp"
	"strings"

	"bistro/internal/core"

	"github.com/shopspring/decimal"
)

// DefaultVATRate is the standard rate applied to tax-inclusive amounts.
var DefaultVATRate = decimal.RequireFromString("0.15")

// PeriodAll selects every transaction regardless of date.
const PeriodAll = "ALL"

// ExemptReason labels every excluded line.
const ExemptReason = "Exempt / Non-Vatable Supply"

var periodRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

type VatStatus string

const (
	VatStandard VatStatus = "STANDARD"
	VatExempt   VatStatus = "EXEMPT"
)

var laborKeywords = []string{"labor", "salary", "wage", "payroll"}

// VatLineItem is a transaction tagged with its tax treatment.
type VatLineItem struct {
	Transaction core.Transaction `json:"transaction"`
	Status      VatStatus        `json:"status"`
	// VAT is the tax embedded in the amount; zero for exempt lines.
	VAT    decimal.Decimal `json:"vat"`
	Reason string          `json:"reason,omitempty"`
}

// VatSummary is the VAT return for one period.
type VatSummary struct {
	Period string          `json:"period"`
	Rate   decimal.Decimal `json:"rate"`

	VatableIncome   []VatLineItem `json:"vatableIncome"`
	VatableExpenses []VatLineItem `json:"vatableExpenses"`
	Excluded        []VatLineItem `json:"excluded"`

	TotalIncomeInclusive  decimal.Decimal `json:"totalIncomeInclusive"`
	OutputTax             decimal.Decimal `json:"outputTax"`
	IncomeExclusive       decimal.Decimal `json:"incomeExclusive"`
	TotalExpenseInclusive decimal.Decimal `json:"totalExpenseInclusive"`
	InputTax              decimal.Decimal `json:"inputTax"`
	ExpenseExclusive      decimal.Decimal `json:"expenseExclusive"`
	// NetVAT is OutputTax - InputTax; positive is owed, negative is refunded.
	NetVAT decimal.Decimal `json:"netVat"`
}

func (s VatSummary) Payable() bool    { return s.NetVAT.IsPositive() }
func (s VatSummary) Refundable() bool { return s.NetVAT.IsNegative() }

// ValidatePeriod accepts ALL or a YYYY-MM month.
func ValidatePeriod(period string) error {
	if period == PeriodAll || periodRe.MatchString(period) {
		return nil
	}
	return fmt.Errorf("invalid VAT period %q: want ALL or YYYY-MM", period)
}

// VATEngine computes returns at a fixed rate.
type VATEngine struct {
	rate    decimal.Decimal
	divisor decimal.Decimal
}

func NewVATEngine(rate decimal.Decimal) VATEngine {
	return VATEngine{rate: rate, divisor: decimal.NewFromInt(1).Add(rate)}
}

func (e VATEngine) Rate() decimal.Decimal { return e.rate }

// Exclusive strips the tax from an inclusive amount: A / (1 + r).
func (e VATEngine) Exclusive(inclusive decimal.Decimal) decimal.Decimal {
	return inclusive.Div(e.divisor)
}

// TaxPortion is the tax embedded in an inclusive amount: A - A/(1 + r).
func (e VATEngine) TaxPortion(inclusive decimal.Decimal) decimal.Decimal {
	return inclusive.Sub(e.Exclusive(inclusive))
}

// Status classifies a single transaction. Gratuity income is outside the
// scope of VAT and so is any labor-type expense.
func (e VATEngine) Status(t core.Transaction) VatStatus {
	if t.Type == core.Income {
		if t.Category.IsTips() {
			return VatExempt
		}
		return VatStandard
	}
	lower := strings.ToLower(t.Category.String())
	if containsAny(lower, laborKeywords) || t.Category.Equals(core.LegacySalary) {
		return VatExempt
	}
	return VatStandard
}

// Compute builds the return for period, which is ALL or a YYYY-MM prefix
// of the transaction date. Every transaction in the period lands in exactly
// one of the three lists.
func (e VATEngine) Compute(txs []core.Transaction, period string) VatSummary {
	sum := VatSummary{
		Period:          period,
		Rate:            e.rate,
		VatableIncome:   []VatLineItem{},
		VatableExpenses: []VatLineItem{},
		Excluded:        []VatLineItem{},
	}
	for _, t := range txs {
		if period != PeriodAll && !strings.HasPrefix(t.Date.String(), period) {
			continue
		}
		if e.Status(t) == VatExempt {
			sum.Excluded = append(sum.Excluded, VatLineItem{
				Transaction: t, Status: VatExempt, VAT: decimal.Zero, Reason: ExemptReason,
			})
			continue
		}
		item := VatLineItem{Transaction: t, Status: VatStandard, VAT: e.TaxPortion(t.Amount)}
		if t.Type == core.Income {
			sum.VatableIncome = append(sum.VatableIncome, item)
			sum.TotalIncomeInclusive = sum.TotalIncomeInclusive.Add(t.Amount)
		} else {
			sum.VatableExpenses = append(sum.VatableExpenses, item)
			sum.TotalExpenseInclusive = sum.TotalExpenseInclusive.Add(t.Amount)
		}
	}

	sum.OutputTax = e.TaxPortion(sum.TotalIncomeInclusive)
	sum.IncomeExclusive = sum.TotalIncomeInclusive.Sub(sum.OutputTax)
	sum.InputTax = e.TaxPortion(sum.TotalExpenseInclusive)
	sum.ExpenseExclusive = sum.TotalExpenseInclusive.Sub(sum.InputTax)
	sum.NetVAT = sum.OutputTax.Sub(sum.InputTax)
	return sum
}

// ComputeVAT runs the default-rate engine.
func ComputeVAT(txs []core.Transaction, period string) VatSummary {
	return NewVATEngine(DefaultVATRate).Compute(txs, period)
}
