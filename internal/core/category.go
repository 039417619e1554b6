package core

import "strings"

// CategoryCode is the closed set of categories the ledger knows about.
// CustomCategory marks anything else; the raw text is kept on the Category.
type CategoryCode int

const (
	CustomCategory CategoryCode = iota

	// Expense side
	CogsFood
	CogsBeverage
	LaborFrontOfHouse
	LaborBackOfHouse
	LaborManagement
	Rent
	Utilities
	Marketing
	Repairs
	Supplies
	Admin
	Other // shared by income and expense

	// Income side
	FoodSales
	BeverageSales
	Catering
	Delivery
	Merchandise
	Tips
)

// Freeform labels typed into older CSV templates. They never map onto a
// CategoryCode and are matched by value.
const (
	LegacySalary      = "Salary's"
	LegacyRM          = "R&M"
	LegacyFood        = "Food"
	LegacyAlcohol     = "Alcohol"
	LegacyPettyCash   = "Petty Cash"
	LegacyRent        = "Rent"
	LegacyUtilities   = "Utility's"
	LegacyOperational = "Operational costs"
	LegacyTips        = "Tips"
)

var categoryLabels = map[CategoryCode]string{
	CogsFood:          "COGS - Food",
	CogsBeverage:      "COGS - Beverage",
	LaborFrontOfHouse: "Labor - Front of House",
	LaborBackOfHouse:  "Labor - Back of House",
	LaborManagement:   "Labor - Management",
	Rent:              "Rent",
	Utilities:         "Utilities",
	Marketing:         "Marketing & Ads",
	Repairs:           "Repairs & Maintenance",
	Supplies:          "Operating Supplies",
	Admin:             "General & Admin",
	Other:             "Other",
	FoodSales:         "Food Sales",
	BeverageSales:     "Beverage Sales",
	Catering:          "Catering/Events",
	Delivery:          "Third-party Delivery",
	Merchandise:       "Merchandise",
	Tips:              "Tips / Gratuity",
}

var codesByLabel = func() map[string]CategoryCode {
	m := make(map[string]CategoryCode, len(categoryLabels))
	for code, label := range categoryLabels {
		m[label] = code
	}
	return m
}()

// ExpenseCategories lists the canonical expense categories in display order.
var ExpenseCategories = []CategoryCode{
	CogsFood, CogsBeverage, LaborFrontOfHouse, LaborBackOfHouse, LaborManagement,
	Rent, Utilities, Marketing, Repairs, Supplies, Admin, Other,
}

// IncomeCategories lists the canonical income categories in display order.
var IncomeCategories = []CategoryCode{
	FoodSales, BeverageSales, Catering, Delivery, Merchandise, Tips, Other,
}

// ExpenseQuickCategories are the short labels offered when entering expenses.
var ExpenseQuickCategories = []string{
	LegacySalary, LegacyRM, LegacyFood, LegacyAlcohol,
	LegacyPettyCash, LegacyRent, LegacyUtilities, LegacyOperational,
}

// Label returns the canonical text for a code, empty for CustomCategory.
func (c CategoryCode) Label() string {
	return categoryLabels[c]
}

// Category is a tagged category value. Known labels carry their code; any
// other text is a CustomCategory holding the raw string.
type Category struct {
	code CategoryCode
	raw  string
}

// NewCategory returns the canonical category for a known code.
func NewCategory(code CategoryCode) Category {
	return Category{code: code, raw: categoryLabels[code]}
}

// ParseCategory maps exact canonical labels to their code and keeps every
// other string verbatim.
func ParseCategory(s string) Category {
	if code, ok := codesByLabel[s]; ok {
		return Category{code: code, raw: s}
	}
	return Category{code: CustomCategory, raw: s}
}

func (c Category) Code() CategoryCode { return c.code }

func (c Category) String() string { return c.raw }

func (c Category) IsCustom() bool { return c.code == CustomCategory }

// Is reports whether the category is one of the given codes.
func (c Category) Is(codes ...CategoryCode) bool {
	for _, code := range codes {
		if c.code == code && code != CustomCategory {
			return true
		}
	}
	return false
}

// Equals compares the raw label.
func (c Category) Equals(label string) bool {
	return c.raw == label
}

// Contains is a case-sensitive substring test on the raw label.
func (c Category) Contains(substr string) bool {
	return strings.Contains(c.raw, substr)
}

// IsTips reports gratuity, either canonical or the legacy literal.
func (c Category) IsTips() bool {
	return c.code == Tips || c.raw == LegacyTips
}

// IsLabor covers the three canonical labor categories.
func (c Category) IsLabor() bool {
	return c.Is(LaborFrontOfHouse, LaborBackOfHouse, LaborManagement)
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.raw), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	*c = ParseCategory(string(b))
	return nil
}
