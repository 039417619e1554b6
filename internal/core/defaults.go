package core

import "github.com/shopspring/decimal"

// PaymentMethods are the suggested values for Transaction.PaymentMethod.
var PaymentMethods = []string{
	"Credit Card",
	"Cash",
	"Account",
	"Check",
	"ACH",
	"Bank Transfer",
	"Payroll",
	"Direct Deposit",
	"Loan Account",
	"Other",
}

// DefaultProfile is used when no profile has been stored yet.
func DefaultProfile() CompanyProfile {
	return CompanyProfile{
		Name:               "BistroBalance",
		Address:            "123 Culinary Ave, Food City",
		Phone:              "(555) 123-4567",
		Owner:              "Jane Doe",
		RegistrationNumber: "REG-2023-001",
		Email:              "admin@bistro.com",
	}
}

// DefaultTransactions is the seed data set a fresh ledger starts from.
// A new slice is returned on every call.
func DefaultTransactions() []Transaction {
	seed := func(id string, day int, desc string, amount int64, cat CategoryCode, method string) Transaction {
		return Transaction{
			ID:            id,
			Date:          NewDate(2023, 10, day),
			Description:   desc,
			Amount:        decimal.NewFromInt(amount),
			Type:          Expense,
			Category:      NewCategory(cat),
			PaymentMethod: method,
		}
	}
	return []Transaction{
		seed("6", 1, "Sysco Food Delivery", 2500, CogsFood, "Invoice"),
		seed("7", 2, "Local Produce Vendor", 600, CogsFood, "Check"),
		seed("8", 3, "Wine & Spirits Restock", 1800, CogsBeverage, "ACH"),
		seed("9", 7, "Weekly Payroll - FOH", 3200, LaborFrontOfHouse, "Payroll"),
		seed("10", 7, "Weekly Payroll - BOH", 4100, LaborBackOfHouse, "Payroll"),
		seed("11", 7, "Manager Salary", 1500, LaborManagement, "Payroll"),
		seed("12", 1, "October Rent", 4500, Rent, "Check"),
		seed("13", 5, "Facebook Ad Campaign", 300, Marketing, "Credit Card"),
		seed("15", 10, "HVAC Repair", 650, Repairs, "Credit Card"),
	}
}
