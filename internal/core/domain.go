package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	isoLayout     = "2006-01-02"
	displayLayout = "02/01/2006"
	// slashLayout also accepts days and months without a leading zero.
	slashLayout   = "2/1/2006"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// Transaction is a single financial event. Amount is tax-inclusive and never
	// negative; Type alone decides the direction of its contribution.
	Transaction struct {
		ID            string
		Date          Date
		Description   string
		Amount        decimal.Decimal
		Type          TransactionType
		Category      Category
		PaymentMethod string
		Covers        int // guests served; only meaningful on income
	}

	CompanyProfile struct {
		Name               string `json:"name"`
		Address            string `json:"address"`
		Phone              string `json:"phone"`
		Owner              string `json:"owner"`
		RegistrationNumber string `json:"registrationNumber"`
		Email              string `json:"email"`
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidCovers    = errors.New("invalid covers")
)

// ParseTransactionType accepts INCOME or EXPENSE in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, string(t))
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts DD/MM/YYYY and YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	layout := isoLayout
	if strings.Count(s, "/") == 2 {
		layout = slashLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// String renders the canonical YYYY-MM-DD key.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(isoLayout)
}

// Display renders DD/MM/YYYY.
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(displayLayout)
}

// MonthKey returns the YYYY-MM period the date falls in.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if t.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidAmount)
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if t.Covers < 0 {
		return ErrInvalidCovers
	}
	return nil
}

// transactionJSON keeps the stored shape: amount as a bare JSON number and
// covers omitted when unset.
type transactionJSON struct {
	ID            string          `json:"id"`
	Date          Date            `json:"date"`
	Description   string          `json:"description"`
	Amount        json.Number     `json:"amount"`
	Type          TransactionType `json:"type"`
	Category      Category        `json:"category"`
	PaymentMethod string          `json:"paymentMethod"`
	Covers        int             `json:"covers,omitempty"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:            t.ID,
		Date:          t.Date,
		Description:   t.Description,
		Amount:        json.Number(t.Amount.String()),
		Type:          t.Type,
		Category:      t.Category,
		PaymentMethod: t.PaymentMethod,
		Covers:        t.Covers,
	})
}

func (t *Transaction) UnmarshalJSON(b []byte) error {
	var raw struct {
		transactionJSON
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*t = Transaction{
		ID:            raw.ID,
		Date:          raw.Date,
		Description:   raw.Description,
		Amount:        raw.Amount,
		Type:          raw.Type,
		Category:      raw.Category,
		PaymentMethod: raw.PaymentMethod,
		Covers:        raw.Covers,
	}
	return nil
}

// IsZero reports whether every profile field is empty.
func (p CompanyProfile) IsZero() bool {
	return p == CompanyProfile{}
}
