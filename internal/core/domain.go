package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// DefaultIcon is used for transactions created without an explicit icon.
const DefaultIcon = "shopping-cart"

const (
	maxNameLength        = 100
	maxDescriptionLength = 200
)

type (
	// Identity is the authenticated user as reported by the identity provider.
	Identity struct {
		ID    string
		Email string
	}

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Budget is a tenant-like container for categories; it may be shared.
	Budget struct {
		ID          string
		Name        string
		MemberCount int
	}

	// Transaction is a single spend event recorded against a subcategory.
	Transaction struct {
		ID            string
		SubcategoryID string
		Description   string
		Amount        Money
		Date          Date
		Icon          string
	}

	Subcategory struct {
		ID           string
		Name         string
		Allotted     Money
		Transactions []Transaction
	}

	// Category is scoped to one budget and one reporting period.
	// Budget is the planned ceiling for the period.
	Category struct {
		ID     string
		Name   string
		Budget Money
		Items  []Subcategory
	}

	// Tree is the category hierarchy for one scope, keyed by category name.
	Tree map[string]Category

	// Invitation links a budget to an invitee email through a one-time token.
	Invitation struct {
		Token        string
		BudgetID     string
		BudgetName   string
		InviteeEmail string
		Link         string
	}

	CategoryInput struct {
		Name   string
		Budget Money
	}

	SubcategoryInput struct {
		CategoryID string
		Name       string
		Allotted   Money
	}

	TransactionInput struct {
		SubcategoryID string
		Description   string
		Amount        Money
		Date          Date
		Icon          string
	}
)

var (
	ErrInvalidDay          = errors.New("invalid day")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidYear         = errors.New("invalid year")
	ErrInvalidPeriodLabel  = errors.New("invalid period label")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNegativeAmount      = errors.New("amount cannot be negative")
	ErrEmptyName           = errors.New("empty name")
	ErrDuplicateCategory   = errors.New("a category with this name already exists for this month")
	ErrNameTooLong         = errors.New("name too long (max 100 characters)")
	ErrEmptyDescription    = errors.New("empty description")
	ErrMissingCategory     = errors.New("missing category id")
	ErrMissingSubcategory  = errors.New("missing subcategory id")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrEmptyInvitationCode = errors.New("empty invitation token")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD, the format the API expects.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// Period returns the reporting period the date falls in.
func (d Date) Period() Period {
	return Period{Month: int(d.Month()), Year: d.Year()}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateBudgetName checks a budget name before it is sent anywhere.
func ValidateBudgetName(name string) error {
	return validateName(name)
}

// ValidateEmail accepts a bare address ("a@b.c"), not a display-name form.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (in CategoryInput) Validate() error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if in.Budget.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (in SubcategoryInput) Validate() error {
	if strings.TrimSpace(in.CategoryID) == "" {
		return ErrMissingCategory
	}
	if err := validateName(in.Name); err != nil {
		return err
	}
	if in.Allotted.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (in TransactionInput) Validate() error {
	if strings.TrimSpace(in.SubcategoryID) == "" {
		return ErrMissingSubcategory
	}
	if len(strings.TrimSpace(in.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(in.Description) > maxDescriptionLength {
		return errors.New("description too long (max 200 characters)")
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	return in.Date.Validate()
}

// WithDefaults fills the icon when the caller left it empty.
func (in TransactionInput) WithDefaults() TransactionInput {
	if strings.TrimSpace(in.Icon) == "" {
		in.Icon = DefaultIcon
	}
	in.Description = strings.TrimSpace(in.Description)
	return in
}
