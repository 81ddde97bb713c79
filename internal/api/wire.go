package api

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// ID accepts both numeric and string identifiers on the wire. Numeric-looking
// ids are written back as JSON numbers.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Amount is a decimal written as a bare JSON number. Decoding accepts
// numbers and quoted strings.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// Wire shapes of the budgeting API.
type (
	BudgetDTO struct {
		ID          ID     `json:"id"`
		Name        string `json:"name"`
		MemberCount int    `json:"member_count"`
	}

	BudgetRequest struct {
		Name string `json:"name"`
	}

	InvitationRequest struct {
		Email string `json:"email"`
	}

	InvitationDTO struct {
		Token        string `json:"token"`
		BudgetID     ID     `json:"budget_id"`
		BudgetName   string `json:"budget_name"`
		InviteeEmail string `json:"invitee_email"`
	}

	TransactionDTO struct {
		ID            ID     `json:"id"`
		SubcategoryID ID     `json:"subcategory_id,omitempty"`
		Description   string `json:"description"`
		Amount        Amount `json:"amount"`
		Date          string `json:"date"`
		Icon          string `json:"icon,omitempty"`
	}

	SubcategoryDTO struct {
		ID           ID               `json:"id"`
		Name         string           `json:"name"`
		Allotted     Amount           `json:"allotted"`
		Spending     Amount           `json:"spending"`
		Transactions []TransactionDTO `json:"transactions"`
	}

	CategoryDTO struct {
		ID            ID               `json:"id"`
		Name          string           `json:"name"`
		Budget        Amount           `json:"budget"`
		Subcategories []SubcategoryDTO `json:"subcategories"`
	}

	CategoryRequest struct {
		Name   string `json:"name"`
		Budget Amount `json:"budget"`
	}

	SubcategoryRequest struct {
		CategoryID ID     `json:"category_id"`
		Name       string `json:"name"`
		Allotted   Amount `json:"allotted"`
	}

	TransactionRequest struct {
		Description   string `json:"description"`
		Amount        Amount `json:"amount"`
		SubcategoryID ID     `json:"subcategory_id"`
		Date          string `json:"date"`
		Icon          string `json:"icon,omitempty"`
	}

	// ErrorBody is the server's error envelope.
	ErrorBody struct {
		Detail string `json:"detail"`
	}
)
