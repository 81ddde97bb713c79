package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2025-03-14 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2025-03-14" {
		t.Fatalf("unexpected date: %s", d)
	}
	if d.Period() != (Period{Month: 3, Year: 2025}) {
		t.Fatalf("unexpected period: %v", d.Period())
	}
	if _, err := ParseDate("14/03/2025"); err == nil {
		t.Fatal("expected error for non ISO date")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestTransactionInputValidate(t *testing.T) {
	good := TransactionInput{
		SubcategoryID: "7",
		Description:   "Groceries",
		Amount:        Money{Cents: 4250},
		Date:          NewDate(2025, 3, 2),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		in   TransactionInput
		want error
	}{
		{TransactionInput{Description: "a", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1)}, ErrMissingSubcategory},
		{TransactionInput{SubcategoryID: "1", Description: "  ", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1)}, ErrEmptyDescription},
		{TransactionInput{SubcategoryID: "1", Description: "a", Amount: Money{Cents: 0}, Date: NewDate(2025, 1, 1)}, ErrInvalidAmount},
		{TransactionInput{SubcategoryID: "1", Description: "a", Amount: Money{Cents: -5}, Date: NewDate(2025, 1, 1)}, ErrInvalidAmount},
	}
	for i, tc := range bads {
		if err := tc.in.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
	if err := (TransactionInput{SubcategoryID: "1", Description: "a", Amount: Money{Cents: 1}}).Validate(); err == nil {
		t.Fatal("expected error for zero date")
	}
}

func TestTransactionInputWithDefaults(t *testing.T) {
	in := TransactionInput{Description: "  Coffee "}.WithDefaults()
	if in.Icon != DefaultIcon {
		t.Fatalf("expected default icon, got %q", in.Icon)
	}
	if in.Description != "Coffee" {
		t.Fatalf("expected trimmed description, got %q", in.Description)
	}
	in = TransactionInput{Icon: "car"}.WithDefaults()
	if in.Icon != "car" {
		t.Fatalf("explicit icon overwritten: %q", in.Icon)
	}
}

func TestCategoryAndSubcategoryInputValidate(t *testing.T) {
	if err := (CategoryInput{Name: "Food", Budget: Money{Cents: 50000}}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (CategoryInput{Name: "Food"}).Validate(); err != nil {
		t.Fatalf("zero budget should be allowed, got %v", err)
	}
	if err := (CategoryInput{Name: ""}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := (CategoryInput{Name: "x", Budget: Money{Cents: -1}}).Validate(); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if err := (SubcategoryInput{Name: "Rent"}).Validate(); !errors.Is(err, ErrMissingCategory) {
		t.Fatalf("expected ErrMissingCategory, got %v", err)
	}
	if err := (SubcategoryInput{CategoryID: "3", Name: "Rent", Allotted: Money{Cents: 120000}}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"a@b.co", "first.last@example.com"} {
		if err := ValidateEmail(ok); err != nil {
			t.Fatalf("%q expected ok, got %v", ok, err)
		}
	}
	for _, bad := range []string{"", "nope", "Name <a@b.co>", "@b.co"} {
		if err := ValidateEmail(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}
