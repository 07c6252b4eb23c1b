package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AddressLabel names what kind of place a saved address is.
type AddressLabel string

const (
	AddressHome         AddressLabel = "home"
	AddressOffice       AddressLabel = "office"
	AddressGrandparents AddressLabel = "grandparents"
	AddressDaycare      AddressLabel = "daycare"
	AddressRelative     AddressLabel = "relative"
	AddressOther        AddressLabel = "other"
)

// Valid reports whether l is a known address label.
func (l AddressLabel) Valid() bool {
	switch l {
	case AddressHome, AddressOffice, AddressGrandparents, AddressDaycare,
		AddressRelative, AddressOther:
		return true
	}
	return false
}

// Address is a user's saved delivery address. At most one address per
// user holds each default flag; setting a default clears the previous
// holder in the same transaction.
type Address struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Label  AddressLabel

	ContactName string
	Phone       string
	Line1       string
	Line2       string
	City        string
	County      string
	PostalCode  string
	Country     string

	DeliveryInstructions string

	IsDefaultShipping bool
	IsDefaultBilling  bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// nairobiSpellings are the county values treated as metro Nairobi for
// shipping method validation.
var nairobiSpellings = map[string]bool{
	"nairobi":        true,
	"nairobi county": true,
	"nairobi city":   true,
}

// IsNairobi reports whether the county names Nairobi, tolerating the
// common spellings and casing customers actually type.
func IsNairobi(county string) bool {
	return nairobiSpellings[strings.ToLower(strings.TrimSpace(county))]
}
