package domain

import (
	"slices"
	"strings"
)

// Address is an immutable value object owned by a Client. Equality is structural.
type Address struct {
	city           string
	street         string
	buildingNumber string
	addressLines   []string
}

// NewAddress builds an address. City is required; a nil lines slice is
// stored as an empty sequence.
func NewAddress(city, street, buildingNumber string, addressLines []string) (*Address, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, Validation("invalid address: City must not be empty")
	}
	lines := make([]string, len(addressLines))
	copy(lines, addressLines)
	return &Address{
		city:           city,
		street:         strings.TrimSpace(street),
		buildingNumber: strings.TrimSpace(buildingNumber),
		addressLines:   lines,
	}, nil
}

func (a Address) City() string           { return a.city }
func (a Address) Street() string         { return a.street }
func (a Address) BuildingNumber() string { return a.buildingNumber }

// AddressLines returns a copy; the result is never nil.
func (a Address) AddressLines() []string {
	lines := make([]string, len(a.addressLines))
	copy(lines, a.addressLines)
	return lines
}

func (a Address) Equal(other Address) bool {
	return a.city == other.city &&
		a.street == other.street &&
		a.buildingNumber == other.buildingNumber &&
		slices.Equal(a.addressLines, other.addressLines)
}

func (a Address) String() string {
	parts := make([]string, 0, 3+len(a.addressLines))
	for _, p := range []string{a.city, a.street, a.buildingNumber} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	for _, l := range a.addressLines {
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, ", ")
}
