package domain

import (
	"github.com/google/uuid"
)

// Snapshot is the flattened, persistence-facing form of a Client.
type Snapshot struct {
	ID                   uuid.UUID
	TenantID             uuid.UUID
	FirstName            string
	FamilyName           string
	City                 string
	Street               string
	BuildingNumber       string
	AddressLines         []string
	PrimaryPhoneNumber   string
	SecondaryPhoneNumber string
	EmailAddress         string
}

func (c *Client) Snapshot() Snapshot {
	return Snapshot{
		ID:                   c.id,
		TenantID:             c.tenantID,
		FirstName:            c.firstName,
		FamilyName:           c.familyName,
		City:                 c.address.city,
		Street:               c.address.street,
		BuildingNumber:       c.address.buildingNumber,
		AddressLines:         c.address.AddressLines(),
		PrimaryPhoneNumber:   c.contactDetails.primaryPhoneNumber,
		SecondaryPhoneNumber: c.contactDetails.secondaryPhoneNumber,
		EmailAddress:         c.contactDetails.emailAddress,
	}
}

// Rehydrate rebuilds a stored Client, keeping its identity. It runs the same
// checks as the constructors, so a partially populated row never becomes a
// Client.
func Rehydrate(s Snapshot) (*Client, error) {
	if s.ID == uuid.Nil || s.TenantID == uuid.Nil {
		return nil, Validation("stored client is missing its identity")
	}
	address, err := NewAddress(s.City, s.Street, s.BuildingNumber, s.AddressLines)
	if err != nil {
		return nil, err
	}
	contact, err := NewContactDetails(s.PrimaryPhoneNumber, s.SecondaryPhoneNumber, s.EmailAddress)
	if err != nil {
		return nil, err
	}
	c, err := NewClient(s.FirstName, s.FamilyName, address, contact, s.TenantID)
	if err != nil {
		return nil, err
	}
	c.id = s.ID
	return c, nil
}
