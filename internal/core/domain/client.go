package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Client is the aggregate root. Address and ContactDetails are only reachable
// through it and are replaced as whole values.
type Client struct {
	id             uuid.UUID
	tenantID       uuid.UUID
	firstName      string
	familyName     string
	address        Address
	contactDetails ContactDetails
}

// NewClient validates its arguments and assigns a fresh identifier.
func NewClient(firstName, familyName string, address *Address, contactDetails *ContactDetails, tenantID uuid.UUID) (*Client, error) {
	firstName = strings.TrimSpace(firstName)
	if firstName == "" {
		return nil, Validation("firstName must not be empty")
	}
	if err := checkAddress(address); err != nil {
		return nil, err
	}
	if err := checkContactDetails(contactDetails); err != nil {
		return nil, err
	}
	if tenantID == uuid.Nil {
		return nil, Validation("tenantID must not be empty")
	}
	return &Client{
		id:             uuid.New(),
		tenantID:       tenantID,
		firstName:      firstName,
		familyName:     strings.TrimSpace(familyName),
		address:        cloneAddress(*address),
		contactDetails: *contactDetails,
	}, nil
}

func (c *Client) ID() uuid.UUID                  { return c.id }
func (c *Client) TenantID() uuid.UUID            { return c.tenantID }
func (c *Client) FirstName() string              { return c.firstName }
func (c *Client) FamilyName() string             { return c.familyName }
func (c *Client) Address() Address               { return cloneAddress(c.address) }
func (c *Client) ContactDetails() ContactDetails { return c.contactDetails }

// IsZero reports whether c is the empty default value.
func (c *Client) IsZero() bool {
	return c.id == uuid.Nil &&
		c.tenantID == uuid.Nil &&
		c.firstName == "" &&
		c.familyName == "" &&
		c.address.Equal(Address{}) &&
		c.contactDetails.Equal(ContactDetails{})
}

func (c *Client) UpdateAddress(address *Address) error {
	if err := checkAddress(address); err != nil {
		return err
	}
	c.address = cloneAddress(*address)
	return nil
}

func (c *Client) UpdateContactDetails(contactDetails *ContactDetails) error {
	if err := checkContactDetails(contactDetails); err != nil {
		return err
	}
	c.contactDetails = *contactDetails
	return nil
}

// UpdateClient copies the names from source and replaces the value objects
// that source carries. Identity and tenant are never copied.
func (c *Client) UpdateClient(source *Client) error {
	if source == nil || source.IsZero() {
		return Validation("source client must not be empty")
	}
	if source.firstName == "" {
		return Validation("firstName must not be empty")
	}
	c.firstName = source.firstName
	c.familyName = source.familyName
	if !source.address.Equal(Address{}) {
		c.address = cloneAddress(source.address)
	}
	if !source.contactDetails.Equal(ContactDetails{}) {
		c.contactDetails = source.contactDetails
	}
	return nil
}

func (c *Client) Equal(other *Client) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.id == other.id &&
		c.tenantID == other.tenantID &&
		c.firstName == other.firstName &&
		c.familyName == other.familyName &&
		c.address.Equal(other.address) &&
		c.contactDetails.Equal(other.contactDetails)
}

func (c *Client) String() string {
	var sb strings.Builder
	sb.WriteString(c.firstName)
	if c.familyName != "" {
		sb.WriteString(" ")
		sb.WriteString(c.familyName)
	}
	sb.WriteString(", ")
	sb.WriteString(c.address.String())
	sb.WriteString(", ")
	sb.WriteString(c.contactDetails.String())
	return sb.String()
}

// checkAddress rejects nil and zero-value addresses; only NewAddress yields a usable one.
func checkAddress(address *Address) error {
	if address == nil {
		return Validation("address must not be nil")
	}
	if address.city == "" {
		return Validation("invalid address: City must not be empty")
	}
	return nil
}

func checkContactDetails(contactDetails *ContactDetails) error {
	if contactDetails == nil {
		return Validation("contactDetails must not be nil")
	}
	if contactDetails.primaryPhoneNumber == "" {
		return Validation("invalid contact details: PrimaryPhoneNumber must not be empty")
	}
	return nil
}

func cloneAddress(a Address) Address {
	a.addressLines = a.AddressLines()
	return a
}
