package persistence

import (
	"github.com/google/uuid"
	"github.com/martijn/clientbook/internal/core/domain"
	"gorm.io/datatypes"
)

// clientRecord is the gorm model of the denormalized clients table.
type clientRecord struct {
	ID                   uuid.UUID                   `gorm:"column:id;primaryKey"`
	TenantID             uuid.UUID                   `gorm:"column:tenant_id;not null;index"`
	FirstName            string                      `gorm:"column:first_name;not null"`
	FamilyName           string                      `gorm:"column:family_name"`
	City                 string                      `gorm:"column:city;not null"`
	Street               string                      `gorm:"column:street"`
	BuildingNumber       string                      `gorm:"column:building_number"`
	AddressLines         datatypes.JSONSlice[string] `gorm:"column:address_lines"`
	PrimaryPhoneNumber   string                      `gorm:"column:primary_phone_number;not null"`
	SecondaryPhoneNumber string                      `gorm:"column:secondary_phone_number"`
	EmailAddress         string                      `gorm:"column:email_address"`
}

func (clientRecord) TableName() string {
	return "clients"
}

func newClientRecord(c *domain.Client) clientRecord {
	s := c.Snapshot()
	return clientRecord{
		ID:                   s.ID,
		TenantID:             s.TenantID,
		FirstName:            s.FirstName,
		FamilyName:           s.FamilyName,
		City:                 s.City,
		Street:               s.Street,
		BuildingNumber:       s.BuildingNumber,
		AddressLines:         datatypes.JSONSlice[string](s.AddressLines),
		PrimaryPhoneNumber:   s.PrimaryPhoneNumber,
		SecondaryPhoneNumber: s.SecondaryPhoneNumber,
		EmailAddress:         s.EmailAddress,
	}
}

func (r clientRecord) toDomain() (*domain.Client, error) {
	return domain.Rehydrate(domain.Snapshot{
		ID:                   r.ID,
		TenantID:             r.TenantID,
		FirstName:            r.FirstName,
		FamilyName:           r.FamilyName,
		City:                 r.City,
		Street:               r.Street,
		BuildingNumber:       r.BuildingNumber,
		AddressLines:         []string(r.AddressLines),
		PrimaryPhoneNumber:   r.PrimaryPhoneNumber,
		SecondaryPhoneNumber: r.SecondaryPhoneNumber,
		EmailAddress:         r.EmailAddress,
	})
}

// updateParams are the named arguments of the update_client procedure.
func updateParams(c *domain.Client) map[string]interface{} {
	s := c.Snapshot()
	return map[string]interface{}{
		"p_id":                     s.ID,
		"p_tenant_id":              s.TenantID,
		"p_first_name":             s.FirstName,
		"p_family_name":            s.FamilyName,
		"p_city":                   s.City,
		"p_street":                 s.Street,
		"p_building_number":        s.BuildingNumber,
		"p_address_lines":          datatypes.JSONSlice[string](s.AddressLines),
		"p_primary_phone_number":   s.PrimaryPhoneNumber,
		"p_secondary_phone_number": s.SecondaryPhoneNumber,
		"p_email_address":          s.EmailAddress,
	}
}
