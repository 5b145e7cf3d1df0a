package persistence

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/reflectx"
	"github.com/martijn/clientbook/internal/core/domain"
	"gorm.io/datatypes"
)

// SplitOn names the first result column of each sub-object in a flat row.
// Columns are expected in the order {client}{address}{contact details}.
type SplitOn struct {
	Address string
	Contact string
}

func DefaultSplitOn() SplitOn {
	return SplitOn{Address: "city", Contact: "primary_phone_number"}
}

// Segment row types. A row is scanned into these before Rehydrate turns it
// into a Client; they never leave this package.
type clientRow struct {
	ID         uuid.UUID `db:"id"`
	TenantID   uuid.UUID `db:"tenant_id"`
	FirstName  string    `db:"first_name"`
	FamilyName string    `db:"family_name"`
}

type addressRow struct {
	City           string                      `db:"city"`
	Street         string                      `db:"street"`
	BuildingNumber string                      `db:"building_number"`
	AddressLines   datatypes.JSONSlice[string] `db:"address_lines"`
}

type contactRow struct {
	PrimaryPhoneNumber   string `db:"primary_phone_number"`
	SecondaryPhoneNumber string `db:"secondary_phone_number"`
	EmailAddress         string `db:"email_address"`
}

var (
	clientRowType  = reflect.TypeOf(clientRow{})
	addressRowType = reflect.TypeOf(addressRow{})
	contactRowType = reflect.TypeOf(contactRow{})
)

// Rows is the subset of *sql.Rows / *sqlx.Rows the mapper reads.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// RowMapper turns a flat joined result set into Client aggregates.
type RowMapper struct {
	mapper *reflectx.Mapper
	split  SplitOn
}

func NewRowMapper(mapper *reflectx.Mapper, split SplitOn) *RowMapper {
	if mapper == nil {
		mapper = reflectx.NewMapper("db")
	}
	return &RowMapper{mapper: mapper, split: split}
}

// scanPlan holds the field traversal of every result column, per segment.
type scanPlan struct {
	client  [][]int
	address [][]int
	contact [][]int
}

func (m *RowMapper) plan(columns []string) (*scanPlan, error) {
	addrAt := slices.Index(columns, m.split.Address)
	contactAt := slices.Index(columns, m.split.Contact)
	switch {
	case addrAt < 0:
		return nil, fmt.Errorf("split column %q not present in result columns %v", m.split.Address, columns)
	case contactAt < 0:
		return nil, fmt.Errorf("split column %q not present in result columns %v", m.split.Contact, columns)
	case addrAt == 0 || contactAt <= addrAt:
		return nil, fmt.Errorf("split columns %q and %q are out of order in %v", m.split.Address, m.split.Contact, columns)
	}

	client, err := m.traversals(clientRowType, columns[:addrAt])
	if err != nil {
		return nil, err
	}
	address, err := m.traversals(addressRowType, columns[addrAt:contactAt])
	if err != nil {
		return nil, err
	}
	contact, err := m.traversals(contactRowType, columns[contactAt:])
	if err != nil {
		return nil, err
	}
	return &scanPlan{client: client, address: address, contact: contact}, nil
}

func (m *RowMapper) traversals(t reflect.Type, columns []string) ([][]int, error) {
	traversals := m.mapper.TraversalsByName(t, columns)
	for i, idx := range traversals {
		if len(idx) == 0 {
			return nil, fmt.Errorf("column %q does not map onto %s", columns[i], t.Name())
		}
	}
	return traversals, nil
}

// MapRows materializes every row. The result is never nil.
func (m *RowMapper) MapRows(rows Rows) ([]*domain.Client, error) {
	return m.mapRows(rows, 0)
}

// MapOne materializes the first row; found is false when there is none.
func (m *RowMapper) MapOne(rows Rows) (*domain.Client, bool, error) {
	clients, err := m.mapRows(rows, 1)
	if err != nil {
		return nil, false, err
	}
	if len(clients) == 0 {
		return nil, false, nil
	}
	return clients[0], true, nil
}

func (m *RowMapper) mapRows(rows Rows, limit int) ([]*domain.Client, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}
	p, err := m.plan(columns)
	if err != nil {
		return nil, err
	}

	clients := make([]*domain.Client, 0)
	for rows.Next() {
		var (
			cr clientRow
			ar addressRow
			kr contactRow
		)
		dest := make([]interface{}, 0, len(columns))
		dest = appendFieldPointers(dest, reflect.ValueOf(&cr).Elem(), p.client)
		dest = appendFieldPointers(dest, reflect.ValueOf(&ar).Elem(), p.address)
		dest = appendFieldPointers(dest, reflect.ValueOf(&kr).Elem(), p.contact)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan client row: %w", err)
		}

		client, err := domain.Rehydrate(domain.Snapshot{
			ID:                   cr.ID,
			TenantID:             cr.TenantID,
			FirstName:            cr.FirstName,
			FamilyName:           cr.FamilyName,
			City:                 ar.City,
			Street:               ar.Street,
			BuildingNumber:       ar.BuildingNumber,
			AddressLines:         []string(ar.AddressLines),
			PrimaryPhoneNumber:   kr.PrimaryPhoneNumber,
			SecondaryPhoneNumber: kr.SecondaryPhoneNumber,
			EmailAddress:         kr.EmailAddress,
		})
		if err != nil {
			return nil, domain.PermanentStore(fmt.Sprintf("stored client %s is invalid", cr.ID), err)
		}
		clients = append(clients, client)

		if limit > 0 && len(clients) == limit {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}
	return clients, nil
}

func appendFieldPointers(dest []interface{}, v reflect.Value, traversals [][]int) []interface{} {
	for _, idx := range traversals {
		dest = append(dest, reflectx.FieldByIndexes(v, idx).Addr().Interface())
	}
	return dest
}
