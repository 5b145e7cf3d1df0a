package persistence

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/martijn/clientbook/internal/core/domain"
	"github.com/martijn/clientbook/internal/core/repository"
)

// clientColumns is the projection read by the row mapper, in split order.
const clientColumns = "id, tenant_id, first_name, family_name, " +
	"city, street, building_number, address_lines, " +
	"primary_phone_number, secondary_phone_number, email_address"

const defaultOrder = "family_name ASC, first_name ASC, id ASC"

// orderableColumns whitelists the columns a search may sort on.
var orderableColumns = map[string]bool{
	"id":              true,
	"first_name":      true,
	"family_name":     true,
	"city":            true,
	"street":          true,
	"building_number": true,
	"email_address":   true,
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Statement is a compiled query. SQL and Args are ready for sqlx in the
// dialect's placeholder style. Where, WhereArgs, OrderBy, Limit and Offset
// carry the same predicate in pieces for the gorm path, with '?' placeholders.
type Statement struct {
	SQL       string
	Args      []interface{}
	Where     string
	WhereArgs []interface{}
	OrderBy   string
	Limit     int
	Offset    int
}

type QueryCompiler struct {
	bindType int
}

func NewQueryCompiler(dialect Dialect) *QueryCompiler {
	return &QueryCompiler{bindType: dialect.BindType()}
}

// CompileSearch builds a tenant-scoped, case-insensitive substring search
// (ASCII-only case folding on SQLite).
// Empty criteria fields impose no constraint; present ones are combined with AND.
func (c *QueryCompiler) CompileSearch(tenantID uuid.UUID, criteria repository.SearchCriteria) (Statement, error) {
	where := "tenant_id = ?"
	args := []interface{}{tenantID}

	where, args = applyContains(where, args, "first_name", criteria.FirstName)
	where, args = applyContains(where, args, "family_name", criteria.FamilyName)
	where, args = applyContains(where, args, "city", criteria.City)

	orderBy, err := buildOrdering(criteria.Order)
	if err != nil {
		return Statement{}, err
	}
	if criteria.PerPage < 0 || criteria.Page < 0 {
		return Statement{}, domain.Validation("page and per_page must not be negative")
	}
	limit, offset := pagination(criteria.Page, criteria.PerPage)

	query := "SELECT " + clientColumns + " FROM clients WHERE " + where + " ORDER BY " + orderBy
	queryArgs := append([]interface{}{}, args...)
	if limit > 0 {
		query += " LIMIT ?"
		queryArgs = append(queryArgs, limit)
		if offset > 0 {
			query += " OFFSET ?"
			queryArgs = append(queryArgs, offset)
		}
	}

	return Statement{
		SQL:       sqlx.Rebind(c.bindType, query),
		Args:      queryArgs,
		Where:     where,
		WhereArgs: args,
		OrderBy:   orderBy,
		Limit:     limit,
		Offset:    offset,
	}, nil
}

// CompileGetByID builds the point lookup used by the mapped store.
func (c *QueryCompiler) CompileGetByID(tenantID, id uuid.UUID) Statement {
	where := "tenant_id = ? AND id = ?"
	args := []interface{}{tenantID, id}
	query := "SELECT " + clientColumns + " FROM clients WHERE " + where + " LIMIT 1"
	return Statement{
		SQL:       sqlx.Rebind(c.bindType, query),
		Args:      args,
		Where:     where,
		WhereArgs: args,
		Limit:     1,
	}
}

// applyContains appends a LIKE clause for value when it is non-empty. Both
// sides are folded by the database's LOWER, so a fragment always matches its
// own stored text. SQLite's LOWER folds ASCII letters only; Postgres folds
// per the database locale. The cast keeps Postgres from matching the range
// overloads of LOWER.
func applyContains(where string, args []interface{}, column, value string) (string, []interface{}) {
	if value == "" {
		return where, args
	}
	where += fmt.Sprintf(` AND LOWER(%s) LIKE LOWER(CAST(? AS TEXT)) ESCAPE '\'`, column)
	args = append(args, "%"+likeEscaper.Replace(value)+"%")
	return where, args
}

func buildOrdering(orders []repository.OrderClause) (string, error) {
	if len(orders) == 0 {
		return defaultOrder, nil
	}
	clauses := make([]string, 0, len(orders)+1)
	hasID := false
	for _, o := range orders {
		field := strings.ToLower(o.Field)
		if !orderableColumns[field] {
			return "", domain.Validation("cannot order by %q", o.Field)
		}
		direction := "ASC"
		switch o.Direction {
		case repository.OrderDesc:
			direction = "DESC"
		case repository.OrderAsc, "":
		default:
			return "", domain.Validation("invalid order direction %q", o.Direction)
		}
		if field == "id" {
			hasID = true
		}
		clauses = append(clauses, field+" "+direction)
	}
	// id breaks ties so pages are stable
	if !hasID {
		clauses = append(clauses, "id ASC")
	}
	return strings.Join(clauses, ", "), nil
}

func pagination(page, perPage int) (limit, offset int) {
	if perPage <= 0 {
		return 0, 0
	}
	if page > 1 {
		offset = (page - 1) * perPage
	}
	return perPage, offset
}
