package repository

// OrderDirection represents sort direction
type OrderDirection string

const (
	OrderAsc  OrderDirection = "asc"
	OrderDesc OrderDirection = "desc"
)

// OrderClause represents a single order by clause
type OrderClause struct {
	Field     string
	Direction OrderDirection
}

// SearchCriteria filters clients by case-insensitive substring match.
// Empty fields impose no constraint; present fields are combined with AND.
type SearchCriteria struct {
	FirstName  string
	FamilyName string
	City       string

	Order   []OrderClause
	Page    int
	PerPage int
}
