package persistence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/martijn/clientbook/internal/core/domain"
	"github.com/martijn/clientbook/internal/core/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSearch_EmptyCriteriaIsTenantScoped(t *testing.T) {
	tenant := uuid.New()
	stmt, err := NewQueryCompiler(DialectSQLite).CompileSearch(tenant, repository.SearchCriteria{})
	require.NoError(t, err)

	assert.Equal(t, "tenant_id = ?", stmt.Where)
	assert.Equal(t, []interface{}{tenant}, stmt.WhereArgs)
	assert.Equal(t, "SELECT "+clientColumns+" FROM clients WHERE tenant_id = ? ORDER BY "+defaultOrder, stmt.SQL)
	assert.Equal(t, 0, stmt.Limit)
}

func TestCompileSearch_CombinesPresentFieldsWithAnd(t *testing.T) {
	tenant := uuid.New()
	stmt, err := NewQueryCompiler(DialectSQLite).CompileSearch(tenant, repository.SearchCriteria{
		FirstName: "John",
		City:      "Utrecht",
	})
	require.NoError(t, err)

	assert.Equal(t, `tenant_id = ? AND LOWER(first_name) LIKE LOWER(CAST(? AS TEXT)) ESCAPE '\' AND LOWER(city) LIKE LOWER(CAST(? AS TEXT)) ESCAPE '\'`, stmt.Where)
	assert.Equal(t, []interface{}{tenant, "%John%", "%Utrecht%"}, stmt.WhereArgs)
	assert.NotContains(t, stmt.SQL, "John", "values are never interpolated")
}

func TestCompileSearch_EscapesWildcards(t *testing.T) {
	stmt, err := NewQueryCompiler(DialectSQLite).CompileSearch(uuid.New(), repository.SearchCriteria{
		FamilyName: `50%_o\ff`,
	})
	require.NoError(t, err)
	assert.Equal(t, `%50\%\_o\\ff%`, stmt.WhereArgs[1])
}

func TestCompileSearch_BindsNonASCIIFragmentUnchanged(t *testing.T) {
	stmt, err := NewQueryCompiler(DialectSQLite).CompileSearch(uuid.New(), repository.SearchCriteria{
		FamilyName: "Émile",
		City:       "Ålesund",
	})
	require.NoError(t, err)
	assert.Equal(t, "%Émile%", stmt.WhereArgs[1])
	assert.Equal(t, "%Ålesund%", stmt.WhereArgs[2])
}

func TestCompileSearch_PostgresPlaceholders(t *testing.T) {
	stmt, err := NewQueryCompiler(DialectPostgres).CompileSearch(uuid.New(), repository.SearchCriteria{
		FirstName:  "john",
		FamilyName: "doe",
		PerPage:    10,
		Page:       3,
	})
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "tenant_id = $1")
	assert.Contains(t, stmt.SQL, "LOWER(first_name) LIKE LOWER(CAST($2 AS TEXT))")
	assert.Contains(t, stmt.SQL, "LOWER(family_name) LIKE LOWER(CAST($3 AS TEXT))")
	assert.Contains(t, stmt.SQL, "LIMIT $4 OFFSET $5")
	assert.NotContains(t, stmt.SQL, "?")
	assert.Equal(t, 10, stmt.Args[3])
	assert.Equal(t, 20, stmt.Args[4])
	// the gorm fragment keeps '?' placeholders
	assert.Contains(t, stmt.Where, "first_name) LIKE LOWER(CAST(? AS TEXT))")
}

func TestCompileSearch_Ordering(t *testing.T) {
	tests := []struct {
		name    string
		order   []repository.OrderClause
		want    string
		wantErr bool
	}{
		{
			name: "default",
			want: "family_name ASC, first_name ASC, id ASC",
		},
		{
			name:  "descending adds id tiebreak",
			order: []repository.OrderClause{{Field: "city", Direction: repository.OrderDesc}},
			want:  "city DESC, id ASC",
		},
		{
			name:  "explicit id",
			order: []repository.OrderClause{{Field: "first_name"}, {Field: "ID", Direction: repository.OrderDesc}},
			want:  "first_name ASC, id DESC",
		},
		{
			name:    "unknown column",
			order:   []repository.OrderClause{{Field: "secret; DROP TABLE clients"}},
			wantErr: true,
		},
		{
			name:    "unknown direction",
			order:   []repository.OrderClause{{Field: "city", Direction: "sideways"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := NewQueryCompiler(DialectSQLite).CompileSearch(uuid.New(), repository.SearchCriteria{Order: tt.order})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, stmt.OrderBy)
		})
	}
}

func TestCompileSearch_Pagination(t *testing.T) {
	c := NewQueryCompiler(DialectSQLite)

	stmt, err := c.CompileSearch(uuid.New(), repository.SearchCriteria{PerPage: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, stmt.Limit)
	assert.Equal(t, 0, stmt.Offset)
	assert.Contains(t, stmt.SQL, "LIMIT ?")
	assert.NotContains(t, stmt.SQL, "OFFSET")

	stmt, err = c.CompileSearch(uuid.New(), repository.SearchCriteria{PerPage: 5, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, stmt.Offset)

	_, err = c.CompileSearch(uuid.New(), repository.SearchCriteria{PerPage: -1})
	assert.True(t, domain.IsValidation(err))
}

func TestCompileGetByID(t *testing.T) {
	tenant, id := uuid.New(), uuid.New()

	stmt := NewQueryCompiler(DialectPostgres).CompileGetByID(tenant, id)
	assert.Equal(t, "SELECT "+clientColumns+" FROM clients WHERE tenant_id = $1 AND id = $2 LIMIT 1", stmt.SQL)
	assert.Equal(t, []interface{}{tenant, id}, stmt.Args)
}
