package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_SQLiteDialect(t *testing.T) {
	reg, err := Load("sqlite")
	require.NoError(t, err)

	def, ok := reg.Get("lead_time_extract")
	require.True(t, ok)
	assert.Equal(t, "lead_time_extract", def.QueryID)
	assert.NotEmpty(t, def.Description)
	assert.Contains(t, def.SQL, ":start_date")

	def, ok = reg.Get("sales_monthly_history")
	require.True(t, ok)
	assert.Contains(t, def.SQL, ":start_date")
}

func TestLoad_DuckDBDialect(t *testing.T) {
	reg, err := Load("duckdb")
	require.NoError(t, err)

	def, ok := reg.Get("lead_time_extract")
	require.True(t, ok)
	assert.Contains(t, def.SQL, "datediff")
}

func TestLoad_UnknownDialect(t *testing.T) {
	_, err := Load("postgres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dialect")
}

func TestLoad_EveryPlaceholderHasSpec(t *testing.T) {
	for _, dialect := range []string{"sqlite", "duckdb"} {
		reg, err := Load(dialect)
		require.NoError(t, err)

		for _, def := range reg.List() {
			for _, name := range Placeholders(def.SQL) {
				_, ok := def.Param(name)
				assert.True(t, ok, "query %s placeholder %s", def.QueryID, name)
			}
		}
	}
}

func TestRegistry_Get_Unknown(t *testing.T) {
	reg, err := Load("sqlite")
	require.NoError(t, err)

	_, ok := reg.Get("no_such_query")
	assert.False(t, ok)
}

func TestRegistry_List_SortedByQueryID(t *testing.T) {
	reg, err := Load("sqlite")
	require.NoError(t, err)

	defs := reg.List()
	require.NotEmpty(t, defs)
	for i := 1; i < len(defs); i++ {
		assert.True(t, defs[i-1].QueryID < defs[i].QueryID)
	}
}

func TestQueryDefinition_ParamSplit(t *testing.T) {
	reg, err := Load("sqlite")
	require.NoError(t, err)

	def, ok := reg.Get("lead_time_extract")
	require.True(t, ok)

	assert.Equal(t, []string{"start_date"}, def.RequiredParams())
	assert.Equal(t, []string{"part_no"}, def.OptionalParams())
}

func TestPlaceholders_OrderAndRepeats(t *testing.T) {
	sql := "SELECT * FROM t WHERE a = :first AND (:second IS NULL OR b = :second)"
	assert.Equal(t, []string{"first", "second", "second"}, Placeholders(sql))
}

func TestPlaceholders_IgnoresNonIdentifiers(t *testing.T) {
	sql := "SELECT strftime('%Y-%m', d) FROM t WHERE d >= :start_date"
	assert.Equal(t, []string{"start_date"}, Placeholders(sql))
}

func TestRewritePositional(t *testing.T) {
	sql := "SELECT * FROM t WHERE a = :start_date AND (:part_no IS NULL OR p = :part_no)"
	got := RewritePositional(sql)
	assert.Equal(t, "SELECT * FROM t WHERE a = ? AND (? IS NULL OR p = ?)", got)
	assert.NotContains(t, got, ":")
}

func TestRewritePositional_PrefixedNames(t *testing.T) {
	// :part must not clobber the longer :part_no.
	sql := "WHERE p = :part_no AND q = :part"
	got := RewritePositional(sql)
	assert.Equal(t, "WHERE p = ? AND q = ?", got)
	assert.Equal(t, 2, strings.Count(got, "?"))
}
