package postgres

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ddlTableRe  = regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS (\w+) \((.*?)\n\);`)
	ddlColumnRe = regexp.MustCompile(`^[a-z_]+$`)
)

// ddlColumns разбирает константу schema: таблица -> множество
// объявленных колонок.
func ddlColumns(t *testing.T) map[string]map[string]bool {
	t.Helper()

	tables := map[string]map[string]bool{}
	for _, m := range ddlTableRe.FindAllStringSubmatch(schema, -1) {
		cols := map[string]bool{}
		for _, line := range strings.Split(m[2], "\n") {
			fields := strings.Fields(line)
			if len(fields) == 0 || !ddlColumnRe.MatchString(fields[0]) {
				continue
			}
			cols[fields[0]] = true
		}
		tables[m[1]] = cols
	}
	require.NotEmpty(t, tables)
	return tables
}

// Списки колонок, которыми оперируют репозитории, обязаны ссылаться
// только на колонки, которые EnsureSchema реально создаёт. Расхождение
// здесь означает 42703 на каждом запросе в проде.
func TestSchemaDeclaresQueriedColumns(t *testing.T) {
	t.Parallel()

	tables := ddlColumns(t)

	cases := []struct {
		table   string
		columns string
	}{
		{"agents", agentColumns},
		{"knowledge_sources", sourceColumns},
		{"profiles", profileColumns},
		{"source_events", eventColumns},
	}
	for _, tc := range cases {
		declared, ok := tables[tc.table]
		require.True(t, ok, "table %s is missing from the schema", tc.table)
		for _, col := range strings.Split(tc.columns, ",") {
			col = strings.TrimSpace(col)
			assert.True(t, declared[col], "%s.%s is queried but never declared", tc.table, col)
		}
	}
}

func TestSchemaProfilesKeyedByUserID(t *testing.T) {
	t.Parallel()

	tables := ddlColumns(t)
	require.Contains(t, tables, "profiles")
	assert.True(t, tables["profiles"]["user_id"], "profiles must be keyed by user_id")
	assert.False(t, tables["profiles"]["id"], "profiles has no synthetic id column")
}
