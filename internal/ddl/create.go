// Package ddl renders the CREATE/DROP statements the database sinks run
// when they replace a table, for each supported SQL dialect.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders
//
//	CREATE TABLE <fqn> (
//	  <col> <type> [NOT NULL],
//	  ...
//	)
//
// with identifiers quoted by d. Columns must have a name and a type.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s ddl: column %s missing SQLType", d.Name, name)
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", d.QuoteFQN(fqn), strings.Join(cols, ",\n  ")), nil
}

// DropTableSQL renders DROP TABLE IF EXISTS for fqn.
func DropTableSQL(fqn string, d Dialect) string {
	return "DROP TABLE IF EXISTS " + d.QuoteFQN(fqn)
}

// InsertSQL renders a single-row INSERT with "?" placeholders. Callers
// rebind the placeholders for their driver.
func InsertSQL(fqn string, columns []string, d Dialect) string {
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteFQN(fqn), strings.Join(quoted, ", "), strings.Join(marks, ", "))
}
