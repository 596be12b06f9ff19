package ddl

import (
	"fmt"
	"strings"

	"reviewetl/internal/table"
)

// ColumnDef describes a single column in a table definition.
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef holds the table name and an ordered list of columns. FQN may be
// dotted ("schema.table"); each segment is quoted separately.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Dialect captures the per-database differences the sinks care about:
// identifier quoting and the SQL type for each table.Kind.
type Dialect struct {
	Name  string
	Quote func(ident string) string
	Types map[table.Kind]string
}

func doubleQuote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// Built-in dialects.
var (
	SQLite = Dialect{
		Name:  "sqlite",
		Quote: doubleQuote,
		Types: map[table.Kind]string{
			table.String: "TEXT",
			table.Int:    "INTEGER",
			table.Float:  "REAL",
			table.Bool:   "INTEGER",
			table.Date:   "TEXT",
		},
	}
	Postgres = Dialect{
		Name:  "postgres",
		Quote: doubleQuote,
		Types: map[table.Kind]string{
			table.String: "TEXT",
			table.Int:    "BIGINT",
			table.Float:  "DOUBLE PRECISION",
			table.Bool:   "BOOLEAN",
			table.Date:   "DATE",
		},
	}
	MSSQL = Dialect{
		Name:  "mssql",
		Quote: func(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" },
		Types: map[table.Kind]string{
			table.String: "NVARCHAR(MAX)",
			table.Int:    "BIGINT",
			table.Float:  "FLOAT",
			table.Bool:   "BIT",
			table.Date:   "DATE",
		},
	}
	MySQL = Dialect{
		Name:  "mysql",
		Quote: func(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" },
		Types: map[table.Kind]string{
			table.String: "TEXT",
			table.Int:    "BIGINT",
			table.Float:  "DOUBLE",
			table.Bool:   "BOOLEAN",
			table.Date:   "DATE",
		},
	}
	Snowflake = Dialect{
		Name:  "snowflake",
		Quote: doubleQuote,
		Types: map[table.Kind]string{
			table.String: "VARCHAR",
			table.Int:    "NUMBER(38,0)",
			table.Float:  "DOUBLE",
			table.Bool:   "BOOLEAN",
			table.Date:   "DATE",
		},
	}
)

// QuoteFQN quotes each dotted segment of name.
func (d Dialect) QuoteFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.Quote(p)
	}
	return strings.Join(parts, ".")
}

// FromTable derives a TableDef for t. Every column is nullable.
func FromTable(fqn string, t *table.Table, d Dialect) (TableDef, error) {
	def := TableDef{FQN: fqn}
	for _, c := range t.Columns() {
		typ, ok := d.Types[c.Kind]
		if !ok {
			return TableDef{}, fmt.Errorf("%s ddl: no SQL type for %s column %q", d.Name, c.Kind, c.Name)
		}
		def.Columns = append(def.Columns, ColumnDef{Name: c.Name, SQLType: typ, Nullable: true})
	}
	return def, nil
}
