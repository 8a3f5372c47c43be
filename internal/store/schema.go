package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
)

// schemaVersion is the only schema version this package knows.
const schemaVersion = 1

// table declares a table together with its secondary indexes. Every table has an auto
// incrementing primary key named id.
type table struct {
	name    string
	columns []string
	indexed []string
}

var (
	contactsTable = table{
		name:    "contacts",
		columns: []string{"firstname", "lastname"},
		indexed: []string{"firstname", "lastname"},
	}
	emailsTable = table{
		name:    "emails",
		columns: []string{"contactid", "type", "email"},
		indexed: []string{"contactid", "type", "email"},
	}
	phonesTable = table{
		name:    "phones",
		columns: []string{"contactid", "type", "phone"},
		indexed: []string{"contactid", "type", "phone"},
	}
	tables = []table{contactsTable, emailsTable, phonesTable}
)

// isIndexed reports whether field can be used for an equality lookup.
func (t table) isIndexed(field string) bool {
	return slices.Contains(t.indexed, field)
}

// createStatements returns the DDL for the table in the given SQL dialect.
func (t table) createStatements(driver string) []string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", t.name)
	switch driver {
	case DriverMySQL:
		b.WriteString("id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY")
		for _, c := range t.columns {
			if c == "contactid" {
				b.WriteString(", contactid BIGINT NOT NULL")
			} else {
				fmt.Fprintf(&b, ", %s VARCHAR(255) NOT NULL DEFAULT ''", c)
			}
		}
		for _, c := range t.indexed {
			fmt.Fprintf(&b, ", INDEX idx_%s_%s (%s)", t.name, c, c)
		}
		b.WriteString(")")
		return []string{b.String()}
	default:
		b.WriteString("id INTEGER PRIMARY KEY AUTOINCREMENT")
		for _, c := range t.columns {
			if c == "contactid" {
				b.WriteString(", contactid INTEGER NOT NULL")
			} else {
				fmt.Fprintf(&b, ", %s TEXT NOT NULL DEFAULT ''", c)
			}
		}
		b.WriteString(")")
		statements := []string{b.String()}
		for _, c := range t.indexed {
			statements = append(statements,
				fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", t.name, c, t.name, c))
		}
		return statements
	}
}

// createSchema creates all tables and indexes if they do not exist yet. For SQLite the schema
// version is kept in user_version, and a database written by an unknown version is rejected.
func createSchema(ctx context.Context, db *sqlx.DB, driver string) error {
	if driver == DriverSQLite {
		var version int
		if err := db.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		if version != 0 && version != schemaVersion {
			return fmt.Errorf("unsupported schema version %d", version)
		}
	}
	for _, t := range tables {
		for _, statement := range t.createStatements(driver) {
			if _, err := db.ExecContext(ctx, statement); err != nil {
				return fmt.Errorf("create table %s: %w", t.name, err)
			}
		}
	}
	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
	}
	return nil
}
