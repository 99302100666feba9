package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Column is one row of PRAGMA table_info.
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

// Tables lists the data tables of the database, leaving out the dashboard
// table itself.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name != ? ORDER BY name`,
		dashboardTable)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Columns returns the schema of table.
func (s *Store) Columns(ctx context.Context, table string) ([]Column, error) {
	known, err := s.Tables(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(known, table) {
		return nil, fmt.Errorf("table %q does not exist", table)
	}

	// identifiers cannot be bound
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, strings.ReplaceAll(table, `"`, `""`)))
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var cols []Column
	for rows.Next() {
		var (
			cid     int
			c       Column
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &c.Name, &c.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("describe %s: %w", table, err)
		}
		c.NotNull = notNull != 0
		c.PrimaryKey = pk != 0
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// DescribeTables renders the column lists of tables as prompt context. Tables
// that cannot be described are reported inline instead of failing the call.
func (s *Store) DescribeTables(ctx context.Context, tables []string) (string, error) {
	var b strings.Builder
	for _, table := range tables {
		table = strings.TrimSpace(table)
		if table == "" {
			continue
		}
		cols, err := s.Columns(ctx, table)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		fmt.Fprintf(&b, "Table: %s\n", table)
		if err != nil {
			s.logger.Debug("Could not describe table", zap.String("table", table), zap.Error(err))
			b.WriteString("Error: could not retrieve schema\n\n")
			continue
		}
		b.WriteString(strings.Repeat("-", len(table)+7))
		b.WriteByte('\n')
		for _, c := range cols {
			fmt.Fprintf(&b, "  %s: %s", c.Name, c.Type)
			if c.PrimaryKey {
				b.WriteString(" PRIMARY KEY")
			}
			if c.NotNull {
				b.WriteString(" NOT NULL")
			}
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
