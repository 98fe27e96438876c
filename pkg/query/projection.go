// Package query builds parameterized SELECT statements from a projection of
// logical field names onto table columns.
package query

import (
	"fmt"
	"strings"
)

// Projection maps logical field names to alias-qualified columns of one table.
type Projection struct {
	table   string
	alias   string
	columns map[string]string
	order   []string
}

// NewProjection creates a projection over schema.table aliased as alias.
func NewProjection(schema, table, alias string) *Projection {
	return &Projection{
		table:   schema + "." + table,
		alias:   alias,
		columns: make(map[string]string),
	}
}

// Project maps column to field. Columns are selected in projection order.
func (p *Projection) Project(column, field string) *Projection {
	qualified := p.alias + "." + column
	p.columns[field] = qualified
	p.order = append(p.order, qualified)
	return p
}

// Column returns the qualified column for field. Unknown fields panic, since
// they can only come from a programming error.
func (p *Projection) Column(field string) string {
	col, ok := p.columns[field]
	if !ok {
		panic(fmt.Sprintf("query: field %q not projected on %s", field, p.table))
	}
	return col
}

// Has reports whether field is projected.
func (p *Projection) Has(field string) bool {
	_, ok := p.columns[field]
	return ok
}

func (p *Projection) selectList() string {
	return strings.Join(p.order, ", ")
}

func (p *Projection) from() string {
	return p.table + " " + p.alias
}
