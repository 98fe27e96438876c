package query

import (
	"fmt"
	"strings"
	"time"
)

// Sort orders results by a projected field.
type Sort struct {
	Field      string
	Descending bool
}

// ParseSort parses "field,-other" into sorts; a leading '-' means descending.
// Fields the projection does not know are dropped.
func ParseSort(p *Projection, s string) []Sort {
	var out []Sort
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		part = strings.TrimPrefix(part, "-")
		if part == "" || !p.Has(part) {
			continue
		}
		out = append(out, Sort{Field: part, Descending: desc})
	}
	return out
}

// Builder accumulates WHERE conditions and ordering. Placeholders are
// numbered when the statement is built.
type Builder struct {
	p     *Projection
	where []string
	args  []any
	sort  []Sort
}

// NewBuilder starts a query over p ordered by defaultSort unless overridden.
func NewBuilder(p *Projection, defaultSort ...Sort) *Builder {
	return &Builder{p: p, sort: defaultSort}
}

// WhereEquals adds field = value. Empty strings are ignored.
func (b *Builder) WhereEquals(field string, value string) *Builder {
	if value == "" {
		return b
	}
	return b.cond(b.p.Column(field)+" = ?", value)
}

// WhereContains adds a case-insensitive substring match across fields,
// joined with OR. Empty search is ignored.
func (b *Builder) WhereContains(search string, fields ...string) *Builder {
	if search == "" || len(fields) == 0 {
		return b
	}
	parts := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		parts[i] = b.p.Column(f) + " ILIKE ?"
		args[i] = "%" + search + "%"
	}
	return b.cond("("+strings.Join(parts, " OR ")+")", args...)
}

// WhereSince adds field >= t. A zero time is ignored.
func (b *Builder) WhereSince(field string, t time.Time) *Builder {
	if t.IsZero() {
		return b
	}
	return b.cond(b.p.Column(field)+" >= ?", t)
}

// OrderBy replaces the sort order when sorts is non-empty.
func (b *Builder) OrderBy(sorts []Sort) *Builder {
	if len(sorts) > 0 {
		b.sort = sorts
	}
	return b
}

// Build returns the SELECT statement and its arguments.
func (b *Builder) Build() (string, []any) {
	return b.render("SELECT "+b.p.selectList()) + b.orderBy(), b.args
}

// BuildCount returns a COUNT(*) statement with the same conditions.
func (b *Builder) BuildCount() (string, []any) {
	return b.render("SELECT COUNT(*)"), b.args
}

// BuildPage returns the SELECT statement limited to one page.
func (b *Builder) BuildPage(page, size int) (string, []any) {
	q, args := b.Build()
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", q, size, (page-1)*size), args
}

func (b *Builder) cond(clause string, args ...any) *Builder {
	b.where = append(b.where, clause)
	b.args = append(b.args, args...)
	return b
}

func (b *Builder) render(head string) string {
	var sb strings.Builder
	sb.WriteString(head)
	sb.WriteString(" FROM ")
	sb.WriteString(b.p.from())

	if len(b.where) > 0 {
		n := 0
		clauses := make([]string, len(b.where))
		for i, w := range b.where {
			for strings.Contains(w, "?") {
				n++
				w = strings.Replace(w, "?", fmt.Sprintf("$%d", n), 1)
			}
			clauses[i] = w
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}
	return sb.String()
}

func (b *Builder) orderBy() string {
	if len(b.sort) == 0 {
		return ""
	}
	parts := make([]string, len(b.sort))
	for i, s := range b.sort {
		dir := "ASC"
		if s.Descending {
			dir = "DESC"
		}
		parts[i] = b.p.Column(s.Field) + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
