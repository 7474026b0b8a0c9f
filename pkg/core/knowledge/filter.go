package knowledge

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// =============================================================================
// RETRIEVAL FILTER
// Expressions over the {year, type} schema, written as
//   and(in("year", [2023, 2022]), eq("type", "Item 1A"))
// NO_FILTER (or an empty string) means no restriction.
// =============================================================================

// NoFilter is the literal a translator emits when a query has no constraint.
const NoFilter = "NO_FILTER"

// Attributes that may appear in a filter.
const (
	AttrYear = "year"
	AttrType = "type"
)

var comparators = map[string]bool{
	"eq": true, "ne": true, "gt": true, "gte": true,
	"lt": true, "lte": true, "in": true, "nin": true,
}

var operators = map[string]bool{"and": true, "or": true, "not": true}

// Filter restricts retrieval to entries whose metadata matches.
type Filter interface {
	Match(m Metadata) bool
	String() string
}

// Comparison tests one attribute. Year comparisons use Years, type
// comparisons use Types; single-value comparators read the first element.
type Comparison struct {
	Comparator string
	Attribute  string
	Years      []int
	Types      []string
}

func (c *Comparison) Match(m Metadata) bool {
	switch c.Attribute {
	case AttrYear:
		return compare(c.Comparator, m.Year, c.Years)
	case AttrType:
		return compare(c.Comparator, m.Type, c.Types)
	}
	return false
}

func (c *Comparison) String() string {
	var vals []string
	if c.Attribute == AttrYear {
		for _, y := range c.Years {
			vals = append(vals, strconv.Itoa(y))
		}
	} else {
		for _, t := range c.Types {
			vals = append(vals, strconv.Quote(t))
		}
	}
	value := ""
	if c.Comparator == "in" || c.Comparator == "nin" {
		value = "[" + strings.Join(vals, ", ") + "]"
	} else if len(vals) > 0 {
		value = vals[0]
	}
	return fmt.Sprintf("%s(%q, %s)", c.Comparator, c.Attribute, value)
}

func compare[T int | string](cmp string, v T, vals []T) bool {
	if len(vals) == 0 {
		return cmp == "nin"
	}
	switch cmp {
	case "eq":
		return v == vals[0]
	case "ne":
		return v != vals[0]
	case "gt":
		return v > vals[0]
	case "gte":
		return v >= vals[0]
	case "lt":
		return v < vals[0]
	case "lte":
		return v <= vals[0]
	case "in", "nin":
		found := false
		for _, x := range vals {
			if x == v {
				found = true
				break
			}
		}
		return found == (cmp == "in")
	}
	return false
}

// Operation combines filters with and/or/not.
type Operation struct {
	Operator string
	Args     []Filter
}

func (o *Operation) Match(m Metadata) bool {
	switch o.Operator {
	case "and":
		for _, f := range o.Args {
			if !f.Match(m) {
				return false
			}
		}
		return true
	case "or":
		for _, f := range o.Args {
			if f.Match(m) {
				return true
			}
		}
		return false
	case "not":
		return len(o.Args) == 1 && !o.Args[0].Match(m)
	}
	return false
}

func (o *Operation) String() string {
	parts := make([]string, len(o.Args))
	for i, f := range o.Args {
		parts[i] = f.String()
	}
	return o.Operator + "(" + strings.Join(parts, ", ") + ")"
}

// YearIn restricts to the given years.
func YearIn(years ...int) Filter {
	return &Comparison{Comparator: "in", Attribute: AttrYear, Years: years}
}

// TypeIn restricts to the given section keys.
func TypeIn(types ...string) Filter {
	return &Comparison{Comparator: "in", Attribute: AttrType, Types: types}
}

// And conjoins filters, dropping nils. It returns nil when nothing remains.
func And(filters ...Filter) Filter {
	var args []Filter
	for _, f := range filters {
		if f != nil {
			args = append(args, f)
		}
	}
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0]
	}
	return &Operation{Operator: "and", Args: args}
}

// Describe renders f, or NO_FILTER for nil.
func Describe(f Filter) string {
	if f == nil {
		return NoFilter
	}
	return f.String()
}

// =============================================================================
// PARSER
// =============================================================================

// ParseFilter parses the filter expression language. Year values may be
// written as numbers or quoted digits.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == NoFilter {
		return nil, nil
	}
	p := &filterParser{src: []rune(s)}
	f, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing input")
	}
	return f, nil
}

type filterParser struct {
	src []rune
	pos int
}

func (p *filterParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("filter parse error at %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *filterParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *filterParser) peek() rune {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *filterParser) expect(r rune) error {
	if p.peek() != r {
		return p.errorf("expected %q", r)
	}
	p.pos++
	return nil
}

func (p *filterParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && (unicode.IsLetter(p.src[p.pos]) || p.src[p.pos] == '_') {
		p.pos++
	}
	return string(p.src[start:p.pos])
}

func (p *filterParser) parseExpr() (Filter, error) {
	name := p.ident()
	if name == "" {
		return nil, p.errorf("expected comparator or operator")
	}
	if name == NoFilter {
		return nil, nil
	}
	if err := p.expect('('); err != nil {
		return nil, err
	}

	switch {
	case operators[name]:
		var args []Filter
		for {
			f, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if f != nil {
				args = append(args, f)
			}
			if p.peek() != ',' {
				break
			}
			p.pos++
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		if name == "not" && len(args) != 1 {
			return nil, p.errorf("not() takes exactly one argument")
		}
		if len(args) == 0 {
			return nil, nil
		}
		return &Operation{Operator: name, Args: args}, nil

	case comparators[name]:
		attr, err := p.parseString()
		if err != nil {
			return nil, err
		}
		if attr != AttrYear && attr != AttrType {
			return nil, p.errorf("unknown attribute %q", attr)
		}
		if err := p.expect(','); err != nil {
			return nil, err
		}
		values, err := p.parseValues()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return newComparison(name, attr, values)
	}
	return nil, p.errorf("unknown function %q", name)
}

func newComparison(cmp, attr string, values []string) (Filter, error) {
	if cmp != "in" && cmp != "nin" && len(values) != 1 {
		return nil, fmt.Errorf("%s(%q) takes a single value", cmp, attr)
	}
	c := &Comparison{Comparator: cmp, Attribute: attr}
	for _, v := range values {
		if attr == AttrType {
			c.Types = append(c.Types, v)
			continue
		}
		y, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("year value %q is not a number", v)
		}
		c.Years = append(c.Years, y)
	}
	return c, nil
}

// parseValues reads a scalar or a [list] of scalars.
func (p *filterParser) parseValues() ([]string, error) {
	if p.peek() != '[' {
		v, err := p.parseScalar()
		if err != nil {
			return nil, err
		}
		return []string{v}, nil
	}
	p.pos++

	var values []string
	if p.peek() == ']' {
		p.pos++
		return values, nil
	}
	for {
		v, err := p.parseScalar()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.peek() != ',' {
			break
		}
		p.pos++
	}
	if err := p.expect(']'); err != nil {
		return nil, err
	}
	return values, nil
}

func (p *filterParser) parseScalar() (string, error) {
	switch r := p.peek(); {
	case r == '"' || r == '\'':
		return p.parseString()
	case unicode.IsDigit(r) || r == '-':
		start := p.pos
		p.pos++
		for p.pos < len(p.src) && (unicode.IsDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
			p.pos++
		}
		return string(p.src[start:p.pos]), nil
	}
	return "", p.errorf("expected a value")
}

func (p *filterParser) parseString() (string, error) {
	quote := p.peek()
	if quote != '"' && quote != '\'' {
		return "", p.errorf("expected quoted string")
	}
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.src) {
		r := p.src[p.pos]
		p.pos++
		switch {
		case r == '\\' && p.pos < len(p.src):
			sb.WriteRune(p.src[p.pos])
			p.pos++
		case r == quote:
			return sb.String(), nil
		default:
			sb.WriteRune(r)
		}
	}
	return "", p.errorf("unterminated string")
}
