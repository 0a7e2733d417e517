package curation

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
)

/*
Parser for the curation query language:

	Query     := Expr
	Expr      := OrExpr ( "OR" OrExpr )*
	OrExpr    := Condition ( "AND" Condition )*
	Condition := [ "NOT" ] ( Comparison | "(" Expr ")" )
	Comparison:= Field Op Value
	Field     := "tag" | "score" | "sharpness" | "composition" | "emotion" | "action" | "duplicate"
	Op        := "CONTAINS" | "<" | ">" | "="
	Value     := <string> | <number>

tag comparisons take a string value (tag = "sharp", tag CONTAINS "dup");
all other fields compare numerically (score > 0.7).
*/

var queryParser = participle.MustBuild[queryExpr](
	participle.Unquote("String"),
	participle.Union[queryValue](stringValue{}, numberValue{}),
)

// ParseQuery compiles a query string into a Filter.
func ParseQuery(query string) (Filter, error) {
	q, err := queryParser.ParseString("", query)
	if err != nil {
		return nil, fmt.Errorf("error parsing query '%s': %w", query, err)
	}

	filter, err := q.toFilter()
	if err != nil {
		return nil, fmt.Errorf("error converting query '%s' to filter: %w", query, err)
	}

	return filter, nil
}

type queryExpr struct {
	Expr *orChain `parser:"@@"`
}

func (q *queryExpr) toFilter() (Filter, error) {
	return q.Expr.toFilter()
}

type orChain struct {
	Ors []*andChain `parser:"@@ ( \"OR\" @@ )*"`
}

func (e *orChain) toFilter() (Filter, error) {
	if len(e.Ors) == 0 {
		return nil, fmt.Errorf("empty OR expression")
	}
	if len(e.Ors) == 1 {
		return e.Ors[0].toFilter()
	}

	var filters []Filter
	for _, cond := range e.Ors {
		f, err := cond.toFilter()
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return &OrFilter{filters: filters}, nil
}

type andChain struct {
	Ands []*condition `parser:"@@ ( \"AND\" @@ )*"`
}

func (e *andChain) toFilter() (Filter, error) {
	if len(e.Ands) == 0 {
		return nil, fmt.Errorf("empty AND expression")
	}
	if len(e.Ands) == 1 {
		return e.Ands[0].toFilter()
	}

	var filters []Filter
	for _, cond := range e.Ands {
		f, err := cond.toFilter()
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return &AndFilter{filters: filters}, nil
}

type condition struct {
	Not        bool        `parser:"@\"NOT\"?"`
	Comparison *comparison `parser:" @@"`
	SubExpr    *orChain    `parser:"| \"(\" @@ \")\""`
}

func (c *condition) toFilter() (Filter, error) {
	var filter Filter
	var err error
	if c.Comparison != nil {
		filter, err = c.Comparison.toFilter()
	} else if c.SubExpr != nil {
		filter, err = c.SubExpr.toFilter()
	}
	if err != nil {
		return nil, err
	}

	if c.Not {
		filter = &NotFilter{filter: filter}
	}
	return filter, nil
}

type comparison struct {
	Field string     `parser:"@Ident"`
	Op    string     `parser:"@(\"CONTAINS\" | \"<\" | \">\" | \"=\")"`
	Value queryValue `parser:"@@"`
}

func (c *comparison) toFilter() (Filter, error) {
	if c.Field == "tag" {
		s, ok := c.Value.(stringValue)
		if !ok {
			return nil, fmt.Errorf("tag comparisons require a string value")
		}
		switch c.Op {
		case "CONTAINS":
			return &TagContainsFilter{substr: s.Value}, nil
		case "=":
			return &TagEqFilter{tag: s.Value}, nil
		default:
			return nil, fmt.Errorf("invalid operator %s for tag comparison", c.Op)
		}
	}

	switch c.Field {
	case "score", "sharpness", "composition", "emotion", "action", "duplicate":
	default:
		return nil, fmt.Errorf("unknown field %q", c.Field)
	}

	n, ok := c.Value.(numberValue)
	if !ok {
		return nil, fmt.Errorf("%s comparisons require a numeric value", c.Field)
	}
	if c.Op == "CONTAINS" {
		return nil, fmt.Errorf("CONTAINS is only valid for tag comparisons")
	}
	return &ScoreFilter{field: c.Field, op: c.Op, value: n.Value}, nil
}

type queryValue interface{ value() }

type stringValue struct {
	Value string `parser:"@String"`
}

func (stringValue) value() {}

type numberValue struct {
	Value float64 `parser:"@(Float | Int)"`
}

func (numberValue) value() {}
