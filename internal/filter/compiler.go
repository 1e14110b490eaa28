// Package filter translates client-supplied filter descriptors into typed
// query conditions. Descriptors that are malformed or use an operator the
// field's type does not support are reported back as rejections rather than
// silently dropped, so the caller can log what was ignored.
package filter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Descriptor is one client-requested constraint on a single field.
type Descriptor struct {
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Kind identifies how a condition compares its column against its args.
type Kind string

const (
	KindEquals        Kind = "equals"         // Args[0]
	KindContains      Kind = "contains"       // Args[0], case-insensitive substring
	KindIn            Kind = "in"             // Args[...]
	KindGreaterThan   Kind = "gt"             // Args[0], strict
	KindLessThan      Kind = "lt"             // Args[0], strict
	KindRangeClosed   Kind = "range_closed"   // Args[0] <= col <= Args[1]
	KindRangeHalfOpen Kind = "range_halfopen" // Args[0] <= col < Args[1]
)

// Condition is a single compiled predicate on one column.
type Condition struct {
	Column string
	Kind   Kind
	Args   []any
}

// Rejected reports a descriptor that compiled to nothing, and why.
type Rejected struct {
	Field  string
	Reason string
}

type fieldType int

const (
	fieldText fieldType = iota
	fieldEnum
	fieldNumeric
	fieldDate
	fieldBool
)

// fields maps client field names to their type and database column.
var fields = map[string]struct {
	typ    fieldType
	column string
}{
	"email":            {fieldText, "email"},
	"company":          {fieldText, "company"},
	"city":             {fieldText, "city"},
	"status":           {fieldEnum, "status"},
	"source":           {fieldEnum, "source"},
	"score":            {fieldNumeric, "score"},
	"leadValue":        {fieldNumeric, "lead_value"},
	"created_at":       {fieldDate, "created_at"},
	"last_activity_at": {fieldDate, "last_activity_at"},
	"is_qualified":     {fieldBool, "is_qualified"},
}

// ParseDescriptor decodes a raw query value. Values that are not a JSON
// descriptor object degrade to an equals match on the raw string.
func ParseDescriptor(raw string) Descriptor {
	var d Descriptor
	if err := json.Unmarshal([]byte(raw), &d); err == nil && d.Operator != "" {
		return d
	}
	return Descriptor{Operator: "equals", Value: raw}
}

// Compile translates descriptors into conditions. The result never includes
// any owner scoping; callers must add the owner predicate themselves.
// Conditions come back ordered by column so generated queries are stable.
func Compile(filters map[string]Descriptor) ([]Condition, []Rejected) {
	var conditions []Condition
	var rejected []Rejected

	for field, desc := range filters {
		spec, ok := fields[field]
		if !ok {
			rejected = append(rejected, Rejected{field, "unknown field"})
			continue
		}
		if desc.Operator == "" || desc.Value == nil {
			rejected = append(rejected, Rejected{field, "descriptor missing operator or value"})
			continue
		}

		var (
			cond Condition
			err  error
		)
		switch spec.typ {
		case fieldText:
			cond, err = compileText(spec.column, desc)
		case fieldEnum:
			cond, err = compileEnum(spec.column, desc)
		case fieldNumeric:
			cond, err = compileNumeric(spec.column, desc)
		case fieldDate:
			cond, err = compileDate(spec.column, desc)
		case fieldBool:
			cond, err = compileBool(spec.column, desc)
		}
		if err != nil {
			rejected = append(rejected, Rejected{field, err.Error()})
			continue
		}
		conditions = append(conditions, cond)
	}

	sort.Slice(conditions, func(i, j int) bool { return conditions[i].Column < conditions[j].Column })
	sort.Slice(rejected, func(i, j int) bool { return rejected[i].Field < rejected[j].Field })
	return conditions, rejected
}

func compileText(column string, desc Descriptor) (Condition, error) {
	s, ok := desc.Value.(string)
	if !ok {
		return Condition{}, fmt.Errorf("operator %q expects a string value", desc.Operator)
	}
	switch desc.Operator {
	case "equals":
		return Condition{column, KindEquals, []any{s}}, nil
	case "contains":
		return Condition{column, KindContains, []any{s}}, nil
	default:
		return Condition{}, fmt.Errorf("operator %q not supported for text fields", desc.Operator)
	}
}

func compileEnum(column string, desc Descriptor) (Condition, error) {
	switch desc.Operator {
	case "equals":
		s, ok := desc.Value.(string)
		if !ok {
			return Condition{}, fmt.Errorf("operator %q expects a string value", desc.Operator)
		}
		return Condition{column, KindEquals, []any{s}}, nil
	case "in":
		arr, ok := desc.Value.([]any)
		if !ok || len(arr) == 0 {
			return Condition{}, fmt.Errorf("operator %q expects a non-empty array value", desc.Operator)
		}
		args := make([]any, 0, len(arr))
		for _, v := range arr {
			s, ok := v.(string)
			if !ok {
				return Condition{}, fmt.Errorf("operator %q expects an array of strings", desc.Operator)
			}
			args = append(args, s)
		}
		return Condition{column, KindIn, args}, nil
	default:
		return Condition{}, fmt.Errorf("operator %q not supported for enum fields", desc.Operator)
	}
}

func compileNumeric(column string, desc Descriptor) (Condition, error) {
	switch desc.Operator {
	case "equals", "gt", "lt":
		n, err := toFloat(desc.Value)
		if err != nil {
			return Condition{}, err
		}
		kind := KindEquals
		switch desc.Operator {
		case "gt":
			kind = KindGreaterThan
		case "lt":
			kind = KindLessThan
		}
		return Condition{column, kind, []any{n}}, nil
	case "between":
		lo, hi, err := rangeBounds(desc.Value)
		if err != nil {
			return Condition{}, err
		}
		nlo, err := toFloat(lo)
		if err != nil {
			return Condition{}, err
		}
		nhi, err := toFloat(hi)
		if err != nil {
			return Condition{}, err
		}
		return Condition{column, KindRangeClosed, []any{nlo, nhi}}, nil
	default:
		return Condition{}, fmt.Errorf("operator %q not supported for numeric fields", desc.Operator)
	}
}

func compileDate(column string, desc Descriptor) (Condition, error) {
	switch desc.Operator {
	case "on":
		t, err := toTime(desc.Value)
		if err != nil {
			return Condition{}, err
		}
		start := t.UTC().Truncate(24 * time.Hour)
		return Condition{column, KindRangeHalfOpen, []any{start, start.Add(24 * time.Hour)}}, nil
	case "before", "after":
		t, err := toTime(desc.Value)
		if err != nil {
			return Condition{}, err
		}
		kind := KindLessThan
		if desc.Operator == "after" {
			kind = KindGreaterThan
		}
		return Condition{column, kind, []any{t}}, nil
	case "between":
		// Bounds are taken verbatim, no day-boundary normalization.
		lo, hi, err := rangeBounds(desc.Value)
		if err != nil {
			return Condition{}, err
		}
		tlo, err := toTime(lo)
		if err != nil {
			return Condition{}, err
		}
		thi, err := toTime(hi)
		if err != nil {
			return Condition{}, err
		}
		return Condition{column, KindRangeClosed, []any{tlo, thi}}, nil
	default:
		return Condition{}, fmt.Errorf("operator %q not supported for date fields", desc.Operator)
	}
}

func compileBool(column string, desc Descriptor) (Condition, error) {
	if desc.Operator != "equals" {
		return Condition{}, fmt.Errorf("operator %q not supported for boolean fields", desc.Operator)
	}
	switch v := desc.Value.(type) {
	case bool:
		return Condition{column, KindEquals, []any{v}}, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Condition{}, fmt.Errorf("value %q is not a boolean", v)
		}
		return Condition{column, KindEquals, []any{b}}, nil
	default:
		return Condition{}, fmt.Errorf("value is not a boolean")
	}
}

func rangeBounds(value any) (any, any, error) {
	arr, ok := value.([]any)
	if !ok || len(arr) != 2 {
		return nil, nil, fmt.Errorf("operator \"between\" expects a two-element array value")
	}
	return arr[0], arr[1], nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("value is not numeric")
	}
}

func toTime(value any) (time.Time, error) {
	s, ok := value.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("value is not a date string")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("value %q is not a recognized date", s)
}
