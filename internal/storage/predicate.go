package storage

import "strings"

// PredOp enumerates the predicate forms the backend can evaluate.
// Keeping this a closed set (rather than free-form filters) is what lets
// the operation registry stay auditable and the backend swappable.
type PredOp uint8

const (
	// OpEq matches field == value.
	OpEq PredOp = iota
	// OpEqFold matches field == value, case-insensitively.
	OpEqFold
	// OpIn matches when the field value is a member of the set.
	OpIn
	// OpNotIn matches when the field value is not a member of the set.
	OpNotIn
	// OpGte / OpLte compare numerically.
	OpGte
	OpLte
)

// Predicate is one field condition. Values are compared after numeric
// normalization so int64 and float64 forms of the same ID are equal.
type Predicate struct {
	Field string
	Op    PredOp
	Value any
}

func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

func EqFold(field string, value string) Predicate {
	return Predicate{Field: field, Op: OpEqFold, Value: value}
}

func In(field string, values []any) Predicate {
	return Predicate{Field: field, Op: OpIn, Value: values}
}

func NotIn(field string, values []any) Predicate {
	return Predicate{Field: field, Op: OpNotIn, Value: values}
}

func Gte(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpGte, Value: value}
}

func Lte(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpLte, Value: value}
}

// Matches reports whether a document satisfies the predicate.
func (p Predicate) Matches(doc Object) bool {
	got, ok := doc[p.Field]
	if !ok {
		return p.Op == OpNotIn
	}

	switch p.Op {
	case OpEq:
		return equalValues(got, p.Value)
	case OpEqFold:
		s1, ok1 := got.(string)
		s2, ok2 := p.Value.(string)
		return ok1 && ok2 && strings.EqualFold(s1, s2)
	case OpIn:
		return memberOf(got, p.Value)
	case OpNotIn:
		return !memberOf(got, p.Value)
	case OpGte:
		a, ok1 := asNumber(got)
		b, ok2 := asNumber(p.Value)
		return ok1 && ok2 && a >= b
	case OpLte:
		a, ok1 := asNumber(got)
		b, ok2 := asNumber(p.Value)
		return ok1 && ok2 && a <= b
	default:
		return false
	}
}

// MatchesAll reports whether a document satisfies every predicate.
func MatchesAll(doc Object, preds []Predicate) bool {
	for _, p := range preds {
		if !p.Matches(doc) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if fa, ok := asNumber(a); ok {
		fb, ok2 := asNumber(b)
		return ok2 && fa == fb
	}
	sa, ok1 := a.(string)
	sb, ok2 := b.(string)
	if ok1 && ok2 {
		return sa == sb
	}
	ba, ok1 := a.(bool)
	bb, ok2 := b.(bool)
	if ok1 && ok2 {
		return ba == bb
	}
	return false
}

func memberOf(v, set any) bool {
	members, ok := set.([]any)
	if !ok {
		return false
	}
	for _, m := range members {
		if equalValues(v, m) {
			return true
		}
	}
	return false
}
