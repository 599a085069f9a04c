package services

import (
	"fmt"
	"strconv"
	"strings"

	"satguard/app/models"
)

type ValueKind int

const (
	KindNumber ValueKind = iota
	KindText
	KindBoolean
)

// Value is a closed tagged union over the three telemetry value shapes.
// Coercions are explicit and total except for numeric parsing, which is
// the one place raw telemetry text can be unusable.
type Value struct {
	Kind ValueKind
	Num  float64
	Text string
	Bool bool
}

// CoerceValue casts a raw telemetry string to the parameter's declared
// type. Unknown types default to text. Boolean coercion is total: any
// string other than "true" (case-insensitive) is false.
func CoerceValue(raw string, t models.ParamType) (Value, error) {
	switch t {
	case models.ParamNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Value{}, fmt.Errorf("value %q is not numeric", raw)
		}
		return Value{Kind: KindNumber, Num: n}, nil
	case models.ParamBoolean:
		return Value{Kind: KindBoolean, Bool: strings.EqualFold(strings.TrimSpace(raw), "true")}, nil
	default:
		return Value{Kind: KindText, Text: raw}, nil
	}
}

// Compare applies a judgment operator across two values of the same kind.
func Compare(actual, expected Value, op models.JudgeOperator) (bool, error) {
	if actual.Kind != expected.Kind {
		return false, fmt.Errorf("cannot compare values of different kinds")
	}
	switch actual.Kind {
	case KindNumber:
		return compareOrdered(actual.Num, expected.Num, op)
	case KindText:
		return compareOrdered(actual.Text, expected.Text, op)
	case KindBoolean:
		switch op {
		case models.OpEquals:
			return actual.Bool == expected.Bool, nil
		case models.OpNotEquals:
			return actual.Bool != expected.Bool, nil
		}
		return false, fmt.Errorf("operator %s not defined for booleans", op)
	}
	return false, fmt.Errorf("unknown value kind %d", actual.Kind)
}

func compareOrdered[T float64 | string](a, b T, op models.JudgeOperator) (bool, error) {
	switch op {
	case models.OpEquals:
		return a == b, nil
	case models.OpNotEquals:
		return a != b, nil
	case models.OpGreaterThan:
		return a > b, nil
	case models.OpLessThan:
		return a < b, nil
	case models.OpGreaterOrEqual:
		return a >= b, nil
	case models.OpLessOrEqual:
		return a <= b, nil
	}
	return false, fmt.Errorf("unknown operator %q", op)
}
