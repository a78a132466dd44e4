package post

// Condition is a filter comparison.
type Condition string

const (
	CondEq  Condition = "eq"
	CondLt  Condition = "lt"
	CondLte Condition = "lte"
	CondGt  Condition = "gt"
	CondGte Condition = "gte"
)

// ParseCondition validates a condition name.
func ParseCondition(name string) (Condition, error) {
	switch c := Condition(name); c {
	case CondEq, CondLt, CondLte, CondGt, CondGte:
		return c, nil
	default:
		return "", &InvalidConditionError{Condition: name}
	}
}

// Match reports whether field value a satisfies the condition against b.
func (c Condition) Match(a, b Value) (bool, error) {
	order, err := Compare(a, b)
	if err != nil {
		return false, err
	}

	switch c {
	case CondEq:
		return order == 0, nil
	case CondLt:
		return order < 0, nil
	case CondLte:
		return order <= 0, nil
	case CondGt:
		return order > 0, nil
	case CondGte:
		return order >= 0, nil
	default:
		return false, &InvalidConditionError{Condition: string(c)}
	}
}
