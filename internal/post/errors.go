package post

import "fmt"

// UnknownFieldError reports a field name that is not declared on a variant.
type UnknownFieldError struct {
	Variant string
	Field   string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("field %q does not exist on %s posts", e.Field, e.Variant)
}

// MissingFieldError reports a required field absent from a create payload.
type MissingFieldError struct {
	Variant string
	Field   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("field %q is required for %s posts", e.Field, e.Variant)
}

// TypeMismatchError reports a value whose type is incompatible with a field.
type TypeMismatchError struct {
	Field string
	Want  Kind
	Got   Kind
	Value string
}

func (e *TypeMismatchError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("field %q expects %s, got %s %q", e.Field, e.Want, e.Got, e.Value)
	}

	return fmt.Sprintf("cannot compare %s with %s %q", e.Want, e.Got, e.Value)
}

// InvalidConditionError reports an unsupported filter condition.
type InvalidConditionError struct {
	Condition string
}

func (e *InvalidConditionError) Error() string {
	return fmt.Sprintf("invalid filter condition %q (want one of eq, lt, lte, gt, gte)", e.Condition)
}
