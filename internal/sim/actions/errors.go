package actions

import (
	"errors"
	"fmt"
)

// ActionError is the validation failure reported for a rejected action. The
// world is never mutated when one is returned.
type ActionError uint8

const (
	OutOfBounds ActionError = iota + 1
	InsufficientFunds
	BlockedByWater
	BlockedByBuilding
	InvalidRoadGeometry
	ZoneNotAdjacentToRoad
	FeatureLocked
	DependencyMissing
	AlreadyExists
	NotSupported
	InternalError
	NotFound
	InvalidParameter
)

var errorNames = [...]string{
	"",
	"OutOfBounds",
	"InsufficientFunds",
	"BlockedByWater",
	"BlockedByBuilding",
	"InvalidRoadGeometry",
	"ZoneNotAdjacentToRoad",
	"FeatureLocked",
	"DependencyMissing",
	"AlreadyExists",
	"NotSupported",
	"InternalError",
	"NotFound",
	"InvalidParameter",
}

// AllErrors lists every kind in code order.
func AllErrors() []ActionError {
	out := make([]ActionError, 0, len(errorNames)-1)
	for i := 1; i < len(errorNames); i++ {
		out = append(out, ActionError(i))
	}
	return out
}

func (e ActionError) String() string {
	if e > 0 && int(e) < len(errorNames) {
		return errorNames[e]
	}
	return fmt.Sprintf("ActionError(%d)", uint8(e))
}

func (e ActionError) Error() string { return "action: " + e.String() }

func ParseError(s string) (ActionError, bool) {
	for i := 1; i < len(errorNames); i++ {
		if errorNames[i] == s {
			return ActionError(i), true
		}
	}
	return 0, false
}

// Code maps any error to its ActionError. Errors that carry none become
// InternalError; nil maps to 0.
func Code(err error) ActionError {
	if err == nil {
		return 0
	}
	var ae ActionError
	if errors.As(err, &ae) {
		return ae
	}
	return InternalError
}

// Fail wraps kind with detail while keeping errors.Is(err, kind) true.
func Fail(kind ActionError, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
