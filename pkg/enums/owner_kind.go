package enums

import "fmt"

// OwnerKind identifies which identifier scopes a cart.
type OwnerKind string

const (
	OwnerKindUser    OwnerKind = "user"
	OwnerKindSession OwnerKind = "session"
)

var validOwnerKinds = []OwnerKind{
	OwnerKindUser,
	OwnerKindSession,
}

// String implements fmt.Stringer.
func (k OwnerKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known OwnerKind.
func (k OwnerKind) IsValid() bool {
	for _, candidate := range validOwnerKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseOwnerKind converts raw input into an OwnerKind.
func ParseOwnerKind(value string) (OwnerKind, error) {
	for _, candidate := range validOwnerKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid owner kind %q", value)
}
