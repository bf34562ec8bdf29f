package ordertype

import "strings"

// Type is a closed order channel type.
type Type struct {
	name string
}

func (t Type) Code() string {
	return t.name
}

func (t Type) Label() string {
	parts := strings.Split(t.name, "-")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

func (t Type) IsZero() bool {
	return t.name == ""
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.name), nil
}

func (t *Type) UnmarshalText(data []byte) error {
	found := ByCode(string(data))
	if found == nil {
		return &UnknownTypeError{Code: string(data)}
	}
	*t = *found
	return nil
}

type UnknownTypeError struct {
	Code string
}

func (e *UnknownTypeError) Error() string {
	return "unknown order type: " + e.Code
}

type Enum struct {
	DineIn   Type
	Delivery Type
	Pickup   Type
}

var Types = Enum{
	DineIn:   Type{name: "dine-in"},
	Delivery: Type{name: "delivery"},
	Pickup:   Type{name: "pickup"},
}

var All = []Type{
	Types.DineIn,
	Types.Delivery,
	Types.Pickup,
}

// ByCode returns the type for a given code, or nil if not found.
func ByCode(code string) *Type {
	for _, t := range All {
		if t.name == code {
			return &t
		}
	}
	return nil
}
