package instruction

import "strings"

// Type classifies a kitchen instruction line on a ticket item.
type Type struct {
	name string
}

func (t Type) Code() string {
	return t.name
}

func (t Type) Label() string {
	if len(t.name) == 0 {
		return ""
	}
	return strings.ToUpper(t.name[:1]) + t.name[1:]
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
	return "unknown instruction type: " + e.Code
}

type Enum struct {
	Warning  Type
	Addition Type
	Removal  Type
	Comment  Type
}

var Types = Enum{
	Warning:  Type{name: "warning"},
	Addition: Type{name: "addition"},
	Removal:  Type{name: "removal"},
	Comment:  Type{name: "comment"},
}

var All = []Type{
	Types.Warning,
	Types.Addition,
	Types.Removal,
	Types.Comment,
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
