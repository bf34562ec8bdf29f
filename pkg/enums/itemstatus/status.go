package itemstatus

import "strings"

// Status is a closed item lifecycle status. Item progress is strictly
// linear: pending, preparing, ready, completed.
type Status struct {
	name string
}

func (s Status) Code() string {
	return s.name
}

func (s Status) Label() string {
	if len(s.name) == 0 {
		return ""
	}
	return strings.ToUpper(s.name[:1]) + s.name[1:]
}

func (s Status) IsZero() bool {
	return s.name == ""
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.name), nil
}

func (s *Status) UnmarshalText(data []byte) error {
	found := ByCode(string(data))
	if found == nil {
		return &UnknownStatusError{Code: string(data)}
	}
	*s = *found
	return nil
}

type UnknownStatusError struct {
	Code string
}

func (e *UnknownStatusError) Error() string {
	return "unknown item status: " + e.Code
}

type Enum struct {
	Pending   Status
	Preparing Status
	Ready     Status
	Completed Status
}

var Statuses = Enum{
	Pending:   Status{name: "pending"},
	Preparing: Status{name: "preparing"},
	Ready:     Status{name: "ready"},
	Completed: Status{name: "completed"},
}

var All = []Status{
	Statuses.Pending,
	Statuses.Preparing,
	Statuses.Ready,
	Statuses.Completed,
}

// ByCode returns the status for a given code, or nil if not found.
func ByCode(code string) *Status {
	for _, s := range All {
		if s.name == code {
			return &s
		}
	}
	return nil
}

// Next returns the next step in the linear item lifecycle. Completed is
// terminal and returns itself.
func Next(s Status) Status {
	switch s {
	case Statuses.Pending:
		return Statuses.Preparing
	case Statuses.Preparing:
		return Statuses.Ready
	case Statuses.Ready:
		return Statuses.Completed
	default:
		return s
	}
}

// AtLeast reports whether s has reached or passed target in the linear
// lifecycle order.
func AtLeast(s, target Status) bool {
	return rank(s) >= rank(target)
}

func rank(s Status) int {
	switch s {
	case Statuses.Pending:
		return 0
	case Statuses.Preparing:
		return 1
	case Statuses.Ready:
		return 2
	case Statuses.Completed:
		return 3
	default:
		return -1
	}
}
