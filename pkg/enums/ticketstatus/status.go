package ticketstatus

import "strings"

// Status is a closed ticket lifecycle status. Values are only constructible
// through the package vars, so a switch over Statuses covers every case.
type Status struct {
	name string
}

func (s Status) Code() string {
	return s.name
}

func (s Status) Label() string {
	parts := strings.Split(s.name, "-")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

// Terminal reports whether forward progress from this status is closed.
// Completed may still be reversed through the undo window.
func (s Status) Terminal() bool {
	return s == Statuses.Completed || s == Statuses.Canceled
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
	return "unknown ticket status: " + e.Code
}

type Enum struct {
	New       Status
	Preparing Status
	Ready     Status
	Hold      Status
	Canceled  Status
	Completed Status
}

var Statuses = Enum{
	New:       Status{name: "new"},
	Preparing: Status{name: "preparing"},
	Ready:     Status{name: "ready"},
	Hold:      Status{name: "hold"},
	Canceled:  Status{name: "canceled"},
	Completed: Status{name: "completed"},
}

var All = []Status{
	Statuses.New,
	Statuses.Preparing,
	Statuses.Ready,
	Statuses.Hold,
	Statuses.Canceled,
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

// Next returns the next macro step in the forward lifecycle. Hold, canceled
// and completed have no automatic next step and return the status unchanged.
func Next(s Status) Status {
	switch s {
	case Statuses.New:
		return Statuses.Preparing
	case Statuses.Preparing:
		return Statuses.Ready
	case Statuses.Ready:
		return Statuses.Completed
	default:
		return s
	}
}
