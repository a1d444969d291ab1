package policy

import "strconv"

// Level is an ordered authentication level.
type Level uint8

const (
	LevelAnonymous Level = iota
	LevelGuest
	LevelLoggedIn
)

func (l Level) String() string {
	switch l {
	case LevelAnonymous:
		return "anonymous"
	case LevelGuest:
		return "guest"
	case LevelLoggedIn:
		return "logged_in"
	default:
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
}

// AtLeast reports whether l satisfies required.
func (l Level) AtLeast(required Level) bool {
	return l >= required
}

// Availability is either Pending or a known Level. The zero value is Pending.
type Availability struct {
	level Level
	known bool
}

// Pending returns an availability with no level.
func Pending() Availability {
	return Availability{}
}

// Available returns an availability at level l.
func Available(l Level) Availability {
	return Availability{level: l, known: true}
}

// Level returns the level and whether it is known.
func (a Availability) Level() (Level, bool) {
	return a.level, a.known
}

// IsPending reports whether no level is known yet.
func (a Availability) IsPending() bool {
	return !a.known
}

// Satisfies reports whether a known level meets required. Pending never does.
func (a Availability) Satisfies(required Level) bool {
	return a.known && a.level.AtLeast(required)
}

func (a Availability) String() string {
	if !a.known {
		return "pending"
	}
	return a.level.String()
}
