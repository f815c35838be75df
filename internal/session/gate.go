package session

// GuardState is what a protected view may show.
type GuardState int

const (
	Checking GuardState = iota
	Unauthenticated
	Authenticated
)

func (s GuardState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return "checking"
	}
}

// StateOf maps a snapshot to a guard state. A Pending snapshot is always
// Checking, whatever session it carries.
func StateOf(s Snapshot) GuardState {
	switch {
	case s.Loading == Pending:
		return Checking
	case s.Session == nil:
		return Unauthenticated
	default:
		return Authenticated
	}
}

// Gate tracks the guard state across observations. It has no state of its
// own beyond the last observation, which it needs to fire the login prompt
// once per entry into Unauthenticated.
type Gate struct {
	state GuardState
}

// NewGate starts in Checking.
func NewGate() *Gate {
	return &Gate{state: Checking}
}

// Observe feeds the latest snapshot. openLogin is true only on the
// observation that moves the gate into Unauthenticated.
func (g *Gate) Observe(s Snapshot) (state GuardState, openLogin bool) {
	next := StateOf(s)
	openLogin = next == Unauthenticated && g.state != Unauthenticated
	g.state = next
	return next, openLogin
}

// State returns the last observed state.
func (g *Gate) State() GuardState {
	return g.state
}
