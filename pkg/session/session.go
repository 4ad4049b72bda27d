package session

// Status is the authentication state of the client session.
type Status int

const (
	// StatusLoading is the initial state, held until the first
	// session-restore check resolves.
	StatusLoading Status = iota

	// StatusAnonymous means no authenticated user.
	StatusAnonymous

	// StatusAuthenticated means a user profile is present.
	StatusAuthenticated
)

// String returns the status name for logs and errors.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// User is the authenticated user profile as returned by the API.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Op identifies the asynchronous operation driving a transition.
type Op int

const (
	OpLoadUser Op = iota
	OpLogin
	OpRegister
	OpLogout
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpLoadUser:
		return "load_user"
	case OpLogin:
		return "login"
	case OpRegister:
		return "register"
	case OpLogout:
		return "logout"
	default:
		return "unknown"
	}
}

// Phase is the lifecycle stage of an operation.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseSuccess
	PhaseFailure
)

// Event is one (operation, phase) pair applied to the store. The event
// space is closed: transitions are matched exhaustively on Op and Phase,
// never dispatched by string.
type Event struct {
	Op    Op
	Phase Phase

	// User accompanies PhaseSuccess of load/login/register.
	User *User

	// Err accompanies PhaseFailure and is the server-supplied message
	// captured for inline form rendering.
	Err string
}

// Started builds a PhaseStart event for op.
func Started(op Op) Event {
	return Event{Op: op, Phase: PhaseStart}
}

// Succeeded builds a PhaseSuccess event carrying the resolved user.
// Pass nil for OpLogout.
func Succeeded(op Op, user *User) Event {
	return Event{Op: op, Phase: PhaseSuccess, User: user}
}

// Failed builds a PhaseFailure event carrying the server message.
func Failed(op Op, message string) Event {
	return Event{Op: op, Phase: PhaseFailure, Err: message}
}
