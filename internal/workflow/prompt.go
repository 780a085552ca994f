package workflow

// Choice is one tappable option offered with a prompt. Action is what the
// transport should feed back into the engine when the user picks it.
type Choice struct {
	Text   string
	Action Action
}

// Prompt is the outbound side of one workflow step: the text to show the
// user and the choices to render as buttons. The transport layer owns the
// actual message formatting and keyboards.
type Prompt struct {
	Text    string
	Choices []Choice
}

// Role is the externally asserted role of the event's sender. The engine
// trusts it; authentication lives outside the core.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// User identifies the sender of one inbound event.
type User struct {
	ID   int64
	Role Role
}

// Notifier pushes a message to a user outside the current interaction, e.g.
// telling a student a test was assigned. Implementations live in the
// transport layer.
type Notifier interface {
	Notify(userID int64, prompt Prompt) error
}
