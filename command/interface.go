package command

// Rule binds a trigger phrase to an action.
type Rule struct {
	Phrase string
	Action Action
}

// Executor accepts actions for execution elsewhere. Submit never blocks and
// reports whether the action was accepted.
type Executor interface {
	Submit(source string, a Action) bool
}

type Interface interface {
	// Match returns the first rule, in grammar order, whose phrase occurs in
	// text.
	Match(text string) (Rule, bool)
	// Dispatch submits the matched rule's action once. No match does nothing.
	Dispatch(text string) bool
	Phrases() []string
}

const (
	SourceVoice   = "voice"
	SourceDial    = "dial"
	SourceStartup = "startup"
)
