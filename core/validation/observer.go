package validation

// Outcome is what happened to one checked argument.
type Outcome string

const (
	OutcomeConformed Outcome = "conformed"
	OutcomeCoerced   Outcome = "coerced"
	OutcomeRejected  Outcome = "rejected"
)

// Event describes one checked argument.
type Event struct {
	Func     string
	Param    string
	Expected string
	Outcome  Outcome
}

// Observer receives an Event for every annotated argument the validator
// checks. Observers run synchronously on the calling goroutine.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(ev).
func (f ObserverFunc) Observe(ev Event) { f(ev) }
