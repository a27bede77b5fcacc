package subscription

import "fmt"

// Event names a lifecycle transition trigger.
type Event string

const (
	EventActivateTrial Event = "activate_trial"
	EventSelectPlan    Event = "select_plan"
	EventUpgrade       Event = "upgrade"
	EventDowngrade     Event = "downgrade"
	EventRenew         Event = "renew"
	EventExpire        Event = "expire"
	EventCancel        Event = "cancel"
)

// transitions is the legality table: which events may fire from which state.
// StatusCancelled admits select_plan so a tenant whose cancellation has run
// out can come back; every other move out of cancelled stays illegal.
var transitions = map[Status]map[Event]struct{}{
	StatusNone: {
		EventActivateTrial: {},
		EventSelectPlan:    {},
	},
	StatusTrialing: {
		EventUpgrade: {},
		EventCancel:  {},
		EventExpire:  {},
	},
	StatusActive: {
		EventUpgrade:   {},
		EventDowngrade: {},
		EventRenew:     {},
		EventCancel:    {},
		EventExpire:    {},
	},
	StatusExpired: {
		EventSelectPlan: {},
		EventRenew:      {},
	},
	StatusCancelled: {
		EventSelectPlan: {},
	},
}

// TransitionError reports an illegal lifecycle move, naming the current
// state and the attempted event.
type TransitionError struct {
	From  Status
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot %s from state %s", e.Event, e.From)
}

// Is makes errors.Is(err, ErrInvalidTransition) match all transition errors.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// canFire returns nil when the event is legal from the given state.
func canFire(from Status, event Event) error {
	if events, ok := transitions[from]; ok {
		if _, ok := events[event]; ok {
			return nil
		}
	}
	return &TransitionError{From: from, Event: event}
}
