package gate

// Machine holds the current gate state and derives navigation effects from
// transitions. It is not safe for concurrent use; the runner owns it.
type Machine struct {
	state State
}

func NewMachine() *Machine {
	return &Machine{state: StateResolving}
}

func (m *Machine) State() State {
	return m.state
}

// Step applies inputs and returns the new state with the effects of entering
// it. Entering Redirecting emits one plan-selection navigation; staying there
// emits nothing.
func (m *Machine) Step(in Inputs) (State, []Effect) {
	next := Evaluate(in)
	var effects []Effect
	if next == StateAuthenticatedNoAccess {
		if m.state != StateAuthenticatedRedirecting {
			effects = append(effects, Effect{Navigate: TargetPlanSelection})
		}
		next = StateAuthenticatedRedirecting
	}
	m.state = next
	return next, effects
}
