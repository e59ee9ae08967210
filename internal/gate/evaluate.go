package gate

// Evaluate maps inputs to a gate state. It is pure and total. A denied verdict
// yields AuthenticatedNoAccess; the Machine turns that into a redirect.
// Verdicts tagged with another principal count as loading.
func Evaluate(in Inputs) State {
	if in.Auth.IsLoading() {
		if in.AuthTimedOut {
			return StateUnavailable
		}
		return StateResolving
	}
	if in.Auth.IsSignedOut() {
		return StateUnauthenticated
	}

	principalID := in.Auth.PrincipalID()
	if !in.Access.IsResolved() || !in.Access.For(principalID) {
		return StateResolving
	}
	if in.Access.Granted() {
		return StateAuthenticatedGranted
	}
	return StateAuthenticatedNoAccess
}
