package gate

import (
	"testing"

	"github.com/smallbiznis/streamgate/internal/access"
	billingdomain "github.com/smallbiznis/streamgate/internal/billing/domain"
	identitydomain "github.com/smallbiznis/streamgate/internal/identity/domain"
)

var (
	granted = billingdomain.EffectiveAccess{Granted: true}
	denied  = billingdomain.EffectiveAccess{}
)

func signedIn(id string) identitydomain.AuthPhase {
	return identitydomain.Resolved(&identitydomain.Principal{ID: id})
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name string
		in   Inputs
		want State
	}{
		{name: "auth_loading", in: Inputs{Auth: identitydomain.Loading(), Access: access.Idle()}, want: StateResolving},
		{name: "auth_timed_out", in: Inputs{Auth: identitydomain.Loading(), AuthTimedOut: true}, want: StateUnavailable},
		{name: "signed_out", in: Inputs{Auth: identitydomain.Resolved(nil), Access: access.Resolved("a", granted)}, want: StateUnauthenticated},
		{name: "access_idle", in: Inputs{Auth: signedIn("a"), Access: access.Idle()}, want: StateResolving},
		{name: "access_loading", in: Inputs{Auth: signedIn("a"), Access: access.Loading("a")}, want: StateResolving},
		{name: "granted", in: Inputs{Auth: signedIn("a"), Access: access.Resolved("a", granted)}, want: StateAuthenticatedGranted},
		{name: "denied", in: Inputs{Auth: signedIn("a"), Access: access.Resolved("a", denied)}, want: StateAuthenticatedNoAccess},
		{name: "verdict_for_other_principal", in: Inputs{Auth: signedIn("b"), Access: access.Resolved("a", granted)}, want: StateResolving},
		{name: "timeout_flag_ignored_once_resolved", in: Inputs{Auth: signedIn("a"), Access: access.Resolved("a", granted), AuthTimedOut: true}, want: StateAuthenticatedGranted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Evaluate(tc.in); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestMachineRedirectsOnce(t *testing.T) {
	m := NewMachine()
	in := Inputs{Auth: signedIn("a"), Access: access.Resolved("a", denied)}

	state, effects := m.Step(in)
	if state != StateAuthenticatedRedirecting {
		t.Fatalf("expected redirecting, got %s", state)
	}
	if len(effects) != 1 || effects[0].Navigate != TargetPlanSelection {
		t.Fatalf("expected one plan navigation, got %+v", effects)
	}

	state, effects = m.Step(in)
	if state != StateAuthenticatedRedirecting || len(effects) != 0 {
		t.Fatalf("expected no further navigation, got %s %+v", state, effects)
	}
}

func TestMachineGrantedOnlyForLatestPrincipal(t *testing.T) {
	m := NewMachine()
	state, _ := m.Step(Inputs{Auth: signedIn("a"), Access: access.Resolved("a", granted)})
	if state != StateAuthenticatedGranted {
		t.Fatalf("expected granted, got %s", state)
	}
	state, effects := m.Step(Inputs{Auth: signedIn("b"), Access: access.Resolved("a", granted)})
	if state != StateResolving || len(effects) != 0 {
		t.Fatalf("expected resolving for new principal, got %s", state)
	}
}
