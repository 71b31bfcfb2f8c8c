// Package guard decides whether a route renders for the current session state.
package guard

import (
	"sync"

	"github.com/mkrupp/fintrack/internal/domain"
)

// Redirect destinations.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// State is what a guard decides on: the current user, and whether the
// initial session fetch is still outstanding.
type State struct {
	User      *domain.User
	IsLoading bool
}

// Kind selects who may see a route.
type Kind int

const (
	// Public routes render for everyone.
	Public Kind = iota
	// AuthenticatedOnly routes send guests to the login page.
	AuthenticatedOnly
	// GuestOnly routes send signed in users to the dashboard.
	GuestOnly
)

func (k Kind) String() string {
	switch k {
	case AuthenticatedOnly:
		return "authenticated-only"
	case GuestOnly:
		return "guest-only"
	default:
		return "public"
	}
}

// Outcome is the verdict of a guard.
type Outcome int

const (
	// Pending means no decision can be made yet; show a loading indicator.
	Pending Outcome = iota
	// Allow renders the route.
	Allow
	// Deny redirects to Decision.RedirectTo.
	Deny
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "pending"
	}
}

// Decision is the outcome of a guard together with the redirect target of a Deny.
type Decision struct {
	Outcome    Outcome
	RedirectTo string
}

// Decide returns the decision of a guard of the given kind. While the session is
// loading every guarded route is Pending; nothing redirects before the initial
// session fetch has resolved.
func Decide(state State, kind Kind) Decision {
	if kind == Public {
		return Decision{Outcome: Allow}
	}

	if state.IsLoading {
		return Decision{Outcome: Pending}
	}

	switch {
	case kind == AuthenticatedOnly && state.User == nil:
		return Decision{Outcome: Deny, RedirectTo: LoginPath}
	case kind == GuestOnly && state.User != nil:
		return Decision{Outcome: Deny, RedirectTo: DashboardPath}
	default:
		return Decision{Outcome: Allow}
	}
}

// Guard is the guard of one mounted route. It leaves Pending once, when the
// session has loaded, and from then on re-decides on every state it is given.
type Guard struct {
	kind Kind

	mu      sync.Mutex
	decided bool
}

func New(kind Kind) *Guard {
	return &Guard{kind: kind}
}

func (g *Guard) Kind() Kind {
	return g.kind
}

// Evaluate decides for state. Once decided, a guard never returns Pending again,
// even if handed a loading state.
func (g *Guard) Evaluate(state State) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.decided {
		state.IsLoading = false
	}

	decision := Decide(state, g.kind)
	if decision.Outcome != Pending {
		g.decided = true
	}

	return decision
}

// Decided reports whether the guard has left Pending.
func (g *Guard) Decided() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.decided
}
