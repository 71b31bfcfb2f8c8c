package guard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkrupp/fintrack/internal/app/guard"
	"github.com/mkrupp/fintrack/internal/domain"
)

//nolint:gochecknoglobals
var someone = &domain.User{ID: "u1", Email: "ana@example.com"}

func TestDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state guard.State
		kind  guard.Kind
		want  guard.Decision
	}{
		{"auth loading", guard.State{IsLoading: true}, guard.AuthenticatedOnly, guard.Decision{Outcome: guard.Pending}},
		{"auth loading with user", guard.State{User: someone, IsLoading: true}, guard.AuthenticatedOnly, guard.Decision{Outcome: guard.Pending}},
		{"auth guest", guard.State{}, guard.AuthenticatedOnly, guard.Decision{Outcome: guard.Deny, RedirectTo: "/login"}},
		{"auth user", guard.State{User: someone}, guard.AuthenticatedOnly, guard.Decision{Outcome: guard.Allow}},
		{"guest loading", guard.State{IsLoading: true}, guard.GuestOnly, guard.Decision{Outcome: guard.Pending}},
		{"guest guest", guard.State{}, guard.GuestOnly, guard.Decision{Outcome: guard.Allow}},
		{"guest user", guard.State{User: someone}, guard.GuestOnly, guard.Decision{Outcome: guard.Deny, RedirectTo: "/dashboard"}},
		{"public loading", guard.State{IsLoading: true}, guard.Public, guard.Decision{Outcome: guard.Allow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, guard.Decide(tt.state, tt.kind))
		})
	}
}

func TestGuard_Evaluate(t *testing.T) {
	t.Parallel()

	g := guard.New(guard.AuthenticatedOnly)
	assert.False(t, g.Decided())

	assert.Equal(t, guard.Pending, g.Evaluate(guard.State{IsLoading: true}).Outcome)
	assert.False(t, g.Decided())

	assert.Equal(t, guard.Allow, g.Evaluate(guard.State{User: someone}).Outcome)
	assert.True(t, g.Decided())

	// Signing out while on the page re-decides without going back to Pending.
	assert.Equal(t, guard.Decision{Outcome: guard.Deny, RedirectTo: guard.LoginPath}, g.Evaluate(guard.State{}))
	assert.Equal(t, guard.Deny, g.Evaluate(guard.State{IsLoading: true}).Outcome)
	assert.True(t, g.Decided())
}

func TestMountWithoutSession(t *testing.T) {
	t.Parallel()

	auth, guest := guard.New(guard.AuthenticatedOnly), guard.New(guard.GuestOnly)
	loading, resolved := guard.State{IsLoading: true}, guard.State{}

	assert.Equal(t, guard.Pending, auth.Evaluate(loading).Outcome)
	assert.Equal(t, guard.Pending, guest.Evaluate(loading).Outcome)

	assert.Equal(t, guard.Decision{Outcome: guard.Deny, RedirectTo: guard.LoginPath}, auth.Evaluate(resolved))
	assert.Equal(t, guard.Decision{Outcome: guard.Allow}, guest.Evaluate(resolved))
	assert.True(t, auth.Decided())
	assert.True(t, guest.Decided())
}
