package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSession struct {
	checked, authed, admin bool
}

func (f fakeSession) Checked() bool       { return f.checked }
func (f fakeSession) Authenticated() bool { return f.authed }
func (f fakeSession) Admin() bool         { return f.admin }

type fakeQueue int

func (f fakeQueue) Count() int { return int(f) }

var (
	_ SessionView = fakeSession{}
	_ QueueView   = fakeQueue(0)
	_ Navigator   = (*History)(nil)
)

var (
	guest   = fakeSession{checked: true}
	user    = fakeSession{checked: true, authed: true}
	admin   = fakeSession{checked: true, authed: true, admin: true}
	pending = fakeSession{authed: true}
)

func TestResolve(t *testing.T) {
	t.Parallel()
	r := New(nil, nil, nil)

	tests := []struct {
		name string
		path string
		s    SessionView
		q    QueueView
		want string
	}{
		{"guest protected", Orders, guest, nil, Login},
		{"guest register", Register, guest, nil, Register},
		{"user on login", Login, user, nil, Home},
		{"user protected", Profile, user, nil, Profile},
		{"non-admin gate", AdminOrders, user, nil, Home},
		{"guest admin", AdminOrders, guest, nil, Login},
		{"admin allowed", AdminOrders, admin, nil, AdminOrders},
		{"admin flashcards", AdminFlashcards, admin, nil, AdminFlashcards},
		{"empty checkout", Checkout, user, fakeQueue(0), Home},
		{"nil queue checkout", Checkout, user, nil, Home},
		{"filled checkout", Checkout, user, fakeQueue(2), Checkout},
		{"guest checkout", Checkout, guest, fakeQueue(2), Login},
		{"legacy cards", "/cards", user, nil, Flashcards},
		{"legacy basket", "/basket", user, nil, Cart},
		{"root authed", "/", user, nil, Home},
		{"root guest", "/", guest, nil, Login},
		{"unknown", "/nope", user, nil, Home},
		{"trailing slash and query", "/orders/?page=2", user, nil, Orders},
		{"before first check", Home, pending, nil, Login},
		{"nil session", Home, nil, nil, Login},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, r.Resolve(tt.path, tt.s, tt.q).Path)
		})
	}
}

func TestResolve_Redirected(t *testing.T) {
	t.Parallel()
	r := New(nil, nil, nil)

	d := r.Resolve(Profile, user, nil)
	assert.False(t, d.Redirected)
	assert.Equal(t, Protected, d.Route.Access)

	d = r.Resolve(AdminOrders, user, nil)
	assert.True(t, d.Redirected)
	assert.Equal(t, AdminOrders, d.Requested)
}

func TestNavigate_RecordsHistory(t *testing.T) {
	t.Parallel()
	h := &History{}
	var seen []string
	h.OnChange(func(p string) { seen = append(seen, p) })
	r := New(nil, h, nil)

	assert.Equal(t, "", h.Current())
	r.Navigate(context.Background(), AdminOrders, user, nil)
	r.Navigate(context.Background(), Cart, user, nil)
	assert.Equal(t, Cart, h.Current())
	assert.Equal(t, []string{Home, Cart}, h.Paths())
	assert.Equal(t, []string{Home, Cart}, seen)
	assert.Same(t, h, r.Navigator())
}
