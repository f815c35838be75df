package session

import (
	"context"
	"sync"

	"go.uber.org/fx"
)

// ModalController shows and hides the login modal. Modal visibility belongs
// to the UI, not to the store.
type ModalController interface {
	OpenLoginModal()
	CloseLoginModal()
}

// Manager is the read-mostly facade handed to the chat UI and sidebar.
// Besides reading, the only things a collaborator can do are ask for the
// login modal and sign out.
type Manager struct {
	store    *Store
	hydrator *Hydrator
	logout   *LogoutCoordinator

	mu    sync.RWMutex
	modal ModalController
}

type ManagerParams struct {
	fx.In

	Store    *Store
	Hydrator *Hydrator
	Logout   *LogoutCoordinator
}

func NewManager(p ManagerParams) *Manager {
	return &Manager{
		store:    p.Store,
		hydrator: p.Hydrator,
		logout:   p.Logout,
	}
}

// User returns the current session, or nil.
func (m *Manager) User() *Session {
	return m.store.Read().Session
}

// IsLoading reports whether a session check is in flight.
func (m *Manager) IsLoading() bool {
	return m.store.Read().Loading == Pending
}

// Snapshot returns the current store state.
func (m *Manager) Snapshot() Snapshot {
	return m.store.Read()
}

// Subscribe forwards to the store.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	return m.store.Subscribe()
}

// Hydrate runs a session check. Call it once at startup and again only for
// explicit re-validation, such as after a sign-in redirect completes.
func (m *Manager) Hydrate(ctx context.Context) Snapshot {
	return m.hydrator.Hydrate(ctx)
}

// Logout signs out; see LogoutCoordinator.Logout.
func (m *Manager) Logout(ctx context.Context) bool {
	return m.logout.Logout(ctx)
}

// SetModalController attaches the UI that owns the login modal.
func (m *Manager) SetModalController(mc ModalController) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modal = mc
}

func (m *Manager) OpenLoginModal() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.modal != nil {
		m.modal.OpenLoginModal()
	}
}

func (m *Manager) CloseLoginModal() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.modal != nil {
		m.modal.CloseLoginModal()
	}
}
