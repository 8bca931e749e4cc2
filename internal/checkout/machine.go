package checkout

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	d "github.com/fjod/go_cart/cart-client/internal/domain"
)

// Machine tracks where a checkout is. It only moves along the transitions
// the domain allows.
type Machine struct {
	log logrus.FieldLogger

	mu     sync.Mutex
	status d.CheckoutStatus
}

func NewMachine(log logrus.FieldLogger) *Machine {
	return &Machine{log: log, status: d.CheckoutStatusIdle}
}

func (m *Machine) Status() d.CheckoutStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Begin moves Idle to ScriptLoading. Any other starting point means a
// checkout is already running.
func (m *Machine) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != d.CheckoutStatusIdle {
		return ErrCheckoutInProgress
	}
	m.setLocked(d.CheckoutStatusScriptLoading)
	return nil
}

func (m *Machine) Transition(to d.CheckoutStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !d.CanTransitionTo(m.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.status, to)
	}
	m.setLocked(to)
	return nil
}

// Settle returns a finished flow to Idle and reports the terminal status it
// ended in.
func (m *Machine) Settle() d.CheckoutStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	final := m.status
	if final.IsTerminal() {
		m.setLocked(d.CheckoutStatusIdle)
	}
	return final
}

func (m *Machine) setLocked(to d.CheckoutStatus) {
	m.log.WithFields(logrus.Fields{
		"from": m.status.String(),
		"to":   to.String(),
	}).Debug("checkout status changed")
	m.status = to
}
