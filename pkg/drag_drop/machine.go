package drag_drop

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

type State string

const (
	Idle     State = "idle"
	Dragging State = "dragging"
	Hovering State = "hovering"
)

var ErrNotDragging = fmt.Errorf("no drag in progress")

// Machine follows one drag gesture: Idle -> Dragging -> Hovering -> Idle.
// The resolver runs once, when the gesture ends with a drop.
type Machine struct {
	state   State
	dragged Dragged
	target  *DropTarget
}

func NewMachine() *Machine {
	return &Machine{state: Idle}
}

func (m *Machine) State() State {
	return m.state
}

// Dragged returns the item being dragged, if any.
func (m *Machine) Dragged() (Dragged, bool) {
	if m.state == Idle {
		return Dragged{}, false
	}
	return m.dragged, true
}

// Target returns the hovered cell while Hovering.
func (m *Machine) Target() (DropTarget, bool) {
	if m.state != Hovering || m.target == nil {
		return DropTarget{}, false
	}
	return *m.target, true
}

// Start begins a drag. Starting while another drag is active replaces it.
func (m *Machine) Start(item Dragged) {
	if m.state != Idle {
		log.Debugf("drag of %s replaced by %s", m.dragged.Key, item.Key)
	}
	m.state = Dragging
	m.dragged = item
	m.target = nil
}

// Hover records the cell under the pointer.
func (m *Machine) Hover(target DropTarget) error {
	if m.state == Idle {
		return ErrNotDragging
	}
	m.state = Hovering
	m.target = &target
	return nil
}

// Leave is called when the pointer leaves a cell without dropping.
func (m *Machine) Leave() {
	if m.state == Hovering {
		m.state = Dragging
		m.target = nil
	}
}

func (m *Machine) Cancel() {
	m.reset()
}

// Drop ends the gesture on target and returns the resolved intent. Without an
// active drag it does nothing and reports ok=false.
func (m *Machine) Drop(target DropTarget) (Intent, bool) {
	if m.state == Idle {
		log.Debug("drop without an active drag ignored")
		return Intent{}, false
	}
	intent := Resolve(m.dragged, target)
	m.reset()
	return intent, true
}

func (m *Machine) reset() {
	m.state = Idle
	m.dragged = Dragged{}
	m.target = nil
}
