package driver

import "github.com/teslashibe/go-face/pkg/blendshape"

// Listener receives a full channel vector whenever a driver recomputes.
type Listener func(blendshape.Vector)

// Notifier is an ordered list of listeners.
type Notifier struct {
	listeners []Listener
	emitted   uint64
}

// OnChange subscribes l.
func (n *Notifier) OnChange(l Listener) {
	if l != nil {
		n.listeners = append(n.listeners, l)
	}
}

// Emit hands each listener its own copy of v.
func (n *Notifier) Emit(v blendshape.Vector) {
	n.emitted++
	for _, l := range n.listeners {
		l(v.Clone())
	}
}

// Emitted returns how many vectors have been emitted.
func (n *Notifier) Emitted() uint64 { return n.emitted }
