package events

import "sync"

// Handler consumes session events
type Handler func(SessionEvent)

// Dispatcher delivers session events synchronously to registered
// subscribers, in registration order. Delivery happens on the publishing
// goroutine; handlers must not block.
type Dispatcher struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
	order    []int
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[int]Handler)}
}

// Subscribe registers a handler and returns an unsubscribe function
func (d *Dispatcher) Subscribe(h Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.handlers[id] = h
	d.order = append(d.order, id)

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.handlers, id)
	}
}

// Publish delivers an event to all current subscribers
func (d *Dispatcher) Publish(event SessionEvent) {
	d.mu.RLock()
	handlers := make([]Handler, 0, len(d.order))
	for _, id := range d.order {
		if h, ok := d.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	d.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
