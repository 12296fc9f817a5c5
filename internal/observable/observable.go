package observable

import "sync"

// Watchable is anything that can report changes without exposing its value type.
type Watchable interface {
	Watch(fn func()) (cancel func())
}

// Variable is a mutable, observable slot. Every Set stores the value and then
// notifies subscribers in registration order; writes are delivered in the order
// they were stored. Subscribers must not call Set on the same Variable.
type Variable[T any] struct {
	writeMu sync.Mutex // serializes store+notify so subscribers see writes in order

	mu     sync.RWMutex
	value  T
	nextID int
	subs   map[int]func(T)
	order  []int
}

// NewVariable returns a Variable holding initial.
func NewVariable[T any](initial T) *Variable[T] {
	return &Variable[T]{
		value: initial,
		subs:  make(map[int]func(T)),
	}
}

// Get returns the current value.
func (v *Variable[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set stores x and notifies every subscriber with it.
func (v *Variable[T]) Set(x T) {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	v.store(x)
}

// store must be called with writeMu held.
func (v *Variable[T]) store(x T) {
	v.mu.Lock()
	v.value = x
	subs := v.snapshotLocked()
	v.mu.Unlock()

	for _, fn := range subs {
		fn(x)
	}
}

// Subscribe registers fn to be called with each new value. It does not fire for
// the current value. The returned func unregisters fn and is safe to call twice.
func (v *Variable[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	v.order = append(v.order, id)
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			delete(v.subs, id)
			for i, o := range v.order {
				if o == id {
					v.order = append(v.order[:i], v.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Watch implements Watchable.
func (v *Variable[T]) Watch(fn func()) (cancel func()) {
	return v.Subscribe(func(T) { fn() })
}

// Subscribers returns the number of registered subscribers.
func (v *Variable[T]) Subscribers() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.subs)
}

func (v *Variable[T]) snapshotLocked() []func(T) {
	out := make([]func(T), 0, len(v.order))
	for _, id := range v.order {
		out = append(out, v.subs[id])
	}
	return out
}

// Update sets x only when it differs from the current value. Returns true when
// a write (and notification) happened.
func Update[T comparable](v *Variable[T], x T) bool {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	v.mu.RLock()
	same := v.value == x
	v.mu.RUnlock()
	if same {
		return false
	}
	v.store(x)
	return true
}

// Merge calls fn once immediately and again whenever any dep changes. Calls to
// fn never run concurrently. The returned cancel stops all watches.
func Merge(fn func(), deps ...Watchable) (cancel func()) {
	var mu sync.Mutex
	call := func() {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}

	cancels := make([]func(), 0, len(deps))
	for _, d := range deps {
		cancels = append(cancels, d.Watch(call))
	}
	call()

	return func() {
		for _, c := range cancels {
			c()
		}
	}
}
