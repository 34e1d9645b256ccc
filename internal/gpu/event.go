package gpu

// Event signals completion of a submitted command. The zero value is a null
// event; a non-null Event holds one runtime reference which Release drops.
//
// A *Event passed as the enew argument of an enqueue function is an output
// slot: on success it receives the command's completion event.
type Event struct {
	rt Runtime
	id uintptr
}

// IsNull reports whether e refers to no event.
func (e Event) IsNull() bool { return e.id == 0 }

// ID returns the runtime-native event id.
func (e Event) ID() uintptr { return e.id }

// Wait blocks until the event's command completes and returns its error.
func (e Event) Wait() error {
	if e.IsNull() {
		return nil
	}
	return e.rt.WaitForEvents([]uintptr{e.id})
}

// IsComplete reports whether the event's command has finished.
func (e Event) IsComplete() (bool, error) {
	if e.IsNull() {
		return true, nil
	}
	return e.rt.EventComplete(e.id)
}

// Clone returns a second reference to the same event.
func (e Event) Clone() (Event, error) {
	if e.IsNull() {
		return e, nil
	}
	if err := e.rt.RetainEvent(e.id); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Release drops this reference and resets e to the null event.
func (e *Event) Release() error {
	if e.IsNull() {
		return nil
	}
	err := e.rt.ReleaseEvent(e.id)
	*e = Event{}
	return err
}

// WaitEvents implements WaitList.
func (e Event) WaitEvents() []Event {
	if e.IsNull() {
		return nil
	}
	return []Event{e}
}

// WaitList is a set of events a command must wait on.
type WaitList interface {
	WaitEvents() []Event
}

// EventList is an ordered list of events.
type EventList struct {
	events []Event
}

// NewEventList returns a list holding events. The list takes over the
// references held by events.
func NewEventList(events ...Event) *EventList {
	l := &EventList{}
	for _, e := range events {
		l.Push(e)
	}
	return l
}

// Push appends e, ignoring null events.
func (l *EventList) Push(e Event) {
	if !e.IsNull() {
		l.events = append(l.events, e)
	}
}

// Len returns the number of events in the list.
func (l *EventList) Len() int { return len(l.events) }

// Last returns the most recently pushed event, or a null event.
func (l *EventList) Last() Event {
	if len(l.events) == 0 {
		return Event{}
	}
	return l.events[len(l.events)-1]
}

// WaitEvents implements WaitList.
func (l *EventList) WaitEvents() []Event {
	if l == nil {
		return nil
	}
	return l.events
}

// Wait blocks until every event in the list completes.
func (l *EventList) Wait() error {
	if len(l.events) == 0 {
		return nil
	}
	return l.events[0].rt.WaitForEvents(eventIDs(l))
}

// Release drops every event in the list and empties it.
func (l *EventList) Release() error {
	var firstErr error
	for i := range l.events {
		if err := l.events[i].Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.events = nil
	return firstErr
}

// eventIDs flattens a wait list into runtime ids.
func eventIDs(wl WaitList) []uintptr {
	if wl == nil {
		return nil
	}
	events := wl.WaitEvents()
	if len(events) == 0 {
		return nil
	}
	ids := make([]uintptr, 0, len(events))
	for _, e := range events {
		if !e.IsNull() {
			ids = append(ids, e.id)
		}
	}
	return ids
}
