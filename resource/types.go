package resource

// Handle is an opaque reference to a retained value.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Kind tells what a retained value is kept alive for.
type Kind uint8

const (
	// KindCallback is a native callback handed to a dispatch queue. It is
	// released once the queued work has run.
	KindCallback Kind = iota + 1
	// KindImplementation is a native callback installed as a method
	// implementation. It lives until the registry is closed.
	KindImplementation
)

func (k Kind) String() string {
	switch k {
	case KindCallback:
		return "callback"
	case KindImplementation:
		return "implementation"
	default:
		return "unknown"
	}
}

// EventType is a retained value lifecycle event.
type EventType uint8

const (
	EventRetained EventType = iota
	EventReleased
)

// Event is delivered to observers on every retain and release.
type Event struct {
	Value  any
	Handle Handle
	Kind   Kind
	Type   EventType
}

// Observer receives notifications about lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) {
	f(e)
}

// Releaser is implemented by values that hold native resources,
// such as bridge.NativeCallback.
type Releaser interface {
	Release()
}
