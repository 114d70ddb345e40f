package capture

// Kind identifies what a Message carries.
type Kind int

const (
	KindFragment Kind = iota
	KindLevel
	KindStatus
	KindError
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindFragment:
		return "fragment"
	case KindLevel:
		return "level"
	case KindStatus:
		return "status"
	case KindError:
		return "error"
	case KindEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Message is one item read from a Source.
type Message struct {
	Kind     Kind
	Fragment Fragment

	// Level is the input level in [0,1] for KindLevel.
	Level float32

	// Recording is the recognizer state for KindStatus.
	Recording bool

	// Code and Detail describe a KindError message.
	Code   string
	Detail string
}

// Source is a connected speech recognizer. Next is called from one
// goroutine at a time; Listen and Halt may be called concurrently with Next.
type Source interface {
	// Listen starts (or restarts) a recognition session.
	Listen() error
	// Halt stops the current session.
	Halt() error
	// Next blocks until the recognizer produces a message. An error means the
	// connection is gone and the source must be reopened.
	Next() (Message, error)
	Close() error
}
