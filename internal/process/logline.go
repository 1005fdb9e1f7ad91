package process

// Stream identifies which stdio pipe a LogLine came from. The values double
// as the UI event channel names.
type Stream string

const (
	Stdout Stream = "backend-stdout"
	Stderr Stream = "backend-stderr"
)

// LogLine is one decoded line of backend output.
type LogLine struct {
	Stream Stream
	Text   string
}

// Sink receives backend output. Publish must not block for long: readers
// call it inline and a stalled reader lets the backend's pipe buffer fill.
type Sink interface {
	Publish(LogLine)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(LogLine)

func (f SinkFunc) Publish(l LogLine) { f(l) }

type discardSink struct{}

func (discardSink) Publish(LogLine) {}
