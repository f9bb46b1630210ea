package search

// Kind tags a value on a result stream.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
	KindDone   Kind = "done" // terminal marker, carries no name or path
)

// Result is a single entry on a session's result stream. The path was valid
// when the entry was discovered; consumers must tolerate it having since
// disappeared.
type Result struct {
	Kind Kind   `json:"type" yaml:"type"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// IsTerminal reports whether r is the marker that ends a completed stream.
func (r Result) IsTerminal() bool {
	return r.Kind == KindDone
}

var doneMarker = Result{Kind: KindDone}

// State is the lifecycle state of a session, or of a controller with no
// session (Idle).
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}
