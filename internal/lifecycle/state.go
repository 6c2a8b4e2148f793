package lifecycle

// State is the readiness of a model/encoder pair.
type State int32

const (
	Uninitialized State = iota
	Loading
	Training
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Loading:
		return "LOADING"
	case Training:
		return "TRAINING"
	case Ready:
		return "READY"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// AllStates lists every state, for exporting one gauge series per state.
var AllStates = []State{Uninitialized, Loading, Training, Ready, Failed}
