package pipeline

// State is the lifecycle position of a Pipeline run.
type State int32

const (
	StateStart State = iota
	StateHeaderRead
	StateStreaming
	StateDrained
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateHeaderRead:
		return "header_read"
	case StateStreaming:
		return "streaming"
	case StateDrained:
		return "drained"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}
