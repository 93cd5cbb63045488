package transaction

// Phase is the position of a Sender in its submission lifecycle.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseSigning
	PhaseSending
	PhaseConfirming
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSigning:
		return "signing"
	case PhaseSending:
		return "sending"
	case PhaseConfirming:
		return "confirming"
	default:
		return "unknown"
	}
}
