package conversation

// Stage is the dialogue policy's position in its turn-taking state machine.
// Transitions are one-directional and owned by the agent policy; StageCompleted
// is absorbing.
type Stage string

const (
	StageGreeting     Stage = "greeting"
	StageGathering    Stage = "gathering"
	StageRecommending Stage = "recommending"
	StageBooking      Stage = "booking"
	StageCompleted    Stage = "completed"
)

// Valid reports whether the stage is one of the known machine states.
func (s Stage) Valid() bool {
	switch s {
	case StageGreeting, StageGathering, StageRecommending, StageBooking, StageCompleted:
		return true
	}
	return false
}

func (s Stage) String() string {
	return string(s)
}
