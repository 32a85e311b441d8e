package enum

type SessionPhase string

const (
	SessionPhaseStopped      SessionPhase = "stopped"
	SessionPhaseConnecting   SessionPhase = "connecting"
	SessionPhasePolling      SessionPhase = "polling"
	SessionPhaseIdling       SessionPhase = "idling"
	SessionPhaseDisconnected SessionPhase = "disconnected"
	SessionPhaseBackoff      SessionPhase = "backoff"
)

func (p SessionPhase) String() string {
	return string(p)
}

type SinkName string

const (
	SinkSlack   SinkName = "slack"
	SinkEvents  SinkName = "events"
	SinkArchive SinkName = "archive"
)

func (s SinkName) String() string {
	return string(s)
}
