package teams

// EventKind names what happened to a team.
type EventKind string

const (
	EventTeamDeployed    EventKind = "TEAM_DEPLOYED"
	EventTeamRecalled    EventKind = "TEAM_RECALLED"
	EventTeamNeutralised EventKind = "TEAM_NEUTRALISED"
	EventTeamExpired     EventKind = "TEAM_EXPIRED"
	EventTeamAvailable   EventKind = "TEAM_AVAILABLE"
	EventEffectApplied   EventKind = "EFFECT_APPLIED"
	EventEffectFailed    EventKind = "EFFECT_FAILED"
)

type Event struct {
	Turn   int       `json:"turn"`
	Kind   EventKind `json:"kind"`
	TeamID int       `json:"team_id"`
	Arc    int       `json:"arc"`
	Actor  int       `json:"actor"`
	Node   int       `json:"node"`
	Text   string    `json:"text,omitempty"`
}

func (e *Engine) emit(ev Event) {
	ev.Turn = e.currentTurn()
	e.queue = append(e.queue, ev)
}

// flush hands queued events to the notifier. Only public entry points call it,
// after their mutation has fully completed.
func (e *Engine) flush() {
	if len(e.queue) == 0 {
		return
	}
	q := e.queue
	e.queue = nil
	if e.c.Notifier == nil {
		return
	}
	for _, ev := range q {
		e.c.Notifier.Notify(ev)
	}
}
