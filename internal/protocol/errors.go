package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrInternal        = "E_INTERNAL"

	// Team engine refusals.
	ErrInvalidTeam   = "E_INVALID_TEAM"
	ErrActorNotFound = "E_ACTOR_NOT_FOUND"
	ErrActorInactive = "E_ACTOR_INACTIVE"
	ErrActorAtCap    = "E_ACTOR_AT_CAPACITY"
	ErrArcExhausted  = "E_ARC_EXHAUSTED"
	ErrNodeRejected  = "E_NODE_REJECTED"
	ErrEmptyNode     = "E_EMPTY_NODE"
	ErrAlreadySeeded = "E_ALREADY_SEEDED"
	ErrBadState      = "E_BAD_STATE"
	ErrInvariant     = "E_INVARIANT"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrInternal:        {},
	ErrInvalidTeam:     {},
	ErrActorNotFound:   {},
	ErrActorInactive:   {},
	ErrActorAtCap:      {},
	ErrArcExhausted:    {},
	ErrNodeRejected:    {},
	ErrEmptyNode:       {},
	ErrAlreadySeeded:   {},
	ErrBadState:        {},
	ErrInvariant:       {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
