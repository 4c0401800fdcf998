package protocol

// SUBSCRIBE (observer -> server)
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// Events false drops the per-event list from TURN messages.
	Events bool `json:"events"`
}

// TURN (server -> observer), also the body of a turn log line.
type TurnMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	CampaignID      string      `json:"campaign_id"`
	Turn            int         `json:"turn"`
	Events          []Event     `json:"events"`
	Outcomes        []Outcome   `json:"outcomes,omitempty"`
	Inventory       []ArcCount  `json:"inventory"`
	Nodes           []NodeState `json:"nodes"`
	Digest          string      `json:"digest"`
}

type Event struct {
	Turn   int    `json:"turn"`
	Kind   string `json:"kind"`
	TeamID int    `json:"team_id"`
	Arc    string `json:"arc"`
	Actor  int    `json:"actor"`
	Node   int    `json:"node"`
	Text   string `json:"text,omitempty"`
}

type Outcome struct {
	Kind    string `json:"kind"`
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	TeamID  int    `json:"team_id"`
	NodeID  int    `json:"node_id"`
	Text    string `json:"text"`
}

type ArcCount struct {
	Arc       string `json:"arc"`
	Available int    `json:"available"`
	Deployed  int    `json:"deployed"`
	Cooldown  int    `json:"cooldown"`
	Total     int    `json:"total"`
}

type NodeState struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Stability int    `json:"stability"`
	Support   int    `json:"support"`
	Security  int    `json:"security"`
	Spider    bool   `json:"spider,omitempty"`
	Tracer    bool   `json:"tracer,omitempty"`
	Contacts  bool   `json:"contacts,omitempty"`
	Teams     int    `json:"teams"`
}

// ERROR (server -> observer)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
