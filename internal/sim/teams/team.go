package teams

import "strings"

// Pool is the lifecycle stage a team is in.
type Pool int

const (
	PoolAvailable Pool = iota
	PoolDeployed
	PoolCooldown

	numPools = 3
)

var poolNames = [numPools]string{"AVAILABLE", "DEPLOYED", "COOLDOWN"}

func (p Pool) String() string {
	if p < 0 || p >= numPools {
		return "UNKNOWN"
	}
	return poolNames[p]
}

// ParsePool is the inverse of Pool.String.
func ParsePool(s string) (Pool, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range poolNames {
		if n == s {
			return Pool(i), true
		}
	}
	return 0, false
}

// Team is one deployable unit of an arc. Only the engine writes its fields.
type Team struct {
	id   int
	arc  int
	name string

	pool         Pool
	actor        int
	node         int
	timer        int
	turnDeployed int
	// seq orders deployments engine-wide; -1 unless Deployed.
	seq int
}

func newTeam(id, arc int, name string) *Team {
	return &Team{id: id, arc: arc, name: name, pool: PoolAvailable, actor: -1, node: -1, timer: -1, turnDeployed: -1, seq: -1}
}

func (t *Team) ID() int           { return t.id }
func (t *Team) Arc() int          { return t.arc }
func (t *Team) Name() string      { return t.name }
func (t *Team) Pool() Pool        { return t.pool }
func (t *Team) Actor() int        { return t.actor }
func (t *Team) Node() int         { return t.node }
func (t *Team) Timer() int        { return t.timer }
func (t *Team) TurnDeployed() int { return t.turnDeployed }

func (t *Team) clearPlacement() {
	t.actor = -1
	t.node = -1
	t.timer = -1
	t.turnDeployed = -1
	t.seq = -1
}

// TeamView is a read-only copy of a team row.
type TeamView struct {
	ID           int    `json:"id"`
	Arc          int    `json:"arc"`
	ArcName      string `json:"arc_name"`
	Name         string `json:"name"`
	Pool         string `json:"pool"`
	Actor        int    `json:"actor"`
	Node         int    `json:"node"`
	Timer        int    `json:"timer"`
	TurnDeployed int    `json:"turn_deployed"`
	DeploySeq    int    `json:"deploy_seq"`
}

var natoNames = []string{
	"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot", "Golf", "Hotel", "India", "Juliet",
	"Kilo", "Lima", "Mike", "November", "Oscar", "Papa", "Quebec", "Romeo", "Sierra", "Tango",
}

// teamName names the n-th (1-based) team of an arc.
func teamName(arcName string, n int) string {
	if n >= 1 && n <= len(natoNames) {
		return arcName + " " + natoNames[n-1]
	}
	return arcName + " " + itoa(n)
}
