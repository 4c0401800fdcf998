package teams

import "strconv"

// Inventory counts teams of a single arc per pool.
// Available + Deployed + Cooldown == Total at all times.
type Inventory struct {
	Available int `json:"available"`
	Deployed  int `json:"deployed"`
	Cooldown  int `json:"cooldown"`
	Total     int `json:"total"`
}

func (inv *Inventory) slot(p Pool) *int {
	switch p {
	case PoolAvailable:
		return &inv.Available
	case PoolDeployed:
		return &inv.Deployed
	case PoolCooldown:
		return &inv.Cooldown
	default:
		panic("teams: bad pool " + strconv.Itoa(int(p)))
	}
}

func (inv *Inventory) Count(p Pool) int { return *inv.slot(p) }

func (inv *Inventory) move(from, to Pool) {
	f := inv.slot(from)
	if *f <= 0 {
		panic("teams: inventory underflow in pool " + from.String())
	}
	*f--
	*inv.slot(to)++
}

func (inv Inventory) balanced() bool {
	return inv.Available >= 0 && inv.Deployed >= 0 && inv.Cooldown >= 0 &&
		inv.Available+inv.Deployed+inv.Cooldown == inv.Total
}

// ArcStats are lifetime counters per arc.
type ArcStats struct {
	Deployed    int `json:"deployed"`
	Recalled    int `json:"recalled"`
	Neutralised int `json:"neutralised"`
	Expired     int `json:"expired"`
}

func itoa(n int) string { return strconv.Itoa(n) }
