package teams

func (e *Engine) nodeLimit(n NodeInfo) int {
	if n.MaxTeams > 0 {
		return n.MaxTeams
	}
	return e.cfg.MaxTeamsPerNode
}

// admit reports why node cannot take a team of arc, or nil.
func (e *Engine) admit(nodeID, arc int) error {
	if e.c.Nodes == nil {
		return errf(CodeNodeRejected, "node %d not found", nodeID)
	}
	n, ok := e.c.Nodes.Node(nodeID)
	if !ok {
		return errf(CodeNodeRejected, "node %d not found", nodeID)
	}
	present := e.nodeTeams[nodeID]
	for _, id := range present {
		if e.teams[id].arc == arc {
			return errf(CodeNodeRejected, "node %s already has a %s team", n.Name, e.arcs.Name(arc))
		}
	}
	if limit := e.nodeLimit(n); len(present) >= limit {
		return errf(CodeNodeRejected, "node %s is at its limit of %d teams", n.Name, limit)
	}
	return nil
}

func (e *Engine) nodeName(nodeID int) string {
	if e.c.Nodes != nil {
		if n, ok := e.c.Nodes.Node(nodeID); ok {
			return n.Name
		}
	}
	return "node " + itoa(nodeID)
}

func removeID(ids []int, id int) []int {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
