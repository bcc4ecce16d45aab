package cfgview

// ReachableFrom returns the set of blocks reachable from start by forward
// clean edges, including start itself. Adapted from the depth-first
// reachability walk used elsewhere in this codebase for dead-code
// detection; here it backs the builder's coverage invariant (every
// reachable block ends up owned by exactly one region).
func ReachableFrom(c *CFG, start BlockID) map[BlockID]struct{} {
	seen := make(map[BlockID]struct{})
	markReachableFromBlock(c, start, seen)
	return seen
}

func markReachableFromBlock(c *CFG, id BlockID, seen map[BlockID]struct{}) {
	if _, ok := seen[id]; ok {
		return
	}
	seen[id] = struct{}{}
	for _, s := range c.CleanSuccessors(id) {
		markReachableFromBlock(c, s, seen)
	}
}

// UnreachableBlocks returns every block not reachable from the method's
// entry block, in graph order.
func UnreachableBlocks(c *CFG) []BlockID {
	reachable := ReachableFrom(c, c.enter)
	var out []BlockID
	for _, id := range c.order {
		if _, ok := reachable[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
