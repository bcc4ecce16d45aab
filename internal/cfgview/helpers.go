package cfgview

import "github.com/bits-and-blooms/bitset"

// GetNextBlock returns a block's sole clean successor, or NoBlock if it has
// zero or more than one.
func GetNextBlock(c *CFG, id BlockID) BlockID {
	succs := c.CleanSuccessors(id)
	if len(succs) != 1 {
		return NoBlock
	}
	return succs[0]
}

// SkipSyntheticSuccessor follows a chain of empty, synthetic trampoline
// blocks starting at id's successor, stopping at the first block that
// either carries instructions or has more than one clean successor.
func SkipSyntheticSuccessor(c *CFG, id BlockID) BlockID {
	next := GetNextBlock(c, id)
	for next != NoBlock {
		b := c.byID[next]
		if !b.IsEmpty() || !b.Contains(FlagSynthetic) {
			return next
		}
		after := GetNextBlock(c, next)
		if after == NoBlock {
			return next
		}
		next = after
	}
	return NoBlock
}

// SelectOther returns whichever of a two-element successor set is not
// `one`. Used when a builder already knows one branch target (e.g. the
// "then" block) and needs the other ("else").
func SelectOther(succs []BlockID, one BlockID) BlockID {
	for _, s := range succs {
		if s != one {
			return s
		}
	}
	return NoBlock
}

// IsPathExists reports whether `to` is reachable from `from` by forward
// clean edges.
func IsPathExists(c *CFG, from, to BlockID) bool {
	if from == to {
		return true
	}
	_, ok := ReachableFrom(c, from)[to]
	return ok
}

// GetPathCross finds the first block where forward paths from a and b
// reconverge, expanding each side one BFS layer at a time. It returns
// NoBlock if the two never converge.
func GetPathCross(c *CFG, a, b BlockID) BlockID {
	if a == b {
		return a
	}
	seenA := map[BlockID]struct{}{a: {}}
	seenB := map[BlockID]struct{}{b: {}}
	frontierA := []BlockID{a}
	frontierB := []BlockID{b}

	if _, ok := seenB[a]; ok {
		return a
	}
	if _, ok := seenA[b]; ok {
		return b
	}

	for len(frontierA) > 0 || len(frontierB) > 0 {
		if next, ok := expandFrontier(c, &frontierA, seenA, seenB); ok {
			return next
		}
		if next, ok := expandFrontier(c, &frontierB, seenB, seenA); ok {
			return next
		}
	}
	return NoBlock
}

func expandFrontier(c *CFG, frontier *[]BlockID, own, other map[BlockID]struct{}) (BlockID, bool) {
	var next []BlockID
	for _, id := range *frontier {
		for _, s := range c.CleanSuccessors(id) {
			if _, ok := own[s]; ok {
				continue
			}
			own[s] = struct{}{}
			if _, ok := other[s]; ok {
				return s, true
			}
			next = append(next, s)
		}
	}
	*frontier = next
	return NoBlock, false
}

// GetAllPathsBlocks returns every block lying on some simple path from
// `from` to `to`: the intersection of blocks reachable from `from` and
// blocks that can reach `to`.
func GetAllPathsBlocks(c *CFG, from, to BlockID) []BlockID {
	fwd := ReachableFrom(c, from)
	if _, ok := fwd[to]; !ok {
		return nil
	}
	canReachTo := make(map[BlockID]struct{})
	for _, id := range c.order {
		if IsPathExists(c, id, to) {
			canReachTo[id] = struct{}{}
		}
	}
	var out []BlockID
	for _, id := range c.order {
		_, inFwd := fwd[id]
		_, inBack := canReachTo[id]
		if inFwd && inBack {
			out = append(out, id)
		}
	}
	return out
}

// BitSetToBlocks converts a bitset of block indices back into an ordered
// slice of BlockIDs.
func BitSetToBlocks(set *bitset.BitSet) []BlockID {
	var out []BlockID
	for i, e := set.NextSet(0); e; i, e = set.NextSet(i + 1) {
		out = append(out, BlockID(i))
	}
	return out
}

// BlocksToBitSet is the inverse of BitSetToBlocks, sized to cover the CFG.
func BlocksToBitSet(c *CFG, blocks []BlockID) *bitset.BitSet {
	set := bitset.New(uint(len(c.order)))
	for _, b := range blocks {
		set.Set(uint(b))
	}
	return set
}

// CleanBitSet clears every catch/exception-handler block from a bitset, as
// those are never valid region members picked up by generic traversal.
func CleanBitSet(c *CFG, set *bitset.BitSet) {
	for _, id := range c.order {
		b := c.byID[id]
		if b.Contains(FlagCatchBlock) || b.Contains(FlagExcHandler) {
			set.Clear(uint(id))
		}
	}
}

// BuildSimplePath walks the unique clean-successor chain from `from`,
// returning the full block list ending at `to`, or nil if some block along
// the way branches (more than one clean successor) before reaching `to`.
func BuildSimplePath(c *CFG, from, to BlockID) []BlockID {
	path := []BlockID{from}
	cur := from
	for cur != to {
		next := GetNextBlock(c, cur)
		if next == NoBlock {
			return nil
		}
		path = append(path, next)
		cur = next
	}
	return path
}

// IsEmptySimplePath reports whether a simple path exists between from and
// to and every block strictly between them is empty.
func IsEmptySimplePath(c *CFG, from, to BlockID) bool {
	path := BuildSimplePath(c, from, to)
	if path == nil {
		return false
	}
	for _, id := range path[1 : len(path)-1] {
		if !c.byID[id].IsEmpty() {
			return false
		}
	}
	return true
}

// CheckLastInsnType reports whether block's terminator instruction has the
// given type.
func CheckLastInsnType(c *CFG, id BlockID, t InsnType) bool {
	last := c.byID[id].LastInsn()
	return last != nil && last.Type == t
}
