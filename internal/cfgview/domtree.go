package cfgview

import "github.com/bits-and-blooms/bitset"

// DomTree is the dominator tree over a CFG's blocks. Computing it is
// ordinarily the job of an earlier pass (the region builder treats
// dominance as an external fact, per the package doc), but building one
// with the classic Cooper/Harvey/Kennedy iterative algorithm lives here so
// that tests can construct a CFG from raw edges and get back a real,
// self-consistent IsDominator/DomFrontier without hand-authoring either.
type DomTree struct {
	idom     map[BlockID]BlockID
	postorde map[BlockID]int
	order    []BlockID
}

// BuildDomTree computes the dominator tree for a CFG rooted at its enter
// block, using only "clean" (non-synthetic) successor edges, and installs
// the resulting dominance-frontier sets onto the CFG's blocks.
func BuildDomTree(c *CFG) *DomTree {
	order := reversePostorder(c)
	rpoIndex := make(map[BlockID]int, len(order))
	for i, id := range order {
		rpoIndex[id] = i
	}

	idom := make(map[BlockID]BlockID, len(order))
	idom[c.enter] = c.enter

	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == c.enter {
				continue
			}
			var newIdom BlockID = NoBlock
			for _, p := range c.byID[b].preds {
				if _, ok := idom[p]; !ok {
					continue
				}
				if newIdom == NoBlock {
					newIdom = p
					continue
				}
				newIdom = intersect(idom, rpoIndex, newIdom, p)
			}
			if cur, ok := idom[b]; newIdom != NoBlock && (!ok || cur != newIdom) {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	d := &DomTree{idom: idom, postorde: rpoIndex, order: order}
	d.computeFrontiers(c)
	return d
}

// intersect walks both fingers toward the root using reverse postorder
// numbers as the "higher in the tree" ordering.
func intersect(idom map[BlockID]BlockID, rpoIndex map[BlockID]int, a, b BlockID) BlockID {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

func reversePostorder(c *CFG) []BlockID {
	visited := make(map[BlockID]bool, len(c.order))
	var post []BlockID
	var visit func(BlockID)
	visit = func(id BlockID) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, s := range c.CleanSuccessors(id) {
			visit(s)
		}
		post = append(post, id)
	}
	visit(c.enter)
	// Reverse.
	out := make([]BlockID, len(post))
	for i, id := range post {
		out[len(post)-1-i] = id
	}
	return out
}

// computeFrontiers implements the standard Cytron et al. dominance
// frontier algorithm, representing each block's frontier as a bitset
// before converting it to the map form CFG.DomFrontier exposes.
func (d *DomTree) computeFrontiers(c *CFG) {
	n := len(c.order)
	frontiers := make(map[BlockID]*bitset.BitSet, n)
	for _, id := range c.order {
		frontiers[id] = bitset.New(uint(n))
	}

	for _, b := range c.order {
		preds := c.byID[b].preds
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			if _, ok := d.idom[p]; !ok {
				// Predecessor unreachable from the entry block.
				continue
			}
			runner := p
			for runner != d.idom[b] {
				frontiers[runner].Set(uint(b))
				if runner == d.idom[runner] {
					break
				}
				runner = d.idom[runner]
			}
		}
	}

	for _, id := range c.order {
		var out []BlockID
		fr := frontiers[id]
		for i, e := fr.NextSet(0); e; i, e = fr.NextSet(i + 1) {
			out = append(out, BlockID(i))
		}
		c.SetDomFrontier(id, out)
	}
}

// Dominates reports whether `dominator` dominates `other` (every block
// dominates itself).
func (d *DomTree) Dominates(dominator, other BlockID) bool {
	if d == nil {
		return dominator == other
	}
	for b := other; ; {
		if b == dominator {
			return true
		}
		parent, ok := d.idom[b]
		if !ok || parent == b {
			return b == dominator
		}
		b = parent
	}
}

// ImmediateDom returns a block's immediate dominator.
func (d *DomTree) ImmediateDom(b BlockID) (BlockID, bool) {
	id, ok := d.idom[b]
	return id, ok
}

// CollectBlocksDominatedBy returns every block dominated by `dominator`,
// including itself.
func (c *CFG) CollectBlocksDominatedBy(dominator BlockID) []BlockID {
	var out []BlockID
	for _, id := range c.order {
		if c.IsDominator(dominator, id) {
			out = append(out, id)
		}
	}
	return out
}
