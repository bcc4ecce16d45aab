package cfgview

import "sort"

// CFG is the read-only (besides flags/edge-instructions/region) control
// flow graph the region builder consumes. It is produced by prior passes
// (bytecode lifting, dominator construction, natural-loop detection,
// try-catch splitting) that this package treats as external collaborators;
// CFG only stores their output and answers queries about it.
type CFG struct {
	order []BlockID
	byID  map[BlockID]*Block

	enter BlockID

	loops       []*Loop
	excHandlers []*ExcHandler

	dom *DomTree

	warnings []string
	flags    BlockFlag // method-level flags, e.g. INCONSISTENT_CODE

	region interface{}

	edgeInsns map[Edge][]*Insn
	loopLabel map[Edge]*Loop // LoopLabelAttr on an edge's break/continue instruction

	blockByInsn map[*Insn]BlockID
}

// New creates an empty CFG whose entry block is block 0.
func New() *CFG {
	return &CFG{
		byID:        make(map[BlockID]*Block),
		edgeInsns:   make(map[Edge][]*Insn),
		loopLabel:   make(map[Edge]*Loop),
		blockByInsn: make(map[*Insn]BlockID),
		enter:       NoBlock,
	}
}

// AddBlock creates and registers a new block, appending it to graph order.
func (c *CFG) AddBlock() *Block {
	id := BlockID(len(c.order))
	b := newBlock(id)
	c.order = append(c.order, id)
	c.byID[id] = b
	if c.enter == NoBlock {
		c.enter = id
	}
	return b
}

// SetEntry overrides the inferred entry block (by default the first block
// added).
func (c *CFG) SetEntry(id BlockID) { c.enter = id }

// Block looks a block up by id.
func (c *CFG) Block(id BlockID) *Block { return c.byID[id] }

// GetBasicBlocks returns every block in the graph, in construction order.
func (c *CFG) GetBasicBlocks() []*Block {
	out := make([]*Block, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// GetEnterBlock returns the method's entry block.
func (c *CFG) GetEnterBlock() BlockID { return c.enter }

// AddEdge connects two blocks. synthetic marks a back-edge inserted by an
// earlier pass that CleanSuccessors should hide from the builder.
func (c *CFG) AddEdge(from, to BlockID, synthetic bool) {
	fb, tb := c.byID[from], c.byID[to]
	fb.succs = append(fb.succs, to)
	fb.synthSuccs = append(fb.synthSuccs, synthetic)
	tb.preds = append(tb.preds, from)
}

// CleanSuccessors returns a block's successors with synthetic back-edges
// filtered out.
func (c *CFG) CleanSuccessors(id BlockID) []BlockID {
	b := c.byID[id]
	out := make([]BlockID, 0, len(b.succs))
	for i, s := range b.succs {
		if i < len(b.synthSuccs) && b.synthSuccs[i] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// SetDomFrontier installs the dominance-frontier set for a block, as
// computed by the (external) dominator pass.
func (c *CFG) SetDomFrontier(id BlockID, frontier []BlockID) {
	b := c.byID[id]
	b.domFrontier = make(map[BlockID]struct{}, len(frontier))
	for _, f := range frontier {
		b.domFrontier[f] = struct{}{}
	}
}

// DomFrontier returns a block's dominance frontier.
func (c *CFG) DomFrontier(id BlockID) map[BlockID]struct{} {
	return c.byID[id].domFrontier
}

// SetDomTree installs the precomputed dominator tree used by IsDominator
// and CollectBlocksDominatedBy.
func (c *CFG) SetDomTree(d *DomTree) { c.dom = d }

// IsDominator reports whether block `dominator` dominates block `other`.
func (c *CFG) IsDominator(dominator, other BlockID) bool {
	if c.dom == nil {
		return dominator == other
	}
	return c.dom.Dominates(dominator, other)
}

// ImmediateDominator returns a block's immediate dominator, if a
// dominator tree has been installed via SetDomTree.
func (c *CFG) ImmediateDominator(id BlockID) (BlockID, bool) {
	if c.dom == nil {
		return NoBlock, false
	}
	return c.dom.ImmediateDom(id)
}

// AddLoop registers a natural loop detected by the (external) loop pass.
func (c *CFG) AddLoop(l *Loop) {
	c.loops = append(c.loops, l)
	c.byID[l.Start].setAttr(attrLoop, l)
	c.byID[l.Start].Add(FlagLoopStart)
}

// GetLoopForBlock returns the innermost loop containing block, or nil.
func (c *CFG) GetLoopForBlock(id BlockID) *Loop {
	var best *Loop
	for _, l := range c.loops {
		if !l.Contains(id) {
			continue
		}
		if best == nil || l.Depth() > best.Depth() {
			best = l
		}
	}
	return best
}

// GetAllLoopsForBlock returns every loop containing block, innermost first.
func (c *CFG) GetAllLoopsForBlock(id BlockID) []*Loop {
	var out []*Loop
	for _, l := range c.loops {
		if l.Contains(id) {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Depth() > out[j].Depth() })
	return out
}

// LoopAttr returns the Loop attribute attached to a header block, if still
// attached (see DetachLoop).
func (c *CFG) LoopAttr(id BlockID) (*Loop, bool) {
	v, ok := c.byID[id].getAttr(attrLoop)
	if !ok {
		return nil, false
	}
	return v.(*Loop), true
}

// DetachLoop temporarily removes the Loop attribute from its header so
// that the header may legitimately be re-entered while its own body is
// being built. ReattachLoop restores it.
func (c *CFG) DetachLoop(id BlockID) *Loop {
	l, ok := c.LoopAttr(id)
	if !ok {
		return nil
	}
	c.byID[id].clearAttr(attrLoop)
	return l
}

// ReattachLoop restores a Loop attribute detached by DetachLoop.
func (c *CFG) ReattachLoop(id BlockID, l *Loop) {
	if l == nil {
		return
	}
	c.byID[id].setAttr(attrLoop, l)
}

// AddExcHandler registers a handler produced by the (external) try-catch
// splitter pass.
func (c *CFG) AddExcHandler(h *ExcHandler) {
	c.excHandlers = append(c.excHandlers, h)
	if b := c.byID[h.HandlerBlock]; b != nil {
		b.Add(FlagExcHandler)
	}
}

// GetExceptionHandlers returns every handler in the method.
func (c *CFG) GetExceptionHandlers() []*ExcHandler { return c.excHandlers }

// GetExceptionHandlersCount returns the number of handlers in the method.
func (c *CFG) GetExceptionHandlersCount() int { return len(c.excHandlers) }

// AddWarn records a best-effort diagnostic. Malformed-structure failures
// are reported this way rather than aborting the build.
func (c *CFG) AddWarn(msg string) { c.warnings = append(c.warnings, msg) }

// Warnings returns every warning recorded so far.
func (c *CFG) Warnings() []string { return c.warnings }

// Add sets a method-level flag (e.g. INCONSISTENT_CODE).
func (c *CFG) Add(flag BlockFlag) { c.flags |= flag }

// Contains reports whether a method-level flag is set.
func (c *CFG) Contains(flag BlockFlag) bool { return c.flags.has(flag) }

// GetRegion returns the method's root region, set once building finishes.
func (c *CFG) GetRegion() interface{} { return c.region }

// SetRegion installs the method's root region.
func (c *CFG) SetRegion(r interface{}) { c.region = r }

// AddEdgeInsn attaches a synthetic instruction (BREAK/CONTINUE/fallthrough)
// to a specific edge rather than inlining it into a block's instruction
// list.
func (c *CFG) AddEdgeInsn(from, to BlockID, insn *Insn) {
	e := Edge{From: from, To: to}
	c.edgeInsns[e] = append(c.edgeInsns[e], insn)
}

// EdgeInsns returns the synthetic instructions attached to an edge.
func (c *CFG) EdgeInsns(from, to BlockID) []*Insn {
	return c.edgeInsns[Edge{From: from, To: to}]
}

// SetLoopLabel attaches a LoopLabelAttr to the edge carrying a break, used
// when the break must disambiguate which enclosing loop it targets.
func (c *CFG) SetLoopLabel(from, to BlockID, l *Loop) {
	c.loopLabel[Edge{From: from, To: to}] = l
}

// LoopLabel returns the loop an edge's break/continue is labelled with, if
// any.
func (c *CFG) LoopLabel(from, to BlockID) (*Loop, bool) {
	l, ok := c.loopLabel[Edge{From: from, To: to}]
	return l, ok
}

// indexInsns records which block owns each instruction. GetBlockByInsn
// builds the index on first use, while it is still empty; instructions
// added to blocks afterwards are not indexed. Instructions flagged REMOVE
// (unbound by InsnRemover) are left out.
func (c *CFG) indexInsns() {
	c.blockByInsn = make(map[*Insn]BlockID, len(c.order))
	for _, id := range c.order {
		for _, insn := range c.byID[id].insns {
			if insn.Contains(FlagRemove) {
				continue
			}
			c.blockByInsn[insn] = id
		}
	}
}

// GetBlockByInsn finds the block owning a given instruction.
func (c *CFG) GetBlockByInsn(insn *Insn) (BlockID, bool) {
	if len(c.blockByInsn) == 0 && totalInsns(c) > 0 {
		c.indexInsns()
	}
	id, ok := c.blockByInsn[insn]
	return id, ok
}

func totalInsns(c *CFG) int {
	n := 0
	for _, id := range c.order {
		n += len(c.byID[id].insns)
	}
	return n
}
