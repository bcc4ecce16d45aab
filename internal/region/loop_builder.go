package region

import (
	"fmt"

	"github.com/restructure/restructure/internal/cfgview"
	"github.com/restructure/restructure/internal/condmerge"
)

// loopBuilder recognizes natural loops as while/do-while/endless shapes.
type loopBuilder struct {
	b *Builder
}

// build recognizes a natural loop rooted at header and returns the
// continuation block where outer flow resumes.
func (lb *loopBuilder) build(seq *SequenceRegion, header cfgview.BlockID, loop *cfgview.Loop) (cfgview.BlockID, error) {
	for _, candidate := range lb.orderedExits(loop, header) {
		if !lb.isConditionHeader(loop, candidate) {
			continue
		}
		next, err := lb.buildWithCondition(seq, header, loop, candidate)
		if err != nil {
			return cfgview.NoBlock, err
		}
		return next, nil
	}
	return lb.makeEndlessLoop(seq, header, loop)
}

// orderedExits orders condition-header candidates: the header's
// graph-successor, the header itself, the loop end, then the rest, each
// only if it is actually an exit node.
func (lb *loopBuilder) orderedExits(loop *cfgview.Loop, header cfgview.BlockID) []cfgview.BlockID {
	exits := loop.ExitNodes()
	isExit := make(map[cfgview.BlockID]bool, len(exits))
	for _, e := range exits {
		isExit[e] = true
	}

	var ordered []cfgview.BlockID
	seen := make(map[cfgview.BlockID]bool)
	add := func(b cfgview.BlockID) {
		if b == cfgview.NoBlock || seen[b] || !isExit[b] {
			return
		}
		seen[b] = true
		ordered = append(ordered, b)
	}

	if succs := lb.b.cfg.CleanSuccessors(header); len(succs) > 0 {
		add(succs[0])
	}
	add(header)
	add(loop.End)
	for _, e := range exits {
		add(e)
	}
	return ordered
}

// isConditionHeader decides whether candidate can carry the loop's
// condition.
func (lb *loopBuilder) isConditionHeader(loop *cfgview.Loop, candidate cfgview.BlockID) bool {
	blk := lb.b.cfg.Block(candidate)
	if blk.Contains(cfgview.FlagExcHandler) {
		return false
	}
	if !cfgview.CheckLastInsnType(lb.b.cfg, candidate, cfgview.InsnIf) {
		return false
	}
	if !loop.Contains(candidate) && candidate != loop.Start && candidate != loop.End {
		return false
	}

	owning := lb.b.cfg.GetAllLoopsForBlock(candidate)
	if len(owning) >= 2 {
		leavesAll := true
		for _, s := range lb.b.cfg.CleanSuccessors(candidate) {
			for _, l := range owning {
				if l.Contains(s) {
					leavesAll = false
					break
				}
			}
		}
		if leavesAll {
			return false
		}
	}

	if candidate == loop.Start || candidate == loop.End {
		return lb.checkLoopExits(loop, candidate)
	}
	if cfgview.IsEmptySimplePath(lb.b.cfg, loop.Start, candidate) {
		return lb.checkLoopExits(loop, candidate)
	}
	if lb.checkPreCondition(loop, candidate) {
		return lb.checkLoopExits(loop, candidate)
	}
	return false
}

// checkPreCondition reports whether candidate is a direct successor of the
// loop header usable as a pre-condition test.
func (lb *loopBuilder) checkPreCondition(loop *cfgview.Loop, candidate cfgview.BlockID) bool {
	for _, s := range lb.b.cfg.CleanSuccessors(loop.Start) {
		if s == candidate {
			return true
		}
	}
	return false
}

// checkLoopExits: when the loop has multiple exit edges, every secondary
// exit target must either be an equal path to the candidate's own exit
// target, or must not cross it.
func (lb *loopBuilder) checkLoopExits(loop *cfgview.Loop, candidate cfgview.BlockID) bool {
	exits := loop.Exits
	if len(exits) <= 1 {
		return true
	}
	var mainTarget cfgview.BlockID = cfgview.NoBlock
	for _, e := range exits {
		if e.From == candidate {
			mainTarget = e.To
			break
		}
	}
	if mainTarget == cfgview.NoBlock {
		return true
	}
	for _, e := range exits {
		if e.From == candidate {
			continue
		}
		skipped := cfgview.SkipSyntheticSuccessor(lb.b.cfg, e.From)
		if skipped == cfgview.NoBlock {
			skipped = e.To
		}
		if skipped == mainTarget {
			continue
		}
		if cfgview.GetPathCross(lb.b.cfg, skipped, mainTarget) == mainTarget {
			continue
		}
		// Paths neither agree nor avoid crossing: reject this candidate.
		return false
	}
	return true
}

// buildWithCondition constructs the LoopRegion once a condition header
// has been chosen.
func (lb *loopBuilder) buildWithCondition(seq *SequenceRegion, header cfgview.BlockID, loop *cfgview.Loop, conditionHeader cfgview.BlockID) (cfgview.BlockID, error) {
	info := condmerge.MakeIfInfo(lb.b.cfg, conditionHeader)
	if info == nil {
		return lb.makeEndlessLoop(seq, header, loop)
	}
	condmerge.MergeNestedIfNodes(lb.b.cfg, info)

	if !loop.Contains(info.ThenBlock) {
		info = info.Invert()
	}

	lr := &LoopRegion{
		Condition:      info,
		ConditionAtEnd: conditionHeader == loop.End,
		PreCondition:   cfgview.NoBlock,
		Loop:           loop,
	}
	if !lr.ConditionAtEnd && conditionHeader != header &&
		!cfgview.IsEmptySimplePath(lb.b.cfg, header, conditionHeader) {
		lr.PreCondition = header
	}
	seq.AddRegion(lr)
	lb.b.stack.Push(lr)
	defer lb.b.stack.Pop()

	var mainExitTarget cfgview.BlockID = cfgview.NoBlock
	for _, e := range loop.Exits {
		if e.From == conditionHeader {
			mainExitTarget = e.To
			break
		}
	}
	if mainExitTarget == cfgview.NoBlock && len(loop.Exits) > 0 {
		// The condition header came from the loop's exit-node set, so an
		// exit edge from it must exist.
		return cfgview.NoBlock, &InvariantError{
			Reason: fmt.Sprintf("loop condition header %d has no exit edge", conditionHeader),
		}
	}

	remainingExits := lb.remainingExitBlocks(loop, info)
	for _, e := range loop.Exits {
		if !containsBlock(remainingExits, e.From) {
			continue
		}
		lb.insertLoopBreak(loop, mainExitTarget, e)
	}

	var out cfgview.BlockID
	if lr.ConditionAtEnd {
		detached := lb.b.cfg.DetachLoop(header)
		lb.b.cfg.Block(loop.End).Add(cfgview.FlagAddedToRegion)
		lb.b.stack.AddExit(loop.End)
		lb.b.clearProcessed(header)

		body, _, err := lb.b.build(header)
		if err != nil {
			return cfgview.NoBlock, err
		}
		lb.b.cfg.ReattachLoop(header, detached)
		lb.b.cfg.Block(loop.End).Remove(cfgview.FlagAddedToRegion)
		if !bodyContains(body, loop.End) &&
			!lb.b.cfg.Block(loop.End).Contains(cfgview.FlagExcHandler) &&
			lb.b.markProcessed(loop.End) {
			body.AddBlock(loop.End)
		}
		lr.Body = body
		body.setParent(lr)
		if info.ThenBlock == header {
			out = info.ElseBlock
		} else {
			out = info.ThenBlock
		}
	} else {
		out = info.ElseBlock
		if out != cfgview.NoBlock && lb.reentersProcessedOuterLoop(loop, out) {
			out = cfgview.NoBlock
		}
		if out != cfgview.NoBlock {
			lb.b.stack.AddExit(out)
		}

		body, _, err := lb.b.build(info.ThenBlock)
		if err != nil {
			return cfgview.NoBlock, err
		}
		if conditionHeader != header {
			lb.prependEmptyPrefix(body, header, conditionHeader)
		}
		lr.Body = body
		body.setParent(lr)
	}

	lb.insertContinue(loop)
	return out, nil
}

// remainingExitBlocks returns loop exit-node blocks not absorbed into the
// condition's merged headers.
func (lb *loopBuilder) remainingExitBlocks(loop *cfgview.Loop, info *condmerge.IfInfo) []cfgview.BlockID {
	merged := map[cfgview.BlockID]bool{}
	for _, h := range info.MergedHeaders {
		merged[h] = true
	}
	var out []cfgview.BlockID
	for _, e := range loop.ExitNodes() {
		if !merged[e] {
			out = append(out, e)
		}
	}
	return out
}

func containsBlock(list []cfgview.BlockID, b cfgview.BlockID) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}

// prependEmptyPrefix merges instruction-empty blocks on the path from
// header to conditionHeader into the front of body.
func (lb *loopBuilder) prependEmptyPrefix(body *SequenceRegion, header, conditionHeader cfgview.BlockID) {
	path := cfgview.BuildSimplePath(lb.b.cfg, header, conditionHeader)
	if path == nil {
		return
	}
	var prefix []SeqItem
	for _, id := range path[:len(path)-1] {
		if lb.b.cfg.Block(id).IsEmpty() {
			prefix = append(prefix, SeqItem{Block: id})
		}
	}
	body.Items = append(prefix, body.Items...)
}

func (lb *loopBuilder) reentersProcessedOuterLoop(loop *cfgview.Loop, out cfgview.BlockID) bool {
	for _, l := range lb.b.cfg.GetAllLoopsForBlock(out) {
		if l != loop && l.Contains(out) {
			return true
		}
	}
	return false
}

// insertContinue makes trailing jumps back to the loop end explicit: a
// synthetic trampoline predecessor of loop.End gets a CONTINUE appended
// inline (the one place a synthesized instruction lands in a block rather
// than on an edge) when its code predecessor genuinely diverted from the
// main loop path and can still reach a loop exit.
func (lb *loopBuilder) insertContinue(loop *cfgview.Loop) {
	endPreds := lb.b.cfg.Block(loop.End).Predecessors()
	if len(endPreds) <= 1 {
		return
	}
	for _, pred := range endPreds {
		pb := lb.b.cfg.Block(pred)
		if !pb.Contains(cfgview.FlagSynthetic) {
			continue
		}
		codePreds := pb.Predecessors()
		if len(codePreds) != 1 {
			continue
		}
		cp := codePreds[0]
		if lb.b.cfg.Block(cp).Contains(cfgview.FlagAddedToRegion) {
			continue
		}
		if lb.b.cfg.IsDominator(loop.End, cp) {
			continue
		}
		if loop.IsExitNode(cp) {
			continue
		}
		if dominatedByAll(lb.b.cfg, cp, endPreds) {
			continue
		}
		reachesExit := false
		for _, e := range loop.Exits {
			if cfgview.IsPathExists(lb.b.cfg, cp, e.From) {
				reachesExit = true
				break
			}
		}
		if !reachesExit {
			continue
		}
		pb.AddInsn(&cfgview.Insn{Type: cfgview.InsnContinue})
	}
}

// dominatedByAll reports whether every block in doms (other than block
// itself) dominates block.
func dominatedByAll(c *cfgview.CFG, block cfgview.BlockID, doms []cfgview.BlockID) bool {
	for _, d := range doms {
		if d == block {
			continue
		}
		if !c.IsDominator(d, block) {
			return false
		}
	}
	return true
}

// makeEndlessLoop is the fallback when no block qualified as a condition
// header: the loop has no visible test and its exits are handled purely
// via synthesized breaks.
func (lb *loopBuilder) makeEndlessLoop(seq *SequenceRegion, header cfgview.BlockID, loop *cfgview.Loop) (cfgview.BlockID, error) {
	lr := &LoopRegion{Loop: loop, PreCondition: cfgview.NoBlock}
	seq.AddRegion(lr)
	lb.b.stack.Push(lr)
	defer lb.b.stack.Pop()

	var out cfgview.BlockID = cfgview.NoBlock
	exits := loop.Exits
	if len(exits) == 1 {
		e := exits[0]
		if lb.insertLoopBreak(loop, e.To, e) {
			out = cfgview.GetNextBlock(lb.b.cfg, e.To)
		}
	} else {
		for _, e := range exits {
			for fr := range lb.b.cfg.DomFrontier(e.From) {
				if !cfgview.IsPathExists(lb.b.cfg, e.From, fr) {
					continue
				}
				lb.b.stack.AddExit(fr)
				if lb.insertLoopBreak(loop, fr, e) {
					out = fr
				}
			}
		}
	}

	detached := lb.b.cfg.DetachLoop(header)
	lb.b.clearProcessed(header)
	body, _, err := lb.b.build(header)
	lb.b.cfg.ReattachLoop(header, detached)
	if err != nil {
		return cfgview.NoBlock, err
	}

	if !bodyContains(body, loop.End) &&
		!lb.b.cfg.Block(loop.End).Contains(cfgview.FlagExcHandler) &&
		lb.b.markProcessed(loop.End) {
		body.AddBlock(loop.End)
	}
	lr.Body = body
	body.setParent(lr)

	if out == cfgview.NoBlock {
		next := cfgview.GetNextBlock(lb.b.cfg, loop.End)
		if !bodyContains(body, next) {
			out = next
		}
	}

	lb.insertContinue(loop)
	return out, nil
}

func bodyContains(body *SequenceRegion, block cfgview.BlockID) bool {
	for _, it := range body.Items {
		if it.IsBlock() && it.Block == block {
			return true
		}
	}
	return false
}

// insertLoopBreak walks forward from the exit edge's target following
// unique clean successors, maintaining an insertBlock cursor; once
// loopExit becomes reachable from the cursor's successor (the two exit
// paths have crossed), attempt to insert a BREAK edge instruction on
// that edge. If the walk runs off the graph without crossing, the break
// goes on the exit edge itself.
func (lb *loopBuilder) insertLoopBreak(loop *cfgview.Loop, loopExit cfgview.BlockID, edge cfgview.Edge) bool {
	if loopExit == edge.To && lb.b.cfg.Block(edge.From).Contains(cfgview.FlagCatchBlock) {
		others := lb.b.cfg.CleanSuccessors(edge.From)
		for _, o := range others {
			if o != edge.To && lb.b.cfg.Block(o).Contains(cfgview.FlagExcHandler) {
				return lb.insertBreakOn(loop, edge.From, edge.To)
			}
		}
	}

	insertBlock := cfgview.NoBlock
	visited := map[cfgview.BlockID]bool{}
	cur := edge.To
	for cur != cfgview.NoBlock && !visited[cur] {
		if insertBlock != cfgview.NoBlock && cfgview.IsPathExists(lb.b.cfg, cur, loopExit) {
			return lb.insertBreakOn(loop, insertBlock, cur)
		}
		visited[cur] = true
		insertBlock = cur
		cur = cfgview.GetNextBlock(lb.b.cfg, cur)
	}
	return lb.insertBreakOn(loop, edge.From, edge.To)
}

func (lb *loopBuilder) insertBreakOn(loop *cfgview.Loop, from, to cfgview.BlockID) bool {
	if !lb.canInsertBreak(from) {
		return false
	}
	insn := &cfgview.Insn{Type: cfgview.InsnBreak}
	lb.b.cfg.AddEdgeInsn(from, to, insn)
	lb.b.stack.AddExit(to)

	if lb.ambiguousParent(loop, from) != nil {
		lb.b.cfg.SetLoopLabel(from, to, loop)
	}
	return true
}

// ambiguousParent disambiguates which enclosing loop a break targets:
// only needed when insertBlock sits in two
// or more loops, the outermost of which has no parent of its own, and the
// crossing block is neither that outer loop's end nor one of its exits.
func (lb *loopBuilder) ambiguousParent(loop *cfgview.Loop, insertBlock cfgview.BlockID) *cfgview.Loop {
	owning := lb.b.cfg.GetAllLoopsForBlock(insertBlock)
	if len(owning) < 2 {
		return nil
	}
	outer := owning[len(owning)-1]
	if outer.Parent != nil {
		return nil
	}
	if insertBlock == outer.End || outer.IsExitNode(insertBlock) {
		return nil
	}
	return loop
}

// canInsertBreak rejects a candidate that returns, already ends in a
// BREAK, or whose forward path dead-ends, and one lying on any path from
// the method entry that passes through a SWITCH, which would make a bare
// break ambiguous with a switch's own break.
func (lb *loopBuilder) canInsertBreak(block cfgview.BlockID) bool {
	blk := lb.b.cfg.Block(block)
	if blk.Contains(cfgview.FlagReturn) {
		return false
	}
	if cfgview.CheckLastInsnType(lb.b.cfg, block, cfgview.InsnBreak) {
		return false
	}
	if lb.forwardPathReturns(block) {
		return false
	}
	for _, id := range cfgview.GetAllPathsBlocks(lb.b.cfg, lb.b.cfg.GetEnterBlock(), block) {
		if cfgview.CheckLastInsnType(lb.b.cfg, id, cfgview.InsnSwitch) {
			return false
		}
	}
	return true
}

// forwardPathReturns reports whether the unique clean-successor chain from
// block dead-ends at a return or throw, in which case control never
// rejoins the loop exit and a break would be unreachable.
func (lb *loopBuilder) forwardPathReturns(block cfgview.BlockID) bool {
	visited := map[cfgview.BlockID]bool{}
	cur := block
	for {
		next := cfgview.GetNextBlock(lb.b.cfg, cur)
		if next == cfgview.NoBlock || visited[next] {
			break
		}
		visited[next] = true
		cur = next
	}
	return lb.b.cfg.Block(cur).Contains(cfgview.FlagReturn) ||
		cfgview.CheckLastInsnType(lb.b.cfg, cur, cfgview.InsnReturn) ||
		cfgview.CheckLastInsnType(lb.b.cfg, cur, cfgview.InsnThrow)
}
