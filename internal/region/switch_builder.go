package region

import (
	"github.com/restructure/restructure/internal/cfgview"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// switchBuilder recognizes switch shapes. Case bodies and the blocksMap
// intermediate are kept in insertion-ordered maps
// (github.com/wk8/go-ordered-map/v2) so iteration order matches the
// source order the CFG walk produced.
type switchBuilder struct {
	b *Builder
}

func (sb *switchBuilder) build(seq *SequenceRegion, header cfgview.BlockID) (cfgview.BlockID, error) {
	insn := sb.b.cfg.Block(header).LastInsn()

	blocksMap := orderedmap.New[cfgview.BlockID, []int64]()
	for _, c := range insn.Cases {
		keys, ok := blocksMap.Get(c.Target)
		if !ok {
			blocksMap.Set(c.Target, []int64{c.Key})
		} else {
			blocksMap.Set(c.Target, append(keys, c.Key))
		}
	}
	defaultTarget := cfgview.NoBlock
	if insn.HasDefault {
		defaultTarget = insn.DefaultTarget
		blocksMap.Delete(defaultTarget)
	}

	fallthroughNext := sb.detectFallthrough(header, blocksMap)
	candidates := sb.outCandidates(header, blocksMap, fallthroughNext)
	sb.reorderForFallthrough(blocksMap, fallthroughNext)

	out := sb.narrowCandidates(candidates, header)

	sw := NewSwitchRegion(header)
	seq.AddRegion(sw)

	sb.b.stack.Push(sw)
	defer sb.b.stack.Pop()
	if out != cfgview.NoBlock {
		sb.b.stack.AddExit(out)
	}

	if loop := sb.b.cfg.GetLoopForBlock(header); loop != nil && out != loop.End {
		sb.insertSwitchContinue(header, loop, out)
	}

	if defaultTarget != cfgview.NoBlock && !sb.b.stack.ContainsExit(defaultTarget) {
		body, _, err := sb.b.build(defaultTarget)
		if err != nil {
			return cfgview.NoBlock, err
		}
		if !body.IsEmpty() {
			body.setParent(sw)
			sw.Default = body
		}
	}

	for pair := blocksMap.Oldest(); pair != nil; pair = pair.Next() {
		target, keys := pair.Key, pair.Value
		if sb.b.stack.ContainsExit(target) {
			sw.Cases.Set(target, &Case{Keys: keys})
			continue
		}

		next, hasNext := fallthroughNext[target]
		if hasNext {
			sb.b.stack.AddExit(next)
		}
		body, _, err := sb.b.build(target)
		if hasNext {
			sb.b.stack.RemoveExit(next)
		}
		if err != nil {
			return cfgview.NoBlock, err
		}
		body.setParent(sw)

		c := &Case{Keys: keys, Body: body}
		if hasNext {
			c.FallThrough = true
			sb.b.cfg.Block(next).Add(cfgview.FlagFallThrough)
		}
		sw.Cases.Set(target, c)
	}

	return out, nil
}

// detectFallthrough finds cases that flow into another case rather than
// exiting the switch: a case target s (the default target is not examined)
// whose dominance frontier is exactly {a, b}, with one of the two in the
// other's frontier, falls into the one contained in the other's frontier.
func (sb *switchBuilder) detectFallthrough(header cfgview.BlockID, blocksMap *orderedmap.OrderedMap[cfgview.BlockID, []int64]) map[cfgview.BlockID]cfgview.BlockID {
	next := make(map[cfgview.BlockID]cfgview.BlockID)
	for pair := blocksMap.Oldest(); pair != nil; pair = pair.Next() {
		s := pair.Key
		frontier := sb.b.cfg.DomFrontier(s)
		if len(frontier) > 2 {
			sb.b.logger.Warnf("switch case target %d has %d dominance-frontier blocks", s, len(frontier))
		}
		if len(frontier) != 2 {
			continue
		}
		var a, b cfgview.BlockID
		i := 0
		for f := range frontier {
			if i == 0 {
				a = f
			} else {
				b = f
			}
			i++
		}
		if _, ok := sb.b.cfg.DomFrontier(a)[b]; ok {
			next[s] = b
		} else if _, ok := sb.b.cfg.DomFrontier(b)[a]; ok {
			next[s] = a
		}
	}
	return next
}

// outCandidates assembles the initial out-block candidate set from the
// header's and the case targets' dominance frontiers.
func (sb *switchBuilder) outCandidates(header cfgview.BlockID, blocksMap *orderedmap.OrderedMap[cfgview.BlockID, []int64], fallthroughNext map[cfgview.BlockID]cfgview.BlockID) map[cfgview.BlockID]struct{} {
	candidates := make(map[cfgview.BlockID]struct{})
	for f := range sb.b.cfg.DomFrontier(header) {
		candidates[f] = struct{}{}
	}
	for pair := blocksMap.Oldest(); pair != nil; pair = pair.Next() {
		if _, isFT := fallthroughNext[pair.Key]; isFT {
			continue
		}
		for f := range sb.b.cfg.DomFrontier(pair.Key) {
			candidates[f] = struct{}{}
		}
	}
	delete(candidates, header)
	if loop := sb.b.cfg.GetLoopForBlock(header); loop != nil {
		delete(candidates, loop.Start)
	}
	return candidates
}

// reorderForFallthrough: if the insertion order doesn't already place
// each fallthrough source immediately before its target, reorder; if
// that isn't possible, flag INCONSISTENT_CODE.
func (sb *switchBuilder) reorderForFallthrough(blocksMap *orderedmap.OrderedMap[cfgview.BlockID, []int64], next map[cfgview.BlockID]cfgview.BlockID) {
	if len(next) == 0 {
		return
	}
	order := make([]cfgview.BlockID, 0, blocksMap.Len())
	for pair := blocksMap.Oldest(); pair != nil; pair = pair.Next() {
		order = append(order, pair.Key)
	}
	pos := make(map[cfgview.BlockID]int, len(order))
	for i, t := range order {
		pos[t] = i
	}

	// A fallthrough into a block that is not itself a case (e.g. the
	// default target, emitted separately) imposes no ordering constraint
	// among the cases.
	consistent := true
	for from, to := range next {
		ti, tok := pos[to]
		if !tok {
			continue
		}
		fi, fok := pos[from]
		if !fok || ti != fi+1 {
			consistent = false
			break
		}
	}
	if consistent {
		return
	}

	reordered := make([]cfgview.BlockID, 0, len(order))
	placed := make(map[cfgview.BlockID]bool)
	for _, t := range order {
		if placed[t] {
			continue
		}
		reordered = append(reordered, t)
		placed[t] = true
		for to, ok := next[t]; ok && !placed[to]; to, ok = next[to] {
			if _, isCase := pos[to]; !isCase {
				break
			}
			reordered = append(reordered, to)
			placed[to] = true
		}
	}
	if len(reordered) != len(order) {
		sb.b.cfg.Add(cfgview.FlagInconsistentCode)
		return
	}

	values := make(map[cfgview.BlockID][]int64, len(order))
	for pair := blocksMap.Oldest(); pair != nil; pair = pair.Next() {
		values[pair.Key] = pair.Value
	}
	for _, t := range order {
		blocksMap.Delete(t)
	}
	for _, t := range reordered {
		blocksMap.Set(t, values[t])
	}
}

// narrowCandidates strips and subtracts candidates until at most one
// out block remains.
func (sb *switchBuilder) narrowCandidates(candidates map[cfgview.BlockID]struct{}, header cfgview.BlockID) cfgview.BlockID {
	if len(candidates) > 1 {
		for c := range candidates {
			if sb.b.cfg.Block(c).Contains(cfgview.FlagExcHandler) {
				delete(candidates, c)
			}
		}
	}
	if len(candidates) > 1 {
		for c := range candidates {
			for _, s := range sb.b.cfg.CleanSuccessors(c) {
				delete(candidates, s)
			}
			for f := range sb.b.cfg.DomFrontier(c) {
				delete(candidates, f)
			}
			if sb.b.cfg.Block(c).Contains(cfgview.FlagLoopStart) {
				delete(candidates, c)
			}
		}
	}
	if loop := sb.b.cfg.GetLoopForBlock(header); loop != nil && len(candidates) > 1 {
		delete(candidates, loop.End)
	}

	if len(candidates) == 0 {
		for _, m := range sb.b.cfg.CleanSuccessors(header) {
			reachableFromAll := true
			for _, other := range sb.b.cfg.CleanSuccessors(header) {
				if other == m {
					continue
				}
				if !cfgview.IsPathExists(sb.b.cfg, other, m) {
					reachableFromAll = false
					break
				}
			}
			if reachableFromAll {
				return m
			}
		}
		return cfgview.NoBlock
	}

	if len(candidates) == 1 {
		for c := range candidates {
			return c
		}
	}

	if sb.b.cfg.GetLoopForBlock(header) == nil {
		sb.b.cfg.AddWarn("switch has multiple out-block candidates outside a loop; proceeding without one")
	}
	return cfgview.NoBlock
}

// insertSwitchContinue makes a case's jump back to the enclosing loop
// end explicit when the switch's own flow would otherwise swallow it.
func (sb *switchBuilder) insertSwitchContinue(header cfgview.BlockID, loop *cfgview.Loop, out cfgview.BlockID) {
	for _, s := range sb.b.cfg.CleanSuccessors(header) {
		if _, ok := sb.b.cfg.DomFrontier(s)[loop.End]; !ok {
			continue
		}
		if s == out {
			continue
		}
		for _, pred := range sb.b.cfg.Block(loop.End).Predecessors() {
			pb := sb.b.cfg.Block(pred)
			if pb.Contains(cfgview.FlagSynthetic) && sb.b.cfg.IsDominator(s, pred) {
				pb.AddInsn(&cfgview.Insn{Type: cfgview.InsnContinue})
				break
			}
		}
	}
}
