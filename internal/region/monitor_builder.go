package region

import "github.com/restructure/restructure/internal/cfgview"

// monitorBuilder recognizes synchronized sections.
type monitorBuilder struct {
	b *Builder
}

// build recognizes a synchronized section rooted at a MONITOR_ENTER block.
func (mb *monitorBuilder) build(seq *SequenceRegion, header cfgview.BlockID) (cfgview.BlockID, error) {
	enter := mb.b.cfg.Block(header).LastInsn()
	sr := &SynchronizedRegion{LockArg: enter.Arg0}
	seq.AddRegion(sr)

	exitBlocks, exitInsns := mb.findExits(header, enter.Arg0)
	sr.MatchedExits = exitInsns
	for _, eb := range exitBlocks {
		mb.b.cfg.Block(eb).Add(cfgview.FlagDontGenerate)
	}
	remover := cfgview.NewInsnRemover(mb.b.cfg)
	for _, insn := range exitInsns {
		insn.Add(cfgview.FlagDontGenerate)
		remover.UnbindInsn(insn)
	}

	out := mb.outBlock(exitBlocks)

	mb.b.stack.Push(sr)
	defer mb.b.stack.Pop()

	if out != cfgview.NoBlock {
		mb.b.stack.AddExit(out)
	} else {
		for _, eb := range exitBlocks {
			if !mb.terminatesPath(eb) {
				mb.b.stack.AddExit(eb)
			}
		}
	}

	bodyStart := cfgview.GetNextBlock(mb.b.cfg, header)
	body, _, err := mb.b.build(bodyStart)
	if err != nil {
		return cfgview.NoBlock, err
	}
	body.Items = append([]SeqItem{{Block: header}}, body.Items...)
	body.setParent(sr)
	sr.Body = body

	return out, nil
}

// findExits DFS-walks forward from header collecting every block whose
// instruction list contains a MONITOR_EXIT on the same lock argument.
func (mb *monitorBuilder) findExits(header cfgview.BlockID, arg0 string) ([]cfgview.BlockID, []*cfgview.Insn) {
	var blocks []cfgview.BlockID
	var insns []*cfgview.Insn
	visited := map[cfgview.BlockID]bool{header: true}

	var visit func(cfgview.BlockID)
	visit = func(id cfgview.BlockID) {
		found := false
		for _, insn := range mb.b.cfg.Block(id).Instructions() {
			if insn.Type == cfgview.InsnMonitorExit && insn.Arg0 == arg0 {
				blocks = append(blocks, id)
				insns = append(insns, insn)
				found = true
			}
		}
		if found {
			return
		}
		for _, s := range mb.b.cfg.CleanSuccessors(id) {
			if visited[s] {
				continue
			}
			visited[s] = true
			visit(s)
		}
	}
	for _, s := range mb.b.cfg.CleanSuccessors(header) {
		visited[s] = true
		visit(s)
	}
	return blocks, insns
}

// outBlock finds the region's continuation: the single exit's successor,
// or (when there are several) the first common point reachable from all
// of them.
func (mb *monitorBuilder) outBlock(exits []cfgview.BlockID) cfgview.BlockID {
	if len(exits) == 0 {
		return cfgview.NoBlock
	}
	if len(exits) == 1 {
		return cfgview.GetNextBlock(mb.b.cfg, exits[0])
	}
	common := cfgview.GetPathCross(mb.b.cfg, exits[0], exits[1])
	for _, e := range exits[2:] {
		if common == cfgview.NoBlock {
			break
		}
		common = cfgview.GetPathCross(mb.b.cfg, common, e)
	}
	return common
}

func (mb *monitorBuilder) terminatesPath(block cfgview.BlockID) bool {
	return mb.b.cfg.Block(block).Contains(cfgview.FlagReturn) ||
		cfgview.CheckLastInsnType(mb.b.cfg, block, cfgview.InsnThrow)
}
