package region

import (
	"github.com/restructure/restructure/internal/cfgview"
	"github.com/restructure/restructure/internal/condmerge"
)

// ifBuilder recognizes if/then/else shapes.
type ifBuilder struct {
	b *Builder
}

// build recognizes an if/then/else rooted at block. handled is false when
// the if could not be recognized at all: the caller treats the block as
// an opaque plain block and continues.
func (ib *ifBuilder) build(seq *SequenceRegion, block cfgview.BlockID) (next cfgview.BlockID, handled bool, err error) {
	blk := ib.b.cfg.Block(block)

	if blk.Contains(cfgview.FlagAddedToRegion) {
		info := condmerge.MakeIfInfo(ib.b.cfg, block)
		if info == nil {
			return cfgview.NoBlock, false, nil
		}
		return info.ThenBlock, true, nil
	}

	info := condmerge.MakeIfInfo(ib.b.cfg, block)
	if info == nil {
		return cfgview.NoBlock, false, nil
	}

	if !condmerge.MergeNestedIfNodes(ib.b.cfg, info) {
		// No short-circuit chain found: compilers commonly emit the
		// negated test when the natural fall-through is the else branch,
		// so invert before attempting to restructure.
		info = info.Invert()
	}

	ok := condmerge.RestructureIf(ib.b.cfg, block, info)
	if !ok && len(info.MergedHeaders) > 1 {
		fresh := condmerge.MakeIfInfo(ib.b.cfg, block)
		if fresh != nil && condmerge.RestructureIf(ib.b.cfg, block, fresh) {
			info = fresh
			ok = true
		}
	}
	if !ok {
		return cfgview.NoBlock, false, nil
	}

	condmerge.ConfirmMerge(ib.b.cfg, info)

	ifRegion := &IfRegion{
		Condition:    info.Condition,
		HeaderBlocks: info.MergedHeaders,
	}
	seq.AddRegion(ifRegion)

	ib.b.stack.Push(ifRegion)
	ib.b.stack.AddExit(info.OutBlock)
	defer ib.b.stack.Pop()

	thenSeq, _, err := ib.b.build(info.ThenBlock)
	if err != nil {
		return cfgview.NoBlock, false, err
	}
	thenSeq.setParent(ifRegion)
	ifRegion.Then = thenSeq

	if info.HasRealElse() {
		elseSeq, _, err := ib.b.build(info.ElseBlock)
		if err != nil {
			return cfgview.NoBlock, false, err
		}
		elseSeq.setParent(ifRegion)
		ifRegion.Else = elseSeq
	} else if synth := ib.synthesizeElse(info); synth != nil {
		synth.setParent(ifRegion)
		ifRegion.Else = synth
	}

	return info.OutBlock, true, nil
}

// synthesizeElse builds a small else-region collecting header blocks whose
// edge into the out-block carries edge-instructions (BREAK/CONTINUE),
// so those effects are still emitted somewhere when there is no real
// else-branch.
func (ib *ifBuilder) synthesizeElse(info *condmerge.IfInfo) *SequenceRegion {
	var synth *SequenceRegion
	for _, h := range info.MergedHeaders {
		if len(ib.b.cfg.EdgeInsns(h, info.OutBlock)) == 0 {
			continue
		}
		if synth == nil {
			synth = NewSequenceRegion()
		}
		synth.AddBlock(h)
	}
	return synth
}
