package condmerge

import "github.com/restructure/restructure/internal/cfgview"

// IfInfo is the reconstructed shape of one if-statement: which header
// blocks contributed to its (possibly merged) condition, its then/else
// targets, and the out-block (post-dominator-ish merge point) where both
// branches rejoin.
type IfInfo struct {
	IfBlock cfgview.BlockID

	// MergedHeaders is every header block consumed into Condition,
	// including IfBlock itself, in merge order.
	MergedHeaders []cfgview.BlockID

	ThenBlock cfgview.BlockID
	ElseBlock cfgview.BlockID
	OutBlock  cfgview.BlockID

	Condition Condition
}

// hasHeader reports whether block has already been merged into info.
func (info *IfInfo) hasHeader(block cfgview.BlockID) bool {
	for _, h := range info.MergedHeaders {
		if h == block {
			return true
		}
	}
	return false
}

// MakeIfInfo builds the unmerged IfInfo for a single IF-terminated block:
// a bare Leaf condition with then/else set to its two successors in CFG
// edge order. Clean successors are preferred, but a loop-tail condition
// block's branch back to the header is a synthetic back-edge, so when
// filtering leaves fewer than two the raw successor list is used instead.
func MakeIfInfo(c *cfgview.CFG, header cfgview.BlockID) *IfInfo {
	succs := c.CleanSuccessors(header)
	if len(succs) != 2 {
		succs = c.Block(header).Successors()
	}
	if len(succs) != 2 {
		return nil
	}
	return &IfInfo{
		IfBlock:       header,
		MergedHeaders: []cfgview.BlockID{header},
		ThenBlock:     succs[0],
		ElseBlock:     succs[1],
		OutBlock:      cfgview.NoBlock,
		Condition:     &Leaf{Block: header},
	}
}

// Invert returns an inverted copy of the IfInfo (info itself is left
// unchanged): the condition is inverted and then/else are swapped, matching the common compiler convention of
// emitting the negated test when the "natural" then-branch is the fall-
// through block.
func (info *IfInfo) Invert() *IfInfo {
	return &IfInfo{
		IfBlock:       info.IfBlock,
		MergedHeaders: append([]cfgview.BlockID(nil), info.MergedHeaders...),
		ThenBlock:     info.ElseBlock,
		ElseBlock:     info.ThenBlock,
		OutBlock:      info.OutBlock,
		Condition:     info.Condition.Invert(),
	}
}
