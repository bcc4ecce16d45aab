package condmerge

import "github.com/restructure/restructure/internal/cfgview"

// RestructureIf chooses and validates the then/else/out blocks for a
// (possibly merged) IfInfo. It fails (ok=false) when the two branches
// never reconverge on any forward path, which the if builder treats as
// a recognition failure and recovers from locally.
func RestructureIf(c *cfgview.CFG, block cfgview.BlockID, info *IfInfo) (ok bool) {
	if info.ThenBlock == info.ElseBlock {
		info.OutBlock = info.ThenBlock
		return true
	}

	out := cfgview.GetPathCross(c, info.ThenBlock, info.ElseBlock)
	if out == cfgview.NoBlock {
		return false
	}

	info.OutBlock = out
	return true
}

// HasRealElse reports whether info's else-branch is distinct from its
// out-block — i.e. whether there is an else-region to build at all.
func (info *IfInfo) HasRealElse() bool {
	return info.ElseBlock != info.OutBlock
}
