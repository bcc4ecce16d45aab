package condmerge

import "github.com/restructure/restructure/internal/cfgview"

// nestedStep is one recognized short-circuit absorption: the chained IF
// block to consume, the shape it forms with the condition so far, the
// sense of its leaf relative to its first successor, and the combined
// branch targets after absorption.
type nestedStep struct {
	header  cfgview.BlockID
	isAnd   bool
	negated bool
	newThen cfgview.BlockID
	newElse cfgview.BlockID
}

// SearchNestedIf looks for a single chained IF block hanging off info's
// then- or else-branch that, together with info's own condition, forms a
// short-circuited `&&` or `||`. It returns the candidate header block and
// whether an `&&` (vs `||`) shape was recognized.
//
// AND shape: the then-branch is itself a lone IF sharing info's else
// target — both tests must pass to reach the inner then. OR shape: the
// mirror image off the else-branch, sharing info's then target.
func SearchNestedIf(c *cfgview.CFG, info *IfInfo) (candidate cfgview.BlockID, isAnd bool, ok bool) {
	if step, found := searchNestedStep(c, info); found {
		return step.header, step.isAnd, true
	}
	return cfgview.NoBlock, false, false
}

func searchNestedStep(c *cfgview.CFG, info *IfInfo) (nestedStep, bool) {
	if step, ok := tryAndShape(c, info); ok {
		return step, true
	}
	if step, ok := tryOrShape(c, info); ok {
		return step, true
	}
	return nestedStep{}, false
}

// tryAndShape checks whether info.ThenBlock is a lone IF block (its sole
// predecessor being one of info's merged headers) with one successor equal
// to info's else target. Then `outer && inner` holds: the shared else is
// the short-circuit target both tests jump to on failure.
func tryAndShape(c *cfgview.CFG, info *IfInfo) (nestedStep, bool) {
	nested := info.ThenBlock
	if !isLoneIf(c, info, nested) {
		return nestedStep{}, false
	}
	succs := c.CleanSuccessors(nested)
	if len(succs) != 2 {
		return nestedStep{}, false
	}
	nestedThen, nestedElse := succs[0], succs[1]
	if nestedElse == info.ElseBlock {
		return nestedStep{header: nested, isAnd: true, newThen: nestedThen, newElse: info.ElseBlock}, true
	}
	if nestedThen == info.ElseBlock {
		// Inner test emitted with inverted sense.
		return nestedStep{header: nested, isAnd: true, negated: true, newThen: nestedElse, newElse: info.ElseBlock}, true
	}
	return nestedStep{}, false
}

// tryOrShape checks whether info.ElseBlock is a lone IF block with one
// successor equal to info's then target, giving `outer || inner`.
func tryOrShape(c *cfgview.CFG, info *IfInfo) (nestedStep, bool) {
	nested := info.ElseBlock
	if !isLoneIf(c, info, nested) {
		return nestedStep{}, false
	}
	succs := c.CleanSuccessors(nested)
	if len(succs) != 2 {
		return nestedStep{}, false
	}
	nestedThen, nestedElse := succs[0], succs[1]
	if nestedThen == info.ThenBlock {
		return nestedStep{header: nested, newThen: info.ThenBlock, newElse: nestedElse}, true
	}
	if nestedElse == info.ThenBlock {
		return nestedStep{header: nested, negated: true, newThen: info.ThenBlock, newElse: nestedThen}, true
	}
	return nestedStep{}, false
}

// isLoneIf reports whether block ends in IF and is reachable only through
// the condition chain built so far, so absorbing it cannot lose an
// incoming edge.
func isLoneIf(c *cfgview.CFG, info *IfInfo, block cfgview.BlockID) bool {
	if block == cfgview.NoBlock || info.hasHeader(block) {
		return false
	}
	if !cfgview.CheckLastInsnType(c, block, cfgview.InsnIf) {
		return false
	}
	if len(c.Block(block).Instructions()) > 1 {
		// The block computes something besides the test; absorbing it
		// into a condition expression would drop those instructions.
		return false
	}
	preds := c.Block(block).Predecessors()
	if len(preds) != 1 {
		return false
	}
	return info.hasHeader(preds[0])
}

// MergeNestedIfNodes repeatedly absorbs chained IF blocks into info's
// condition tree until no more short-circuit shapes are found, updating
// then/else targets in place. It reports whether at least one merge
// happened.
func MergeNestedIfNodes(c *cfgview.CFG, info *IfInfo) bool {
	merged := false
	for {
		step, ok := searchNestedStep(c, info)
		if !ok {
			break
		}
		var leaf Condition = &Leaf{Block: step.header, Negated: step.negated}
		if step.isAnd {
			info.Condition = &And{Left: info.Condition, Right: leaf}
		} else {
			info.Condition = &Or{Left: info.Condition, Right: leaf}
		}
		info.ThenBlock = step.newThen
		info.ElseBlock = step.newElse
		info.MergedHeaders = append(info.MergedHeaders, step.header)
		merged = true
	}
	return merged
}

// ConfirmMerge marks every merged header block (other than info's primary
// IfBlock, which the If Builder marks itself once the whole IfRegion is
// constructed) as ADDED_TO_REGION so later traversal does not re-enter them
// as independent blocks.
func ConfirmMerge(c *cfgview.CFG, info *IfInfo) {
	for _, h := range info.MergedHeaders {
		if h == info.IfBlock {
			continue
		}
		c.Block(h).Add(cfgview.FlagAddedToRegion)
	}
}
