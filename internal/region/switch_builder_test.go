package region

import (
	"testing"

	"github.com/restructure/restructure/internal/cfgview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSwitchSimpleGrouping builds a switch with no fallthrough: keys
// {1,2} target the same block, key 3 and the default target two other
// distinct blocks, all converging on a single out block.
func TestSwitchSimpleGrouping(t *testing.T) {
	c := cfgview.New()
	header := c.AddBlock() // 0
	c.AddBlock()           // 1 -> keys 1,2
	c.AddBlock()           // 2 -> key 3
	c.AddBlock()           // 3 -> default
	c.AddBlock()           // 4 out

	header.AddInsn(&cfgview.Insn{
		Type: cfgview.InsnSwitch,
		Cases: []cfgview.SwitchCase{
			{Key: 1, Target: 1},
			{Key: 2, Target: 1},
			{Key: 3, Target: 2},
		},
		HasDefault:    true,
		DefaultTarget: 3,
	})

	c.AddEdge(0, 1, false)
	c.AddEdge(0, 2, false)
	c.AddEdge(0, 3, false)
	c.AddEdge(1, 4, false)
	c.AddEdge(2, 4, false)
	c.AddEdge(3, 4, false)
	c.SetDomTree(cfgview.BuildDomTree(c))

	b := NewBuilder(c, nil)
	root, err := b.Build()
	require.NoError(t, err)

	seq := root.(*SequenceRegion)
	var sw *SwitchRegion
	for _, it := range seq.Items {
		if s, ok := it.Sub.(*SwitchRegion); ok {
			sw = s
		}
	}
	require.NotNil(t, sw, "expected a SwitchRegion in %+v", seq.Items)
	assert.Equal(t, 2, sw.Cases.Len())
	assert.NotNil(t, sw.Default, "expected a non-empty default arm")

	first, ok := sw.Cases.Get(cfgview.BlockID(1))
	require.True(t, ok)
	assert.ElementsMatch(t, []int64{1, 2}, first.Keys)
	assert.False(t, first.FallThrough)
}

// TestSwitchFallthrough builds header 0 with cases keys {1->A, 2->A,
// 3->B, default->C}, where B falls through into C (the default arm). The
// dominance-frontier shapes that make the fallthrough-chain heuristic
// fire are set directly via
// SetDomFrontier rather than relying on a general dominance computation to
// happen to produce them, since that heuristic only triggers on a
// specific frontier shape (a target whose own frontier has exactly two
// members, one of which transitively leads to the other).
func TestSwitchFallthrough(t *testing.T) {
	c := cfgview.New()
	header := c.AddBlock() // 0
	c.AddBlock()           // 1 = A (keys 1, 2)
	caseB := c.AddBlock()  // 2 = B (key 3), falls through to C
	caseC := c.AddBlock()  // 3 = C (default), the fallthrough target
	c.AddBlock()           // 4 = dummy chain partner for B's frontier
	c.AddBlock()           // 5 = out

	header.AddInsn(&cfgview.Insn{
		Type: cfgview.InsnSwitch,
		Cases: []cfgview.SwitchCase{
			{Key: 1, Target: 1},
			{Key: 2, Target: 1},
			{Key: 3, Target: 2},
		},
		HasDefault:    true,
		DefaultTarget: 3,
	})

	c.AddEdge(0, 1, false)
	c.AddEdge(0, 2, false)
	c.AddEdge(0, 3, false)
	c.AddEdge(1, 5, false)
	c.AddEdge(2, 3, false) // B falls through into C
	c.AddEdge(3, 5, false)

	c.SetDomFrontier(1, []cfgview.BlockID{5})
	c.SetDomFrontier(2, []cfgview.BlockID{caseC.ID(), 4})
	c.SetDomFrontier(4, []cfgview.BlockID{caseC.ID()})

	b := NewBuilder(c, nil)
	root, err := b.Build()
	require.NoError(t, err)

	seq := root.(*SequenceRegion)
	var sw *SwitchRegion
	for _, it := range seq.Items {
		if s, ok := it.Sub.(*SwitchRegion); ok {
			sw = s
		}
	}
	require.NotNil(t, sw, "expected a SwitchRegion in %+v", seq.Items)

	bCase, ok := sw.Cases.Get(caseB.ID())
	require.True(t, ok, "expected case B (block %d) in %+v", caseB.ID(), sw.Cases)
	assert.True(t, bCase.FallThrough, "case B should be flagged FALL_THROUGH")

	require.NotNil(t, sw.Default, "C is the default arm and must still be built")
	assert.True(t, c.Block(caseC.ID()).Contains(cfgview.FlagFallThrough),
		"the fallthrough target block itself should carry FALL_THROUGH")
}
