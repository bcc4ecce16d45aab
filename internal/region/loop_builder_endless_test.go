package region

import (
	"testing"

	"github.com/restructure/restructure/internal/cfgview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEndlessLoopWithBreak: blocks
// {0,...,4} with edges 0->1, 1->2, 2->1, 1->3, 3->4 but no block in the
// loop bearing an IF, so no condition header qualifies and the loop falls
// back to makeEndlessLoop. insertLoopBreak walks forward from the exit
// target 3 (to 3, then 4) without reaching a block from which 3 is
// reachable again, so the two exit paths never cross and the BREAK falls
// back to the exit edge itself (1->3).
func TestEndlessLoopWithBreak(t *testing.T) {
	c := cfgview.New()
	c.AddBlock() // 0 entry
	c.AddBlock() // 1 head, no IF terminator
	c.AddBlock() // 2 body
	c.AddBlock() // 3 exit
	c.AddBlock() // 4 after the loop

	c.AddEdge(0, 1, false)
	c.AddEdge(1, 2, false)
	c.AddEdge(2, 1, true)
	c.AddEdge(1, 3, false)
	c.AddEdge(3, 4, false)
	c.SetDomTree(cfgview.BuildDomTree(c))

	loop := cfgview.NewLoop(1, 2, []cfgview.BlockID{1, 2})
	loop.AddExit(1, 3)
	c.AddLoop(loop)

	b := NewBuilder(c, nil)
	root, err := b.Build()
	require.NoError(t, err)

	seq, ok := root.(*SequenceRegion)
	require.True(t, ok)

	var lr *LoopRegion
	for _, it := range seq.Items {
		if l, ok := it.Sub.(*LoopRegion); ok {
			lr = l
		}
	}
	require.NotNil(t, lr, "expected a LoopRegion in %+v", seq.Items)
	assert.Nil(t, lr.Condition, "expected an endless loop (no condition)")

	var foundBreak bool
	for _, e := range []cfgview.Edge{{From: 1, To: 3}, {From: 3, To: 4}} {
		for _, insn := range c.EdgeInsns(e.From, e.To) {
			if insn.Type == cfgview.InsnBreak {
				foundBreak = true
			}
		}
	}
	assert.True(t, foundBreak, "expected a synthesized BREAK edge instruction somewhere on the loop's single exit path")
}
