package region

import (
	"testing"

	"github.com/restructure/restructure/internal/cfgview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSynchronizedTwoExits: a MONITOR_ENTER
// block whose body branches before reaching one of two MONITOR_EXIT blocks
// on the same lock, both converging on a common successor. The branch
// inside the body (1 -> {2,4}) is what forces two distinct exit blocks in
// the first place, since a MONITOR_ENTER block itself has a single
// successor.
func TestSynchronizedTwoExits(t *testing.T) {
	c := cfgview.New()
	c.AddBlock() // 0 MONITOR_ENTER x
	c.AddBlock() // 1 IF
	c.AddBlock() // 2
	c.AddBlock() // 3 MONITOR_EXIT x
	c.AddBlock() // 4
	c.AddBlock() // 5 MONITOR_EXIT x
	c.AddBlock() // 6 out

	c.Block(0).AddInsn(&cfgview.Insn{Type: cfgview.InsnMonitorEnter, Arg0: "x"})
	c.Block(1).AddInsn(&cfgview.Insn{Type: cfgview.InsnIf})
	c.Block(3).AddInsn(&cfgview.Insn{Type: cfgview.InsnMonitorExit, Arg0: "x"})
	c.Block(5).AddInsn(&cfgview.Insn{Type: cfgview.InsnMonitorExit, Arg0: "x"})

	c.AddEdge(0, 1, false)
	c.AddEdge(1, 2, false)
	c.AddEdge(1, 4, false)
	c.AddEdge(2, 3, false)
	c.AddEdge(4, 5, false)
	c.AddEdge(3, 6, false)
	c.AddEdge(5, 6, false)
	c.SetDomTree(cfgview.BuildDomTree(c))

	b := NewBuilder(c, nil)
	root, err := b.Build()
	require.NoError(t, err)

	seq, ok := root.(*SequenceRegion)
	require.True(t, ok)

	var sr *SynchronizedRegion
	for _, it := range seq.Items {
		if s, ok := it.Sub.(*SynchronizedRegion); ok {
			sr = s
		}
	}
	require.NotNil(t, sr, "expected a SynchronizedRegion in %+v", seq.Items)
	assert.Equal(t, "x", sr.LockArg)
	require.Len(t, sr.MatchedExits, 2)

	for _, insn := range sr.MatchedExits {
		assert.True(t, insn.Contains(cfgview.FlagRemove), "matched exit instruction should be marked REMOVE")
		assert.True(t, insn.Contains(cfgview.FlagDontGenerate), "matched exit instruction should be marked DONT_GENERATE")
	}

	assert.True(t, c.Block(3).Contains(cfgview.FlagDontGenerate), "block 3 should be marked DONT_GENERATE")
	assert.True(t, c.Block(5).Contains(cfgview.FlagDontGenerate), "block 5 should be marked DONT_GENERATE")

	var ifr *IfRegion
	seqBody, ok := sr.Body.(*SequenceRegion)
	require.True(t, ok, "synchronized body should be a sequence")
	for _, it := range seqBody.Items {
		if f, ok := it.Sub.(*IfRegion); ok {
			ifr = f
		}
	}
	require.NotNil(t, ifr, "expected an IfRegion nested in the synchronized body for %+v", seqBody.Items)
}
