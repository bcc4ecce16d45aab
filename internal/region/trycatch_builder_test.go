package region

import (
	"testing"

	"github.com/restructure/restructure/internal/cfgview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTryCatchHandlerAttached builds a method with one try block and one
// catch handler whose body rejoins the normal flow:
//
//	0 -> 1(try) -> 2 -> 3(return)
//	handler: 4 -> 5 -> 3
//
// The handler region must be appended to the root after the main flow,
// carrying its ExcHandler metadata, and must stop at the computed exit
// (block 3) instead of re-claiming it.
func TestTryCatchHandlerAttached(t *testing.T) {
	c := cfgview.New()
	c.AddBlock() // 0 entry (splitter)
	c.AddBlock() // 1 try body
	c.AddBlock() // 2
	ret := c.AddBlock()
	c.AddBlock() // 4 handler
	c.AddBlock() // 5
	ret.AddInsn(&cfgview.Insn{Type: cfgview.InsnReturn})

	c.AddEdge(0, 1, false)
	c.AddEdge(1, 2, false)
	c.AddEdge(2, 3, false)
	c.AddEdge(4, 5, false)
	c.AddEdge(5, 3, false)
	c.SetDomTree(cfgview.BuildDomTree(c))

	h := &cfgview.ExcHandler{
		TryBlocks:    []cfgview.BlockID{1},
		HandlerBlock: 4,
		Splitters:    []cfgview.BlockID{0},
	}
	c.AddExcHandler(h)

	b := NewBuilder(c, nil)
	root, err := b.Build()
	require.NoError(t, err)

	seq, ok := root.(*SequenceRegion)
	require.True(t, ok)

	var hr *HandlerRegion
	for _, it := range seq.Items {
		if r, ok := it.Sub.(*HandlerRegion); ok {
			hr = r
		}
	}
	require.NotNil(t, hr, "expected a HandlerRegion appended to the root, got %+v", seq.Items)
	assert.Same(t, h, hr.Handler)

	body, ok := hr.Body.(*SequenceRegion)
	require.True(t, ok)
	var bodyBlocks []cfgview.BlockID
	for _, it := range body.Items {
		if it.IsBlock() {
			bodyBlocks = append(bodyBlocks, it.Block)
		}
	}
	assert.Equal(t, []cfgview.BlockID{4, 5}, bodyBlocks)

	// The join block belongs to the main flow, not the handler body.
	seen := 0
	for _, it := range seq.Items {
		if it.IsBlock() && it.Block == 3 {
			seen++
		}
	}
	assert.Equal(t, 1, seen, "return block must appear exactly once, in the main flow")
}

// TestTryCatchFinallyUsesSplitterDominator runs the finally path of
// handler processing, where the splitter block (0) rather than the handler
// block is the dominator whose frontier seeds the exit hints. Neither
// block has a non-empty dominance frontier in this graph, so the test
// checks the resulting handler region (IsFinally set, body of block 3
// alone), not the choice of dominator itself.
func TestTryCatchFinallyUsesSplitterDominator(t *testing.T) {
	c := cfgview.New()
	c.AddBlock() // 0 entry (splitter)
	c.AddBlock() // 1 try body
	c.AddBlock() // 2 return
	c.AddBlock() // 3 finally handler
	c.Block(2).AddInsn(&cfgview.Insn{Type: cfgview.InsnReturn})
	c.Block(3).AddInsn(&cfgview.Insn{Type: cfgview.InsnThrow})

	c.AddEdge(0, 1, false)
	c.AddEdge(1, 2, false)
	c.SetDomTree(cfgview.BuildDomTree(c))

	h := &cfgview.ExcHandler{
		TryBlocks:    []cfgview.BlockID{1},
		HandlerBlock: 3,
		IsFinally:    true,
		Splitters:    []cfgview.BlockID{0},
	}
	c.AddExcHandler(h)

	b := NewBuilder(c, nil)
	root, err := b.Build()
	require.NoError(t, err)

	seq := root.(*SequenceRegion)
	var hr *HandlerRegion
	for _, it := range seq.Items {
		if r, ok := it.Sub.(*HandlerRegion); ok {
			hr = r
		}
	}
	require.NotNil(t, hr)
	assert.True(t, hr.Handler.IsFinally)

	body := hr.Body.(*SequenceRegion)
	require.Len(t, body.Items, 1)
	assert.Equal(t, cfgview.BlockID(3), body.Items[0].Block)
}

// TestTryCatchMalformedHandlerSkipped: a handler without a handler
// block is recorded as a warning and skipped, not fatal.
func TestTryCatchMalformedHandlerSkipped(t *testing.T) {
	c := cfgview.New()
	c.AddBlock() // 0
	c.AddBlock() // 1
	c.Block(1).AddInsn(&cfgview.Insn{Type: cfgview.InsnReturn})
	c.AddEdge(0, 1, false)
	c.SetDomTree(cfgview.BuildDomTree(c))

	c.AddExcHandler(&cfgview.ExcHandler{
		TryBlocks:    []cfgview.BlockID{0},
		HandlerBlock: cfgview.NoBlock,
	})

	b := NewBuilder(c, nil)
	_, err := b.Build()
	require.NoError(t, err)

	require.NotEmpty(t, c.Warnings())
	assert.Contains(t, c.Warnings()[0], "malformed")
}
