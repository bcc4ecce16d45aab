package region

import (
	"testing"

	"github.com/restructure/restructure/internal/cfgview"
)

func finalizeCFG(c *cfgview.CFG) {
	c.SetDomTree(cfgview.BuildDomTree(c))
}

// TestSimpleWhile builds a while loop with its condition tested before
// the body.
func TestSimpleWhile(t *testing.T) {
	c := cfgview.New()
	c.AddBlock() // 0 entry
	head := c.AddBlock()
	c.AddBlock() // 2 body
	c.AddBlock() // 3 exit
	head.AddInsn(&cfgview.Insn{Type: cfgview.InsnIf})

	c.AddEdge(0, 1, false)
	c.AddEdge(1, 2, false)
	c.AddEdge(2, 1, true)
	c.AddEdge(1, 3, false)
	finalizeCFG(c)

	loop := cfgview.NewLoop(1, 2, []cfgview.BlockID{1, 2})
	loop.AddExit(1, 3)
	c.AddLoop(loop)

	b := NewBuilder(c, nil)
	root, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	seq, ok := root.(*SequenceRegion)
	if !ok {
		t.Fatalf("root is %T, want *SequenceRegion", root)
	}
	if len(seq.Items) < 2 {
		t.Fatalf("expected at least 2 items (block 0, loop region), got %d", len(seq.Items))
	}
	if !seq.Items[0].IsBlock() || seq.Items[0].Block != 0 {
		t.Errorf("first item should be block 0")
	}
	lr, ok := seq.Items[1].Sub.(*LoopRegion)
	if !ok {
		t.Fatalf("second item is %T, want *LoopRegion", seq.Items[1].Sub)
	}
	if lr.ConditionAtEnd {
		t.Errorf("expected a while (condition-at-start) shape, got condition-at-end")
	}
	if lr.Condition == nil {
		t.Errorf("expected a non-endless loop with a condition")
	}
}

// TestDoWhile builds a do-while: the loop tail carries the condition.
func TestDoWhile(t *testing.T) {
	c := cfgview.New()
	c.AddBlock() // 0
	c.AddBlock() // 1
	tail := c.AddBlock()
	c.AddBlock() // 3 exit
	tail.AddInsn(&cfgview.Insn{Type: cfgview.InsnIf})

	c.AddEdge(0, 1, false)
	c.AddEdge(1, 2, false)
	c.AddEdge(2, 1, true)
	c.AddEdge(2, 3, false)
	finalizeCFG(c)

	loop := cfgview.NewLoop(1, 2, []cfgview.BlockID{1, 2})
	loop.AddExit(2, 3)
	c.AddLoop(loop)

	b := NewBuilder(c, nil)
	root, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	seq := root.(*SequenceRegion)
	var lr *LoopRegion
	for _, it := range seq.Items {
		if l, ok := it.Sub.(*LoopRegion); ok {
			lr = l
		}
	}
	if lr == nil {
		t.Fatalf("no LoopRegion found in %+v", seq.Items)
	}
	if !lr.ConditionAtEnd {
		t.Errorf("expected a do-while (condition-at-end) shape")
	}
}

// TestIfElseJoining builds an if/else whose branches rejoin on a common
// block.
func TestIfElseJoining(t *testing.T) {
	c := cfgview.New()
	b0 := c.AddBlock()
	c.AddBlock() // 1
	c.AddBlock() // 2
	c.AddBlock() // 3
	b0.AddInsn(&cfgview.Insn{Type: cfgview.InsnIf})

	c.AddEdge(0, 1, false)
	c.AddEdge(0, 2, false)
	c.AddEdge(1, 3, false)
	c.AddEdge(2, 3, false)
	finalizeCFG(c)

	b := NewBuilder(c, nil)
	root, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	seq := root.(*SequenceRegion)
	if len(seq.Items) == 0 {
		t.Fatal("empty root sequence")
	}
	ifr, ok := seq.Items[0].Sub.(*IfRegion)
	if !ok {
		t.Fatalf("first item is %T, want *IfRegion", seq.Items[0].Sub)
	}
	if ifr.Then == nil || ifr.Else == nil {
		t.Errorf("expected both a then- and an else-region")
	}
}

// TestUniquenessInvariant checks that no block appears twice in the
// region tree.
func TestUniquenessInvariant(t *testing.T) {
	c := cfgview.New()
	b0 := c.AddBlock()
	c.AddBlock()
	c.AddBlock()
	c.AddBlock()
	b0.AddInsn(&cfgview.Insn{Type: cfgview.InsnIf})
	c.AddEdge(0, 1, false)
	c.AddEdge(0, 2, false)
	c.AddEdge(1, 3, false)
	c.AddEdge(2, 3, false)
	finalizeCFG(c)

	b := NewBuilder(c, nil)
	root, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	seen := map[cfgview.BlockID]int{}
	var walk func(Region)
	walk = func(r Region) {
		switch v := r.(type) {
		case *SequenceRegion:
			for _, it := range v.Items {
				if it.IsBlock() {
					seen[it.Block]++
				} else {
					walk(it.Sub)
				}
			}
		case *IfRegion:
			if v.Then != nil {
				walk(v.Then)
			}
			if v.Else != nil {
				walk(v.Else)
			}
		}
	}
	walk(root)
	for id, n := range seen {
		if n > 1 {
			t.Errorf("block %d appears %d times in the region tree", id, n)
		}
	}
}

// TestLoopAttributePreservation checks that a loop header keeps its
// Loop attribute after building.
func TestLoopAttributePreservation(t *testing.T) {
	c := cfgview.New()
	c.AddBlock()
	head := c.AddBlock()
	c.AddBlock()
	c.AddBlock()
	head.AddInsn(&cfgview.Insn{Type: cfgview.InsnIf})
	c.AddEdge(0, 1, false)
	c.AddEdge(1, 2, false)
	c.AddEdge(2, 1, true)
	c.AddEdge(1, 3, false)
	finalizeCFG(c)

	loop := cfgview.NewLoop(1, 2, []cfgview.BlockID{1, 2})
	loop.AddExit(1, 3)
	c.AddLoop(loop)

	b := NewBuilder(c, nil)
	if _, err := b.Build(); err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if _, ok := c.LoopAttr(1); !ok {
		t.Errorf("loop header 1 lost its Loop attribute after Build()")
	}
}

func TestOverflowError(t *testing.T) {
	c := cfgview.New()
	c.AddBlock()
	finalizeCFG(c)

	b := NewBuilder(c, nil)
	b.limit = -1 // force immediate overflow
	_, err := b.Build()
	if err == nil {
		t.Fatal("expected an OverflowError")
	}
	if _, ok := err.(*OverflowError); !ok {
		t.Errorf("err = %T, want *OverflowError", err)
	}
}
