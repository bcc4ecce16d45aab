// Package region builds the nested region tree from a cfgview.CFG and
// the condmerge condition-merging helper. Regions reference blocks by cfgview.BlockID
// rather than by pointer, so the (cyclic) CFG and the (tree-shaped) region
// output never hold references into each other.
package region

import (
	"github.com/restructure/restructure/internal/cfgview"
	"github.com/restructure/restructure/internal/condmerge"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Region is the common interface implemented by every region variant.
// Parent is used only for ownership/display, never for traversal.
type Region interface {
	Parent() Region
	setParent(Region)
	isRegion()
}

type base struct {
	parent Region
}

func (b *base) Parent() Region     { return b.parent }
func (b *base) setParent(p Region) { b.parent = p }
func (b *base) isRegion()          {}

// SeqItem is one element of a SequenceRegion: either a bare basic block or
// a nested sub-region.
type SeqItem struct {
	Block cfgview.BlockID // valid iff Sub == nil
	Sub   Region
}

// IsBlock reports whether this item is a plain block rather than a
// sub-region.
func (i SeqItem) IsBlock() bool { return i.Sub == nil }

// SequenceRegion is an ordered list of blocks and/or sub-regions, the
// output of one build/traverse run.
type SequenceRegion struct {
	base
	Items []SeqItem
}

// NewSequenceRegion creates an empty sequence.
func NewSequenceRegion() *SequenceRegion { return &SequenceRegion{} }

// AddBlock appends a plain block to the sequence.
func (s *SequenceRegion) AddBlock(id cfgview.BlockID) {
	s.Items = append(s.Items, SeqItem{Block: id})
}

// AddRegion appends a sub-region to the sequence, attaching s as its
// parent.
func (s *SequenceRegion) AddRegion(r Region) {
	r.setParent(s)
	s.Items = append(s.Items, SeqItem{Sub: r})
}

// IsEmpty reports whether the sequence has no items at all.
func (s *SequenceRegion) IsEmpty() bool { return len(s.Items) == 0 }

// LoopRegion is a recognized natural loop, either condition-bearing
// (while/do-while) or endless.
type LoopRegion struct {
	base
	Body Region

	// Condition is nil for an endless loop.
	Condition *condmerge.IfInfo
	// ConditionAtEnd is true for a do-while shape (condition tested after
	// the body), false for a while shape (tested before).
	ConditionAtEnd bool

	// PreCondition is an optional block evaluated once before the loop
	// proper, used by the condition-at-start construction when the
	// natural header does the "loop entry test" ahead of the body.
	PreCondition cfgview.BlockID

	Loop *cfgview.Loop
}

// IfRegion is a recognized if/then/else.
type IfRegion struct {
	base
	Condition    condmerge.Condition
	HeaderBlocks []cfgview.BlockID
	Then         Region
	Else         Region // nil when there is no real else-branch
}

// Case is one arm of a SwitchRegion.
type Case struct {
	// Keys are the switch-case constants that target this arm's block, in
	// first-seen order.
	Keys []int64
	Body Region
	// FallThrough is true when this case's body flows into the next case
	// in Cases' iteration order rather than exiting the switch.
	FallThrough bool
}

// SwitchRegion is a recognized switch, with cases kept in an
// insertion-ordered map so iteration order matches the source order the
// CFG walk produced.
type SwitchRegion struct {
	base
	Header  cfgview.BlockID
	Cases   *orderedmap.OrderedMap[cfgview.BlockID, *Case]
	Default Region // nil if the default arm is empty or absent
}

// NewSwitchRegion creates a switch region with an empty case map.
func NewSwitchRegion(header cfgview.BlockID) *SwitchRegion {
	return &SwitchRegion{Header: header, Cases: orderedmap.New[cfgview.BlockID, *Case]()}
}

// SynchronizedRegion is a recognized monitor-enter/exit pair.
type SynchronizedRegion struct {
	base
	LockArg string
	Body    Region
	// MatchedExits are every MONITOR_EXIT instruction this region claimed
	// and marked REMOVE.
	MatchedExits []*cfgview.Insn
}

// HandlerRegion wraps a built exception-handler body together with the
// ExcHandler metadata it was built for (the handler-attribute side of the
// output interface, carried on the region directly rather than in a
// separate attribute table).
type HandlerRegion struct {
	base
	Handler *cfgview.ExcHandler
	Body    Region
}
