// Package condmerge builds and merges the boolean condition trees attached
// to an IF-terminated block. The region builder treats this package as a
// black-box helper: it only calls
// MakeIfInfo/MergeNestedIfNodes/RestructureIf and never inspects a
// Condition's internals itself.
package condmerge

import "github.com/restructure/restructure/internal/cfgview"

// Condition is a short-circuit boolean expression tree reconstructed from a
// chain of IF-terminated blocks. A bare Leaf is an unmerged single
// condition; And/Or nodes are produced by MergeNestedIfNodes when a
// compiler has lowered `a && b` or `a || b` into two chained branches.
type Condition interface {
	// Invert returns the logical negation of this condition, folding the
	// negation inward (De Morgan) rather than wrapping in a Not node,
	// mirroring how a decompiler prefers `a >= b` over `!(a < b)`.
	Invert() Condition
	isCondition()
}

// Leaf is an atomic condition: the IF block whose test this leaf
// represents, and whether the leaf's sense is already negated relative to
// that block's true branch.
type Leaf struct {
	Block   cfgview.BlockID
	Negated bool
}

func (l *Leaf) isCondition() {}

// Invert flips the leaf's sense in place (conceptually) by returning a
// copy with Negated toggled.
func (l *Leaf) Invert() Condition {
	return &Leaf{Block: l.Block, Negated: !l.Negated}
}

// And is `Left && Right` in source order (Left evaluated first).
type And struct {
	Left, Right Condition
}

func (a *And) isCondition() {}

// Invert applies De Morgan's law: !(a && b) == !a || !b.
func (a *And) Invert() Condition {
	return &Or{Left: a.Left.Invert(), Right: a.Right.Invert()}
}

// Or is `Left || Right` in source order.
type Or struct {
	Left, Right Condition
}

func (o *Or) isCondition() {}

// Invert applies De Morgan's law: !(a || b) == !a && !b.
func (o *Or) Invert() Condition {
	return &And{Left: o.Left.Invert(), Right: o.Right.Invert()}
}
