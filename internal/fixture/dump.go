package fixture

import (
	"github.com/restructure/restructure/internal/region"
)

// Node is a serialization-friendly projection of a region.Region, used to
// dump a built region tree as YAML/JSON for the CLI and for golden tests,
// since region.Region itself holds unexported parent pointers and
// interface fields that don't round-trip through a plain marshaler.
type Node struct {
	Kind string `yaml:"kind" json:"kind"`

	// Sequence
	Items []Node `yaml:"items,omitempty" json:"items,omitempty"`
	Block *int   `yaml:"block,omitempty" json:"block,omitempty"`

	// Loop
	Body           *Node `yaml:"body,omitempty" json:"body,omitempty"`
	HasCondition   bool  `yaml:"has_condition,omitempty" json:"has_condition,omitempty"`
	ConditionAtEnd bool  `yaml:"condition_at_end,omitempty" json:"condition_at_end,omitempty"`

	// If
	Then *Node `yaml:"then,omitempty" json:"then,omitempty"`
	Else *Node `yaml:"else,omitempty" json:"else,omitempty"`

	// Switch
	Header  *int       `yaml:"header,omitempty" json:"header,omitempty"`
	Cases   []CaseNode `yaml:"cases,omitempty" json:"cases,omitempty"`
	Default *Node      `yaml:"default,omitempty" json:"default,omitempty"`

	// Synchronized
	LockArg string `yaml:"lock_arg,omitempty" json:"lock_arg,omitempty"`

	// Handler
	HandlerBlock *int `yaml:"handler_block,omitempty" json:"handler_block,omitempty"`
	Finally      bool `yaml:"finally,omitempty" json:"finally,omitempty"`
}

// CaseNode is one switch arm in dumped form.
type CaseNode struct {
	Keys        []int64 `yaml:"keys" json:"keys"`
	FallThrough bool    `yaml:"fall_through,omitempty" json:"fall_through,omitempty"`
	Body        Node    `yaml:"body" json:"body"`
}

// Dump converts a built region into its serializable form.
func Dump(r region.Region) Node {
	switch v := r.(type) {
	case *region.SequenceRegion:
		items := make([]Node, 0, len(v.Items))
		for _, it := range v.Items {
			if it.IsBlock() {
				id := int(it.Block)
				items = append(items, Node{Kind: "block", Block: &id})
				continue
			}
			items = append(items, Dump(it.Sub))
		}
		return Node{Kind: "sequence", Items: items}

	case *region.LoopRegion:
		body := Dump(v.Body)
		return Node{
			Kind:           "loop",
			Body:           &body,
			HasCondition:   v.Condition != nil,
			ConditionAtEnd: v.ConditionAtEnd,
		}

	case *region.IfRegion:
		then := Dump(v.Then)
		n := Node{Kind: "if", Then: &then}
		if v.Else != nil {
			els := Dump(v.Else)
			n.Else = &els
		}
		return n

	case *region.SwitchRegion:
		header := int(v.Header)
		n := Node{Kind: "switch", Header: &header}
		for pair := v.Cases.Oldest(); pair != nil; pair = pair.Next() {
			n.Cases = append(n.Cases, CaseNode{
				Keys:        pair.Value.Keys,
				FallThrough: pair.Value.FallThrough,
				Body:        Dump(pair.Value.Body),
			})
		}
		if v.Default != nil {
			def := Dump(v.Default)
			n.Default = &def
		}
		return n

	case *region.SynchronizedRegion:
		body := Dump(v.Body)
		return Node{Kind: "synchronized", LockArg: v.LockArg, Body: &body}

	case *region.HandlerRegion:
		body := Dump(v.Body)
		n := Node{Kind: "handler", Body: &body}
		if v.Handler != nil {
			hb := int(v.Handler.HandlerBlock)
			n.HandlerBlock = &hb
			n.Finally = v.Handler.IsFinally
		}
		return n

	default:
		return Node{Kind: "unknown"}
	}
}
