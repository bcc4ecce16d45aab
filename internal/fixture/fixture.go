// Package fixture reads a method's control-flow graph from a YAML
// description and assembles the cfgview.CFG the region builder consumes.
// Bytecode lifting and the dominator/loop/try-catch-splitter passes are
// not part of this module; this package stands
// in for them in tests and the CLI by reading their combined output from
// a single fixture file instead of running them.
package fixture

import (
	"fmt"
	"os"

	"github.com/restructure/restructure/internal/cfgview"
	"gopkg.in/yaml.v3"
)

// Fixture is the on-disk shape of a method's CFG, loops, and exception
// handlers, as a single YAML document.
type Fixture struct {
	Enter       int              `yaml:"enter"`
	Blocks      []BlockFixture   `yaml:"blocks"`
	Edges       []EdgeFixture    `yaml:"edges"`
	Loops       []LoopFixture    `yaml:"loops"`
	ExcHandlers []HandlerFixture `yaml:"exc_handlers"`
}

// BlockFixture describes one basic block.
type BlockFixture struct {
	ID           int           `yaml:"id"`
	Flags        []string      `yaml:"flags"`
	Instructions []InsnFixture `yaml:"instructions"`
}

// InsnFixture describes one instruction. Type is one of the InsnType
// names (PLAIN, IF, SWITCH, MONITOR_ENTER, MONITOR_EXIT, RETURN, BREAK,
// CONTINUE, THROW); Arg0 carries the monitor lock argument for
// MONITOR_ENTER/MONITOR_EXIT; Cases/Default are only meaningful for
// SWITCH.
type InsnFixture struct {
	Type          string        `yaml:"type"`
	Arg0          string        `yaml:"arg0,omitempty"`
	Cases         []CaseFixture `yaml:"cases,omitempty"`
	HasDefault    bool          `yaml:"has_default,omitempty"`
	DefaultTarget int           `yaml:"default_target,omitempty"`
}

// CaseFixture is one (key, target) pair of a SWITCH instruction.
type CaseFixture struct {
	Key    int64 `yaml:"key"`
	Target int   `yaml:"target"`
}

// EdgeFixture describes one CFG edge.
type EdgeFixture struct {
	From      int  `yaml:"from"`
	To        int  `yaml:"to"`
	Synthetic bool `yaml:"synthetic,omitempty"`
}

// LoopFixture describes one natural loop.
type LoopFixture struct {
	Start   int           `yaml:"start"`
	End     int           `yaml:"end"`
	Members []int         `yaml:"members"`
	Exits   []EdgeFixture `yaml:"exits"`
}

// HandlerFixture describes one exception handler.
type HandlerFixture struct {
	TryBlocks    []int `yaml:"try_blocks"`
	HandlerBlock int   `yaml:"handler_block"`
	IsFinally    bool  `yaml:"is_finally"`
	Splitters    []int `yaml:"splitters"`
}

var insnTypes = map[string]cfgview.InsnType{
	"PLAIN":         cfgview.InsnPlain,
	"IF":            cfgview.InsnIf,
	"SWITCH":        cfgview.InsnSwitch,
	"MONITOR_ENTER": cfgview.InsnMonitorEnter,
	"MONITOR_EXIT":  cfgview.InsnMonitorExit,
	"RETURN":        cfgview.InsnReturn,
	"BREAK":         cfgview.InsnBreak,
	"CONTINUE":      cfgview.InsnContinue,
	"THROW":         cfgview.InsnThrow,
}

var blockFlags = map[string]cfgview.BlockFlag{
	"LOOP_START":        cfgview.FlagLoopStart,
	"SYNTHETIC":         cfgview.FlagSynthetic,
	"RETURN":            cfgview.FlagReturn,
	"ADDED_TO_REGION":   cfgview.FlagAddedToRegion,
	"DONT_GENERATE":     cfgview.FlagDontGenerate,
	"REMOVE":            cfgview.FlagRemove,
	"FALL_THROUGH":      cfgview.FlagFallThrough,
	"INCONSISTENT_CODE": cfgview.FlagInconsistentCode,
	"CATCH_BLOCK":       cfgview.FlagCatchBlock,
	"EXC_HANDLER":       cfgview.FlagExcHandler,
}

// Load reads and parses a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}
	return &f, nil
}

// Build assembles a cfgview.CFG from a parsed fixture, computing its
// dominator tree fresh so dominance answers stay consistent with the
// edges actually listed.
func Build(f *Fixture) (*cfgview.CFG, error) {
	if len(f.Blocks) == 0 {
		return nil, fmt.Errorf("fixture: no blocks defined")
	}

	c := cfgview.New()

	// Blocks must be created in id order since AddBlock assigns ids
	// sequentially starting from 0.
	maxID := -1
	for _, bf := range f.Blocks {
		if bf.ID > maxID {
			maxID = bf.ID
		}
	}
	byFixtureID := make(map[int]*BlockFixture, len(f.Blocks))
	for i := range f.Blocks {
		byFixtureID[f.Blocks[i].ID] = &f.Blocks[i]
	}
	for id := 0; id <= maxID; id++ {
		bf, ok := byFixtureID[id]
		if !ok {
			return nil, fmt.Errorf("fixture: block id %d referenced by range but not defined", id)
		}
		blk := c.AddBlock()
		if blk.ID() != cfgview.BlockID(id) {
			return nil, fmt.Errorf("fixture: block ids must be dense starting at 0 (expected %d, AddBlock produced %d)", id, blk.ID())
		}
		for _, flagName := range bf.Flags {
			flag, ok := blockFlags[flagName]
			if !ok {
				return nil, fmt.Errorf("fixture: block %d: unknown flag %q", id, flagName)
			}
			blk.Add(flag)
		}
		for _, insnF := range bf.Instructions {
			insn, err := buildInsn(insnF)
			if err != nil {
				return nil, fmt.Errorf("fixture: block %d: %w", id, err)
			}
			blk.AddInsn(insn)
		}
	}
	if f.Enter < 0 || f.Enter > maxID {
		return nil, fmt.Errorf("fixture: enter block %d is out of range [0,%d]", f.Enter, maxID)
	}
	c.SetEntry(cfgview.BlockID(f.Enter))

	for _, e := range f.Edges {
		c.AddEdge(cfgview.BlockID(e.From), cfgview.BlockID(e.To), e.Synthetic)
	}

	dom := cfgview.BuildDomTree(c)
	c.SetDomTree(dom)

	for _, lf := range f.Loops {
		members := make([]cfgview.BlockID, len(lf.Members))
		for i, m := range lf.Members {
			members[i] = cfgview.BlockID(m)
		}
		loop := cfgview.NewLoop(cfgview.BlockID(lf.Start), cfgview.BlockID(lf.End), members)
		for _, ex := range lf.Exits {
			loop.AddExit(cfgview.BlockID(ex.From), cfgview.BlockID(ex.To))
		}
		c.AddLoop(loop)
	}

	for _, hf := range f.ExcHandlers {
		tryBlocks := make([]cfgview.BlockID, len(hf.TryBlocks))
		for i, t := range hf.TryBlocks {
			tryBlocks[i] = cfgview.BlockID(t)
		}
		splitters := make([]cfgview.BlockID, len(hf.Splitters))
		for i, s := range hf.Splitters {
			splitters[i] = cfgview.BlockID(s)
		}
		c.AddExcHandler(&cfgview.ExcHandler{
			TryBlocks:    tryBlocks,
			HandlerBlock: cfgview.BlockID(hf.HandlerBlock),
			IsFinally:    hf.IsFinally,
			Splitters:    splitters,
		})
	}

	return c, nil
}

func buildInsn(f InsnFixture) (*cfgview.Insn, error) {
	t, ok := insnTypes[f.Type]
	if !ok {
		return nil, fmt.Errorf("unknown instruction type %q", f.Type)
	}
	insn := &cfgview.Insn{Type: t, Arg0: f.Arg0, HasDefault: f.HasDefault, DefaultTarget: cfgview.BlockID(f.DefaultTarget)}
	for _, cf := range f.Cases {
		insn.Cases = append(insn.Cases, cfgview.SwitchCase{Key: cf.Key, Target: cfgview.BlockID(cf.Target)})
	}
	return insn, nil
}
