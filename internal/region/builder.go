package region

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/restructure/restructure/internal/cfgview"
)

// Logger receives best-effort builder diagnostics, separately from
// cfgview.CFG.AddWarn (which records diagnostics the CFG itself keeps).
// Defaults to a no-op.
type Logger interface {
	Warnf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Warnf(string, ...interface{}) {}

const overflowMultiplier = 100

// Builder walks a cfgview.CFG and produces its region tree. One Builder
// handles exactly one method; create a fresh Builder per method.
type Builder struct {
	cfg    *cfgview.CFG
	stack  *Stack
	logger Logger

	processed    *bitset.BitSet
	regionsCount int
	limit        int

	ifb     *ifBuilder
	loopb   *loopBuilder
	switchb *switchBuilder
	monb    *monitorBuilder
	tryb    *tryCatchBuilder
}

// NewBuilder creates a Builder for cfg using the default overflow
// multiplier. A nil logger is replaced with a no-op one.
func NewBuilder(cfg *cfgview.CFG, logger Logger) *Builder {
	return NewBuilderWithLimit(cfg, logger, overflowMultiplier)
}

// NewBuilderWithLimit is NewBuilder with an explicit overflow multiplier,
// letting callers plug in internal/config's BuilderConfig.OverflowMultiplier
// instead of the built-in default.
func NewBuilderWithLimit(cfg *cfgview.CFG, logger Logger, multiplier int) *Builder {
	if logger == nil {
		logger = noopLogger{}
	}
	if multiplier <= 0 {
		multiplier = overflowMultiplier
	}
	n := len(cfg.GetBasicBlocks())
	b := &Builder{
		cfg:       cfg,
		stack:     NewStack(),
		logger:    logger,
		processed: bitset.New(uint(n)),
		limit:     n * multiplier,
	}
	b.ifb = &ifBuilder{b: b}
	b.loopb = &loopBuilder{b: b}
	b.switchb = &switchBuilder{b: b}
	b.monb = &monitorBuilder{b: b}
	b.tryb = &tryCatchBuilder{b: b}
	return b
}

// Build produces the method's root region, mutating the CFG's flags and
// edge-instruction table along the way, then attaches try/catch handler
// regions and installs the result via CFG.SetRegion.
func (b *Builder) Build() (Region, error) {
	root, _, err := b.build(b.cfg.GetEnterBlock())
	if err != nil {
		return nil, err
	}

	if err := b.tryb.attach(root); err != nil {
		return nil, err
	}

	b.cfg.SetRegion(root)
	return root, nil
}

// markProcessed marks a block processed and returns false if it already
// was (a would-be re-entry, refused so no block lands in two regions).
func (b *Builder) markProcessed(block cfgview.BlockID) bool {
	if b.processed.Test(uint(block)) {
		return false
	}
	b.processed.Set(uint(block))
	return true
}

// clearProcessed is used by the loop builder to let a header legitimately
// re-appear during its own body's recursion.
func (b *Builder) clearProcessed(block cfgview.BlockID) {
	b.processed.Clear(uint(block))
}

// newRegion accounts one more region against the overflow limit.
func (b *Builder) newRegion() error {
	b.regionsCount++
	if b.regionsCount > b.limit {
		return &OverflowError{BlocksCount: len(b.cfg.GetBasicBlocks()), Limit: b.limit, Created: b.regionsCount}
	}
	return nil
}

// build produces a SequenceRegion by
// repeatedly calling traverse until the stack's current exit set is hit or
// the graph runs out.
func (b *Builder) build(start cfgview.BlockID) (*SequenceRegion, cfgview.BlockID, error) {
	seq := NewSequenceRegion()
	cur := start

	for cur != cfgview.NoBlock {
		if b.stack.ContainsExit(cur) {
			return seq, cur, nil
		}
		if !b.markProcessed(cur) {
			b.cfg.AddWarn(fmt.Sprintf("block %d already present in the region tree; skipping re-entry", cur))
			return seq, cur, nil
		}

		next, err := b.traverse(seq, cur)
		if err != nil {
			return seq, cfgview.NoBlock, err
		}
		if next == cur {
			// No forward progress possible; stop rather than loop forever.
			break
		}
		cur = next
	}
	return seq, cfgview.NoBlock, nil
}

// traverse dispatches a single block to the recognizer matching its role
// (loop header) or terminator kind, appending whatever region it produces
// (or the bare block, for plain/opaque blocks) to seq, and returns the
// block where outer flow resumes.
func (b *Builder) traverse(seq *SequenceRegion, block cfgview.BlockID) (cfgview.BlockID, error) {
	if err := b.newRegion(); err != nil {
		return cfgview.NoBlock, err
	}

	blk := b.cfg.Block(block)

	if l, ok := b.cfg.LoopAttr(block); ok && l.Start == block {
		next, err := b.loopb.build(seq, block, l)
		return next, err
	}

	switch {
	case cfgview.CheckLastInsnType(b.cfg, block, cfgview.InsnMonitorEnter):
		return b.monb.build(seq, block)

	case cfgview.CheckLastInsnType(b.cfg, block, cfgview.InsnSwitch):
		return b.switchb.build(seq, block)

	case cfgview.CheckLastInsnType(b.cfg, block, cfgview.InsnIf):
		next, handled, err := b.ifb.build(seq, block)
		if err != nil {
			return cfgview.NoBlock, err
		}
		if handled {
			return next, nil
		}
		// Recognition failure: treat the if as an opaque plain block.
		seq.AddBlock(block)
		return cfgview.GetNextBlock(b.cfg, block), nil

	default:
		seq.AddBlock(block)
		if blk.Contains(cfgview.FlagReturn) {
			return cfgview.NoBlock, nil
		}
		return cfgview.GetNextBlock(b.cfg, block), nil
	}
}
