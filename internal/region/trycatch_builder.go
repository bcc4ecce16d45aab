package region

import "github.com/restructure/restructure/internal/cfgview"

// tryCatchBuilder builds handler regions for the method's try/catch
// metadata.
type tryCatchBuilder struct {
	b *Builder
}

// attach builds a region for every exception handler in the method and
// appends each onto root.
func (tb *tryCatchBuilder) attach(root *SequenceRegion) error {
	handlers := tb.b.cfg.GetExceptionHandlers()
	if len(handlers) == 0 {
		return nil
	}

	tryBlocks := tb.distinctTryBlocks(handlers)
	exits := tb.computeExits(tryBlocks, handlers)

	for _, h := range handlers {
		hr, err := tb.processExcHandler(h, exits)
		if err != nil {
			return err
		}
		if hr == nil {
			continue
		}
		root.AddRegion(hr)
	}

	tb.attachOrphans(root)
	return nil
}

func (tb *tryCatchBuilder) distinctTryBlocks(handlers []*cfgview.ExcHandler) []cfgview.BlockID {
	seen := map[cfgview.BlockID]bool{}
	var out []cfgview.BlockID
	for _, h := range handlers {
		for _, t := range h.TryBlocks {
			if seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// computeExits finds where handler flow rejoins normal flow: per
// try-block, follow each splitter's first successor and cross it against
// every handler, keeping non-trivial crossing points.
func (tb *tryCatchBuilder) computeExits(tryBlocks []cfgview.BlockID, handlers []*cfgview.ExcHandler) map[cfgview.BlockID]struct{} {
	exits := make(map[cfgview.BlockID]struct{})
	for _, tryBlock := range tryBlocks {
		splitters := tb.splittersFor(tryBlock, handlers)
		for _, splitter := range splitters {
			ss := cfgview.GetNextBlock(tb.b.cfg, splitter)
			if ss == cfgview.NoBlock {
				tb.b.cfg.AddWarn("malformed try/catch: splitter has no successor; skipping")
				continue
			}
			for _, h := range handlers {
				if h.HandlerBlock == cfgview.NoBlock {
					continue
				}
				cross := cfgview.GetPathCross(tb.b.cfg, ss, h.HandlerBlock)
				if cross == cfgview.NoBlock || cross == ss || cross == h.HandlerBlock {
					continue
				}
				exits[cross] = struct{}{}
			}
		}
	}
	return exits
}

func (tb *tryCatchBuilder) splittersFor(tryBlock cfgview.BlockID, handlers []*cfgview.ExcHandler) []cfgview.BlockID {
	seen := map[cfgview.BlockID]bool{}
	var out []cfgview.BlockID
	for _, h := range handlers {
		if !containsBlock(h.TryBlocks, tryBlock) {
			continue
		}
		for _, s := range h.Splitters {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// processExcHandler builds one handler's region, scoped to the computed
// exits plus the already-claimed frontier of its dominator block.
func (tb *tryCatchBuilder) processExcHandler(h *cfgview.ExcHandler, exits map[cfgview.BlockID]struct{}) (Region, error) {
	if h.HandlerBlock == cfgview.NoBlock {
		tb.b.cfg.AddWarn("malformed exception handler: missing its handler block; skipped")
		return nil, nil
	}

	dominator := h.HandlerBlock
	if h.IsFinally && len(h.Splitters) > 0 {
		dominator = h.Splitters[0]
	}

	var hints []cfgview.BlockID
	for f := range tb.b.cfg.DomFrontier(dominator) {
		if tb.b.processed.Test(uint(f)) {
			hints = append(hints, f)
		}
	}

	hr := &SequenceRegion{}
	tb.b.stack.Push(hr)
	for b := range exits {
		tb.b.stack.AddExit(b)
	}
	tb.b.stack.AddExits(hints)
	body, _, err := tb.b.build(h.HandlerBlock)
	tb.b.stack.Pop()
	if err != nil {
		return nil, err
	}

	wrapped := &HandlerRegion{Handler: h, Body: body}
	body.setParent(wrapped)
	return wrapped, nil
}

// attachOrphans: after all handlers are built, sweep every handler
// region's last block's successors and build a supplementary region for
// any not yet claimed by any region.
func (tb *tryCatchBuilder) attachOrphans(root *SequenceRegion) {
	for _, item := range root.Items {
		hr, ok := item.Sub.(*HandlerRegion)
		if !ok {
			continue
		}
		last := lastBlock(hr.Body)
		if last == cfgview.NoBlock {
			continue
		}
		for _, s := range tb.b.cfg.CleanSuccessors(last) {
			if tb.b.processed.Test(uint(s)) {
				continue
			}
			body, _, err := tb.b.build(s)
			if err != nil || body.IsEmpty() {
				continue
			}
			root.AddRegion(body)
		}
	}
}

// lastBlock returns the final plain block reachable by following a
// region's last item, descending into nested sequences.
func lastBlock(r Region) cfgview.BlockID {
	switch v := r.(type) {
	case *SequenceRegion:
		if len(v.Items) == 0 {
			return cfgview.NoBlock
		}
		last := v.Items[len(v.Items)-1]
		if last.IsBlock() {
			return last.Block
		}
		return lastBlock(last.Sub)
	case *HandlerRegion:
		return lastBlock(v.Body)
	default:
		return cfgview.NoBlock
	}
}
