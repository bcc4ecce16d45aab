package cfgview

// InsnRemover unbinds instructions the region builder consumes into
// structured constructs, standing in for the SSA use-def unbinding the
// full pipeline performs. Unbound instructions stay in their block's list
// (flagged REMOVE) so positions of later instructions are unaffected.
type InsnRemover struct {
	cfg *CFG
}

// NewInsnRemover creates a remover for cfg.
func NewInsnRemover(c *CFG) *InsnRemover { return &InsnRemover{cfg: c} }

// UnbindInsn marks insn REMOVE and drops it from the owning-block index so
// GetBlockByInsn no longer resolves it.
func (r *InsnRemover) UnbindInsn(insn *Insn) {
	insn.Add(FlagRemove)
	delete(r.cfg.blockByInsn, insn)
}
