package vm

// branchOutcome reports whether a branch is taken and, if so, the target
// address. The engine (not this file) is responsible for delay-slot
// timing; this only evaluates the condition and
// computes the branch's PC + 4 + sign_extend(offset)<<2.
func branchOutcome(c *Context, in *Instruction) (taken bool, target uint32) {
	r := c.Registers
	rs := int32(r.GetGPR(in.RS))
	target = in.Addr + 4 + uint32(in.Imm<<2)

	switch in.Op {
	case OpBEQ, OpBEQL:
		taken = r.GetGPR(in.RS) == r.GetGPR(in.RT)
	case OpBNE, OpBNEL:
		taken = r.GetGPR(in.RS) != r.GetGPR(in.RT)
	case OpBLEZ, OpBLEZL:
		taken = rs <= 0
	case OpBGTZ, OpBGTZL:
		taken = rs > 0
	case OpBLTZ, OpBLTZL:
		taken = rs < 0
	case OpBGEZ, OpBGEZL:
		taken = rs >= 0
	case OpBLTZAL, OpBLTZALL:
		taken = rs < 0
	case OpBGEZAL, OpBGEZALL:
		taken = rs >= 0
	}
	return taken, target
}

// isLinkBranch reports whether Op writes $ra (R31) unconditionally, the way
// BLTZAL/BGEZAL and their likely variants do regardless of whether the
// branch is taken.
func isLinkBranch(op Op) bool {
	switch op {
	case OpBLTZAL, OpBGEZAL, OpBLTZALL, OpBGEZALL:
		return true
	}
	return false
}
