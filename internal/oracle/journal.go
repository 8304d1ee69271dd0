package oracle

// journal records undo steps so a failed operation can restore the state it touched.
type journal struct {
	undo []func()
}

// record appends an undo step.
func (j *journal) record(undo func()) {
	j.undo = append(j.undo, undo)
}

// revert runs every undo step in reverse order and clears the journal.
func (j *journal) revert() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// len returns the number of recorded steps.
func (j *journal) len() int {
	return len(j.undo)
}
