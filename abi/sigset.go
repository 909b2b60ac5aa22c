package abi

// SignalSet is a bitset over signal numbers. Bit k represents signal k.
// The zero value is the empty set.
type SignalSet uint64

// MakeSignalSet builds a set from the given signals.
func MakeSignalSet(sigs ...Signal) SignalSet {
	var set SignalSet

	for _, s := range sigs {
		set = set.Add(s)
	}

	return set
}

func (set SignalSet) Contains(s Signal) bool {
	return set&(1<<uint(s)) != 0
}

func (set SignalSet) Add(s Signal) SignalSet {
	return set | (1 << uint(s))
}

func (set SignalSet) Remove(s Signal) SignalSet {
	return set &^ (1 << uint(s))
}

func (set SignalSet) Empty() bool {
	return set == 0
}

// FirstNotIn scans ascending signal numbers and returns the lowest member
// of set that is absent from other. The second result is false when no
// such signal exists.
func (set SignalSet) FirstNotIn(other SignalSet) (Signal, bool) {
	pending := set &^ other
	if pending == 0 {
		return 0, false
	}

	for s := Signal(1); s <= MaxSignal; s++ {
		if pending.Contains(s) {
			return s, true
		}
	}

	return 0, false
}
