package state

// Serial-number arithmetic over uint16 sequence numbers with a window of
// 32768, so comparisons stay correct across wraparound.

func SeqnoLt(a uint16, b uint16) bool {
	d := b - a
	return d != 0 && d < 0x8000
}

func SeqnoLe(a uint16, b uint16) bool {
	return a == b || SeqnoLt(a, b)
}

func SeqnoGt(a uint16, b uint16) bool {
	return SeqnoLt(b, a)
}

func SeqnoGe(a uint16, b uint16) bool {
	return SeqnoLe(b, a)
}
