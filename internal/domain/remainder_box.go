package domain

// Remainder boxes sorted by offcut size
const (
	RemainderBoxSmall = 0
	RemainderBoxLarge = 1
)

const (
	smallBoxMinLength = 100
	largeBoxMinLength = 300
)

// RemainderBox maps a remainder length to the storage box whose indicator
// should light up. Offcuts shorter than 100mm have no box.
func RemainderBox(length int) (int, bool) {
	switch {
	case length < smallBoxMinLength:
		return 0, false
	case length < largeBoxMinLength:
		return RemainderBoxSmall, true
	default:
		return RemainderBoxLarge, true
	}
}
