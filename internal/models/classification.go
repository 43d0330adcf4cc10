package models

// Kind tags a Classification.
type Kind int

const (
	KindRitual Kind = iota
	KindTimer
	KindDuplicateClone
	KindUnrecognized
)

func (k Kind) String() string {
	switch k {
	case KindRitual:
		return "ritual"
	case KindTimer:
		return "timer"
	case KindDuplicateClone:
		return "duplicate_clone"
	case KindUnrecognized:
		return "unrecognized"
	default:
		return "unknown"
	}
}

// Classification is the semantic reading of a card. Cadence is only set for
// KindTimer; Matched lists the cadence labels found on a KindUnrecognized card.
type Classification struct {
	Kind    Kind
	Cadence Cadence
	Matched []string
}
