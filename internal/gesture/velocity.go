package gesture

// Velocity classifies how hard a finger struck.
type Velocity int

const (
	Soft Velocity = iota
	Medium
	Hard
)

// Upper delta bounds for Soft and Medium strikes.
const (
	softLimit   = 0.03
	mediumLimit = 0.06
)

// ClassifyVelocity buckets the downward step of a press.
func ClassifyVelocity(deltaY float64) Velocity {
	switch {
	case deltaY < softLimit:
		return Soft
	case deltaY < mediumLimit:
		return Medium
	default:
		return Hard
	}
}

// Level returns the strike strength in (0,1].
func (v Velocity) Level() float64 {
	switch v {
	case Soft:
		return 0.5
	case Medium:
		return 0.75
	default:
		return 1.0
	}
}

func (v Velocity) String() string {
	switch v {
	case Soft:
		return "soft"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return "unknown"
	}
}
