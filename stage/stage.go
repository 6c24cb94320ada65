package stage

// Stage identifies one of the five fixed production steps.
type Stage string

const (
	PVCCut      Stage = "pvc_cut"
	FoilPasting Stage = "foil_pasting"
	Emboss      Stage = "emboss"
	DoorMaking  Stage = "door_making"
	Packing     Stage = "packing"
)

// pipeline defines the linear display/derivation order of the stages.
var pipeline = []Stage{PVCCut, FoilPasting, Emboss, DoorMaking, Packing}

// deps maps each stage to the stages whose flags must already be set
// before it may complete. This is a fixed DAG, not data-driven.
var deps = map[Stage][]Stage{
	PVCCut:      nil,
	FoilPasting: nil,
	Emboss:      {FoilPasting},
	DoorMaking:  {PVCCut, FoilPasting, Emboss},
	Packing:     {DoorMaking},
}

// rivals maps a stage to the sibling stages that race with it for the
// same downstream dependency. A pending task becomes urgent once all of
// its rivals are done: the unit is then the sole bottleneck. The two
// tail stages are strictly sequential and have no rivals.
var rivals = map[Stage][]Stage{
	PVCCut:      {FoilPasting, Emboss},
	FoilPasting: {PVCCut},
	Emboss:      {PVCCut, FoilPasting},
}

// Pipeline returns the stages in pipeline order.
func Pipeline() []Stage {
	out := make([]Stage, len(pipeline))
	copy(out, pipeline)
	return out
}

// Valid reports whether s names one of the five production stages.
func Valid(s Stage) bool {
	_, ok := deps[s]
	return ok
}

// DependenciesOf returns the prerequisite stages of s.
func DependenciesOf(s Stage) []Stage {
	d := deps[s]
	out := make([]Stage, len(d))
	copy(out, d)
	return out
}

// Flags is the primary completion state of one production unit.
type Flags struct {
	PVCDone    bool
	FoilDone   bool
	EmbossDone bool
	DoorMade   bool
	Packed     bool
}

// Done reports whether the flag for s is set.
func (f Flags) Done(s Stage) bool {
	switch s {
	case PVCCut:
		return f.PVCDone
	case FoilPasting:
		return f.FoilDone
	case Emboss:
		return f.EmbossDone
	case DoorMaking:
		return f.DoorMade
	case Packing:
		return f.Packed
	}
	return false
}

// Missing returns the prerequisite stages of s that are not yet done,
// in pipeline order. An empty result means s is unlocked.
func Missing(s Stage, f Flags) []Stage {
	var out []Stage
	for _, d := range deps[s] {
		if !f.Done(d) {
			out = append(out, d)
		}
	}
	return out
}

// Locked reports whether s may not complete yet on a unit with flags f.
func Locked(s Stage, f Flags) bool {
	return len(Missing(s, f)) > 0
}

// Urgent reports whether a pending task for s is the sole remaining
// blocker of downstream work: every rival stage is already done.
func Urgent(s Stage, f Flags) bool {
	rs, ok := rivals[s]
	if !ok {
		return false
	}
	for _, r := range rs {
		if !f.Done(r) {
			return false
		}
	}
	return true
}

// Current returns the first stage in pipeline order whose flag is not
// set. ok is false when the unit is fully packed.
func Current(f Flags) (Stage, bool) {
	for _, s := range pipeline {
		if !f.Done(s) {
			return s, true
		}
	}
	return "", false
}
