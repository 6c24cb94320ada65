package stage

import "testing"

// flagsFromMask builds a Flags value from a 5-bit mask in pipeline order.
func flagsFromMask(mask int) Flags {
	return Flags{
		PVCDone:    mask&1 != 0,
		FoilDone:   mask&2 != 0,
		EmbossDone: mask&4 != 0,
		DoorMade:   mask&8 != 0,
		Packed:     mask&16 != 0,
	}
}

func TestDependenciesOf(t *testing.T) {
	cases := []struct {
		stage Stage
		want  []Stage
	}{
		{PVCCut, nil},
		{FoilPasting, nil},
		{Emboss, []Stage{FoilPasting}},
		{DoorMaking, []Stage{PVCCut, FoilPasting, Emboss}},
		{Packing, []Stage{DoorMaking}},
	}
	for _, c := range cases {
		got := DependenciesOf(c.stage)
		if len(got) != len(c.want) {
			t.Errorf("%s: deps = %v, want %v", c.stage, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("%s: deps = %v, want %v", c.stage, got, c.want)
			}
		}
	}
}

// TestLockTable checks every flag combination against the dependency
// table: a stage is locked exactly when one of its dependencies is unset.
func TestLockTable(t *testing.T) {
	for mask := 0; mask < 32; mask++ {
		f := flagsFromMask(mask)
		for _, s := range Pipeline() {
			wantLocked := false
			for _, d := range DependenciesOf(s) {
				if !f.Done(d) {
					wantLocked = true
				}
			}
			if got := Locked(s, f); got != wantLocked {
				t.Errorf("mask %05b stage %s: Locked = %v, want %v", mask, s, got, wantLocked)
			}
			missing := Missing(s, f)
			if (len(missing) > 0) != wantLocked {
				t.Errorf("mask %05b stage %s: Missing = %v inconsistent with lock", mask, s, missing)
			}
		}
	}
}

func TestScenarioUnlockProgression(t *testing.T) {
	// Fresh unit: PVC and Foil open, Emboss and Door locked.
	f := Flags{}
	if Locked(PVCCut, f) || Locked(FoilPasting, f) {
		t.Error("fresh unit should be unlocked for pvc_cut and foil_pasting")
	}
	if !Locked(Emboss, f) || !Locked(DoorMaking, f) || !Locked(Packing, f) {
		t.Error("fresh unit should be locked for emboss, door_making and packing")
	}

	// Foil done unlocks emboss.
	f.FoilDone = true
	if Locked(Emboss, f) {
		t.Error("emboss should unlock after foil_pasting")
	}
	if !Locked(DoorMaking, f) {
		t.Error("door_making should stay locked until pvc and emboss are done")
	}

	// PVC + foil + emboss done unlocks door making.
	f.PVCDone = true
	f.EmbossDone = true
	if Locked(DoorMaking, f) {
		t.Error("door_making should unlock after pvc, foil and emboss")
	}
	if !Locked(Packing, f) {
		t.Error("packing should stay locked until the door is made")
	}

	f.DoorMade = true
	if Locked(Packing, f) {
		t.Error("packing should unlock after door_making")
	}
}

func TestUrgent(t *testing.T) {
	cases := []struct {
		name  string
		stage Stage
		flags Flags
		want  bool
	}{
		{"pvc urgent when foil+emboss done", PVCCut, Flags{FoilDone: true, EmbossDone: true}, true},
		{"pvc not urgent when emboss pending", PVCCut, Flags{FoilDone: true}, false},
		{"foil urgent when pvc done", FoilPasting, Flags{PVCDone: true}, true},
		{"foil not urgent on fresh unit", FoilPasting, Flags{}, false},
		{"emboss urgent when pvc+foil done", Emboss, Flags{PVCDone: true, FoilDone: true}, true},
		{"emboss not urgent when pvc pending", Emboss, Flags{FoilDone: true}, false},
		{"door_making never urgent", DoorMaking, Flags{PVCDone: true, FoilDone: true, EmbossDone: true}, false},
		{"packing never urgent", Packing, Flags{PVCDone: true, FoilDone: true, EmbossDone: true, DoorMade: true}, false},
	}
	for _, c := range cases {
		if got := Urgent(c.stage, c.flags); got != c.want {
			t.Errorf("%s: Urgent = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestCurrent(t *testing.T) {
	if s, ok := Current(Flags{}); !ok || s != PVCCut {
		t.Errorf("fresh unit current = %v/%v, want pvc_cut", s, ok)
	}
	if s, ok := Current(Flags{PVCDone: true}); !ok || s != FoilPasting {
		t.Errorf("pvc done current = %v/%v, want foil_pasting", s, ok)
	}
	// A skipped earlier stage still reports first-false in pipeline order.
	if s, ok := Current(Flags{FoilDone: true, EmbossDone: true}); !ok || s != PVCCut {
		t.Errorf("foil+emboss done current = %v/%v, want pvc_cut", s, ok)
	}
	if _, ok := Current(Flags{PVCDone: true, FoilDone: true, EmbossDone: true, DoorMade: true, Packed: true}); ok {
		t.Error("fully packed unit should report no current stage")
	}
}

func TestForRole(t *testing.T) {
	if s, ok := ForRole("emboss"); !ok || s != Emboss {
		t.Errorf("ForRole(emboss) = %v/%v", s, ok)
	}
	if _, ok := ForRole(RoleAdmin); ok {
		t.Error("admin role should not map to a stage")
	}
	if _, ok := ForRole("janitor"); ok {
		t.Error("unknown role should not map to a stage")
	}
}
