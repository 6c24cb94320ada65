package tracker

import (
	"errors"
	"path/filepath"
	"testing"

	"paneltrack/stage"
	"paneltrack/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// fakeEmitter records emitted events.
type fakeEmitter struct {
	created   int
	completed []string
	undone    []string
}

func (f *fakeEmitter) EmitUnitsCreated(orderItemID int64, count int) { f.created += count }
func (f *fakeEmitter) EmitStageCompleted(u *store.ProductionUnit, workerID int64, label string, override bool) {
	f.completed = append(f.completed, label)
}
func (f *fakeEmitter) EmitStageUndone(u *store.ProductionUnit, label string) {
	f.undone = append(f.undone, label)
}

type fixture struct {
	db      *store.DB
	mgr     *Manager
	emitter *fakeEmitter
	item    *store.OrderItem
	workers map[string]*store.Worker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)
	emitter := &fakeEmitter{}
	mgr := NewManager(db, emitter)

	item := &store.OrderItem{
		OrderNumber: "ORD-100",
		ItemNumber:  1,
		DesignName:  "Teak Classic",
		DesignType:  "EMBOSS",
		WidthCode:   2.7,
		HeightCode:  6.3,
		Quantity:    3,
	}
	if err := db.CreateOrderItem(item); err != nil {
		t.Fatalf("create order item: %v", err)
	}

	workers := make(map[string]*store.Worker)
	for _, role := range []string{"pvc_cut", "foil_pasting", "emboss", "door_making", "packing", stage.RoleAdmin} {
		w := &store.Worker{Name: "w-" + role, Role: role, PinHash: "x", IsActive: true}
		if err := db.CreateWorker(w); err != nil {
			t.Fatalf("create worker %s: %v", role, err)
		}
		workers[role] = w
	}
	return &fixture{db: db, mgr: mgr, emitter: emitter, item: item, workers: workers}
}

func (f *fixture) createUnits(t *testing.T) []*store.ProductionUnit {
	t.Helper()
	units, err := f.mgr.CreateUnits(f.item.ID, f.item.Quantity)
	if err != nil {
		t.Fatalf("create units: %v", err)
	}
	return units
}

func (f *fixture) complete(t *testing.T, unitID int64, role string, s stage.Stage, marker SubMarker) *store.ProductionUnit {
	t.Helper()
	u, err := f.mgr.Complete(unitID, f.workers[role].ID, s, marker, Location{})
	if err != nil {
		t.Fatalf("complete %s on unit %d: %v", s, unitID, err)
	}
	return u
}

// pasteFoil runs the full pick+done sequence for both sides.
func (f *fixture) pasteFoil(t *testing.T, unitID int64) *store.ProductionUnit {
	t.Helper()
	f.complete(t, unitID, "foil_pasting", stage.FoilPasting, SubFrontPick)
	f.complete(t, unitID, "foil_pasting", stage.FoilPasting, SubFrontDone)
	f.complete(t, unitID, "foil_pasting", stage.FoilPasting, SubBackPick)
	return f.complete(t, unitID, "foil_pasting", stage.FoilPasting, SubBackDone)
}

func TestCreateUnitsIdempotent(t *testing.T) {
	f := newFixture(t)

	units := f.createUnits(t)
	if len(units) != 3 {
		t.Fatalf("created %d units, want 3", len(units))
	}
	for i, u := range units {
		if u.UnitNumber != i+1 {
			t.Errorf("unit %d number = %d, want %d", i, u.UnitNumber, i+1)
		}
	}
	if units[0].UniqueCode != "ORD-100-1-1" {
		t.Errorf("unique code = %q, want ORD-100-1-1", units[0].UniqueCode)
	}

	// A replayed production-start event is a no-op, not an error.
	again, err := f.mgr.CreateUnits(f.item.ID, f.item.Quantity)
	if err != nil {
		t.Fatalf("replayed create: %v", err)
	}
	if len(again) != 3 {
		t.Errorf("replay returned %d units, want 3", len(again))
	}
	if n, _ := f.db.CountUnitsForItem(f.item.ID); n != 3 {
		t.Errorf("unit count after replay = %d, want 3", n)
	}
}

func TestCreateUnitsUnknownItem(t *testing.T) {
	f := newFixture(t)
	_, err := f.mgr.CreateUnits(9999, 2)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestCompleteDependencyLocking(t *testing.T) {
	f := newFixture(t)
	unit := f.createUnits(t)[0]

	// Emboss is locked until foil pasting is done.
	_, err := f.mgr.Complete(unit.ID, f.workers["emboss"].ID, stage.Emboss, SubNone, Location{})
	var dep *DependencyNotMetError
	if !errors.As(err, &dep) {
		t.Fatalf("err = %v, want DependencyNotMetError", err)
	}
	if len(dep.Missing) != 1 || dep.Missing[0] != stage.FoilPasting {
		t.Errorf("missing = %v, want [foil_pasting]", dep.Missing)
	}

	f.pasteFoil(t, unit.ID)
	f.complete(t, unit.ID, "emboss", stage.Emboss, SubNone)

	// Door making still waits on PVC.
	_, err = f.mgr.Complete(unit.ID, f.workers["door_making"].ID, stage.DoorMaking, SubNone, Location{})
	if !errors.As(err, &dep) {
		t.Fatalf("err = %v, want DependencyNotMetError", err)
	}
	if len(dep.Missing) != 1 || dep.Missing[0] != stage.PVCCut {
		t.Errorf("missing = %v, want [pvc_cut]", dep.Missing)
	}

	f.complete(t, unit.ID, "pvc_cut", stage.PVCCut, SubNone)
	u := f.complete(t, unit.ID, "door_making", stage.DoorMaking, SubNone)
	if !u.IsDoorMade {
		t.Error("door should be made")
	}
	u = f.complete(t, unit.ID, "packing", stage.Packing, SubNone)
	if !u.IsPacked {
		t.Error("unit should be packed")
	}
	if u.CurrentStage() != "" {
		t.Errorf("packed unit current stage = %q, want none", u.CurrentStage())
	}
}

func TestCompleteRoleMismatch(t *testing.T) {
	f := newFixture(t)
	unit := f.createUnits(t)[0]

	_, err := f.mgr.Complete(unit.ID, f.workers["packing"].ID, stage.PVCCut, SubNone, Location{})
	var rm *RoleMismatchError
	if !errors.As(err, &rm) {
		t.Fatalf("err = %v, want RoleMismatchError", err)
	}

	// Admins do not complete stages directly; they override.
	_, err = f.mgr.Complete(unit.ID, f.workers[stage.RoleAdmin].ID, stage.PVCCut, SubNone, Location{})
	if !errors.As(err, &rm) {
		t.Fatalf("admin complete err = %v, want RoleMismatchError", err)
	}
}

func TestCompleteIdempotent(t *testing.T) {
	f := newFixture(t)
	unit := f.createUnits(t)[0]

	f.complete(t, unit.ID, "pvc_cut", stage.PVCCut, SubNone)
	u := f.complete(t, unit.ID, "pvc_cut", stage.PVCCut, SubNone) // duplicate replay
	if !u.IsPVCDone {
		t.Error("pvc flag should stay set")
	}
	if n, _ := f.db.CountUnitStageRecords(unit.ID, string(stage.PVCCut)); n != 1 {
		t.Errorf("record count after duplicate complete = %d, want 1", n)
	}
}

func TestCompleteUnknownUnit(t *testing.T) {
	f := newFixture(t)
	_, err := f.mgr.Complete(4242, f.workers["pvc_cut"].ID, stage.PVCCut, SubNone, Location{})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestFoilSubWorkflow(t *testing.T) {
	f := newFixture(t)
	unit := f.createUnits(t)[0]

	// Done before pick is rejected.
	_, err := f.mgr.Complete(unit.ID, f.workers["foil_pasting"].ID, stage.FoilPasting, SubFrontDone, Location{})
	var pre *PrerequisiteError
	if !errors.As(err, &pre) {
		t.Fatalf("err = %v, want PrerequisiteError", err)
	}

	// A missing marker is rejected, not guessed.
	_, err = f.mgr.Complete(unit.ID, f.workers["foil_pasting"].ID, stage.FoilPasting, SubNone, Location{})
	if !errors.As(err, &pre) {
		t.Fatalf("no-marker err = %v, want PrerequisiteError", err)
	}

	u := f.complete(t, unit.ID, "foil_pasting", stage.FoilPasting, SubFrontPick)
	if !u.FoilFrontPicked || u.IsFoilDone {
		t.Error("front pick should set only the pick flag")
	}
	u = f.complete(t, unit.ID, "foil_pasting", stage.FoilPasting, SubFrontDone)
	if !u.FoilFrontDone || u.IsFoilDone {
		t.Error("one side done must not complete foil pasting")
	}

	u = f.complete(t, unit.ID, "foil_pasting", stage.FoilPasting, SubBackPick)
	u = f.complete(t, unit.ID, "foil_pasting", stage.FoilPasting, SubBackDone)
	if !u.IsFoilDone {
		t.Error("both sides done should complete foil pasting")
	}
	if u.IsFoilDone != (u.FoilFrontDone && u.FoilBackDone) {
		t.Error("foil invariant violated")
	}
}

func TestFoilPickUndo(t *testing.T) {
	f := newFixture(t)
	unit := f.createUnits(t)[0]

	f.complete(t, unit.ID, "foil_pasting", stage.FoilPasting, SubFrontPick)
	u := f.complete(t, unit.ID, "foil_pasting", stage.FoilPasting, SubFrontPickUndo)
	if u.FoilFrontPicked {
		t.Error("pick undo should clear the pick flag")
	}
	if n, _ := f.db.CountUnitStageRecords(unit.ID, LabelFoilFrontPick); n != 0 {
		t.Errorf("pick record count after undo = %d, want 0", n)
	}

	// Unpicking a pasted side is rejected.
	f.complete(t, unit.ID, "foil_pasting", stage.FoilPasting, SubFrontPick)
	f.complete(t, unit.ID, "foil_pasting", stage.FoilPasting, SubFrontDone)
	_, err := f.mgr.Complete(unit.ID, f.workers["foil_pasting"].ID, stage.FoilPasting, SubFrontPickUndo, Location{})
	var pre *PrerequisiteError
	if !errors.As(err, &pre) {
		t.Fatalf("err = %v, want PrerequisiteError", err)
	}
}

func TestFoilInvariantAfterEveryTransition(t *testing.T) {
	f := newFixture(t)
	unit := f.createUnits(t)[0]

	steps := []SubMarker{SubFrontPick, SubFrontDone, SubBackPick, SubBackDone}
	for _, marker := range steps {
		u := f.complete(t, unit.ID, "foil_pasting", stage.FoilPasting, marker)
		if u.IsFoilDone != (u.FoilFrontDone && u.FoilBackDone) {
			t.Fatalf("after %s: foil invariant violated", marker)
		}
	}
}

func TestUndoRoundTrip(t *testing.T) {
	f := newFixture(t)
	unit := f.createUnits(t)[0]

	f.complete(t, unit.ID, "pvc_cut", stage.PVCCut, SubNone)
	recID, _ := f.db.LatestRecordID(unit.ID, string(stage.PVCCut))

	u, err := f.mgr.Undo(recID)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if u.IsPVCDone {
		t.Error("undo should clear the pvc flag")
	}
	if n, _ := f.db.CountUnitStageRecords(unit.ID, string(stage.PVCCut)); n != 0 {
		t.Errorf("record count after undo = %d, want 0", n)
	}

	// Re-completing restores the prior state.
	u = f.complete(t, unit.ID, "pvc_cut", stage.PVCCut, SubNone)
	if !u.IsPVCDone {
		t.Error("re-complete should restore the flag")
	}
	if n, _ := f.db.CountUnitStageRecords(unit.ID, string(stage.PVCCut)); n != 1 {
		t.Errorf("record count after re-complete = %d, want 1", n)
	}
}

func TestUndoFoilSideClearsAggregate(t *testing.T) {
	f := newFixture(t)
	unit := f.createUnits(t)[0]

	f.pasteFoil(t, unit.ID)
	recID, _ := f.db.LatestRecordID(unit.ID, LabelFoilBackDone)
	u, err := f.mgr.Undo(recID)
	if err != nil {
		t.Fatalf("undo back done: %v", err)
	}
	if u.FoilBackDone || u.IsFoilDone {
		t.Error("undoing a side must clear that side and the aggregate flag")
	}
	if !u.FoilFrontDone {
		t.Error("undo must not touch the other side")
	}
}

func TestUndoNotMostRecent(t *testing.T) {
	f := newFixture(t)
	units := f.createUnits(t)
	unit := units[0]

	f.complete(t, unit.ID, "pvc_cut", stage.PVCCut, SubNone)
	firstID, _ := f.db.LatestRecordID(unit.ID, string(stage.PVCCut))
	if _, err := f.mgr.Undo(firstID); err != nil {
		t.Fatalf("undo: %v", err)
	}
	f.complete(t, unit.ID, "pvc_cut", stage.PVCCut, SubNone)

	// The first record no longer exists; a stale undo is rejected as
	// not found, while an older surviving record is rejected as not
	// most recent.
	_, err := f.mgr.Undo(firstID)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("stale undo err = %v, want NotFoundError", err)
	}

	// Two records for the same stage label on one unit: undo of the
	// older one must fail.
	other := units[1]
	f.complete(t, other.ID, "foil_pasting", stage.FoilPasting, SubFrontPick)
	f.complete(t, other.ID, "foil_pasting", stage.FoilPasting, SubFrontDone)
	pickID, _ := f.db.LatestRecordID(other.ID, LabelFoilFrontPick)
	doneID, _ := f.db.LatestRecordID(other.ID, LabelFoilFrontDone)
	if pickID == 0 || doneID == 0 {
		t.Fatal("expected both records to exist")
	}
	// The pick record is latest for its own label but protected while
	// the side is pasted.
	var pre *PrerequisiteError
	if _, err := f.mgr.Undo(pickID); !errors.As(err, &pre) {
		t.Fatalf("undo pick under done err = %v, want PrerequisiteError", err)
	}
}

func TestOverride(t *testing.T) {
	f := newFixture(t)
	unit := f.createUnits(t)[0]

	// Force door making on a fresh unit, bypassing every dependency.
	u, err := f.mgr.Override(unit.ID, f.workers[stage.RoleAdmin].ID, stage.DoorMaking, Location{})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if !u.IsDoorMade {
		t.Error("override should set the flag")
	}
	recID, _ := f.db.LatestRecordID(unit.ID, string(stage.DoorMaking))
	rec, err := f.db.GetRecord(recID)
	if err != nil {
		t.Fatalf("load override record: %v", err)
	}
	if !rec.IsOverride {
		t.Error("override record should be tagged")
	}

	// Overriding foil pasting forces the whole sub-workflow.
	u, err = f.mgr.Override(unit.ID, f.workers[stage.RoleAdmin].ID, stage.FoilPasting, Location{})
	if err != nil {
		t.Fatalf("override foil: %v", err)
	}
	if !u.IsFoilDone || !u.FoilFrontDone || !u.FoilBackDone {
		t.Error("foil override should set the sub-flags")
	}

	// Only admins may override.
	_, err = f.mgr.Override(unit.ID, f.workers["pvc_cut"].ID, stage.Packing, Location{})
	var rm *RoleMismatchError
	if !errors.As(err, &rm) {
		t.Fatalf("non-admin override err = %v, want RoleMismatchError", err)
	}
}

func TestUndoOverrideFoilClearsSubFlags(t *testing.T) {
	f := newFixture(t)
	unit := f.createUnits(t)[0]

	f.mgr.Override(unit.ID, f.workers[stage.RoleAdmin].ID, stage.FoilPasting, Location{})
	recID, _ := f.db.LatestRecordID(unit.ID, string(stage.FoilPasting))
	u, err := f.mgr.Undo(recID)
	if err != nil {
		t.Fatalf("undo override: %v", err)
	}
	if u.IsFoilDone || u.FoilFrontDone || u.FoilBackDone || u.FoilFrontPicked || u.FoilBackPicked {
		t.Error("undoing a foil override should clear the whole sub-workflow")
	}
}

func TestCompleteBatchPartialFailure(t *testing.T) {
	f := newFixture(t)
	units := f.createUnits(t)

	// Pre-complete foil on units 0 and 2 so emboss is unlocked there;
	// unit 1 stays locked.
	f.pasteFoil(t, units[0].ID)
	f.pasteFoil(t, units[2].ID)

	outcomes, err := f.mgr.CompleteBatch(f.workers["emboss"].ID,
		[]int64{units[0].ID, units[1].ID, units[2].ID}, SubNone, Location{})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	if !outcomes[0].OK || !outcomes[2].OK {
		t.Errorf("units 0/2 should succeed: %+v", outcomes)
	}
	if outcomes[1].OK || outcomes[1].Error == "" {
		t.Errorf("unit 1 should fail with a reason: %+v", outcomes[1])
	}

	// The failure did not abort the rest.
	u0, _ := f.db.GetUnit(units[0].ID)
	u2, _ := f.db.GetUnit(units[2].ID)
	if !u0.IsEmbossDone || !u2.IsEmbossDone {
		t.Error("successful units should be embossed")
	}
}

func TestCompleteBatchFoilCart(t *testing.T) {
	f := newFixture(t)
	units := f.createUnits(t)
	ids := []int64{units[0].ID, units[1].ID}
	foilWorker := f.workers["foil_pasting"].ID

	// Without a sub-marker a foil batch fails every unit.
	outcomes, err := f.mgr.CompleteBatch(foilWorker, ids, SubNone, Location{})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	for _, o := range outcomes {
		if o.OK {
			t.Errorf("unit %d accepted without a sub-marker", o.UnitID)
		}
	}

	// A cart of fronts is picked in one scan.
	outcomes, err = f.mgr.CompleteBatch(foilWorker, ids, SubFrontPick, Location{})
	if err != nil {
		t.Fatalf("batch front-pick: %v", err)
	}
	for _, o := range outcomes {
		if !o.OK {
			t.Errorf("unit %d front-pick failed: %s", o.UnitID, o.Error)
		}
		if !o.Unit.FoilFrontPicked {
			t.Errorf("unit %d front not picked", o.UnitID)
		}
	}
}

func TestBlockedUnitRefusesCompletion(t *testing.T) {
	f := newFixture(t)
	unit := f.createUnits(t)[0]

	if _, err := f.mgr.SetBlocked(unit.ID, true); err != nil {
		t.Fatalf("set blocked: %v", err)
	}
	_, err := f.mgr.Complete(unit.ID, f.workers["pvc_cut"].ID, stage.PVCCut, SubNone, Location{})
	var be *BlockedError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want BlockedError", err)
	}

	if _, err := f.mgr.SetBlocked(unit.ID, false); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	f.complete(t, unit.ID, "pvc_cut", stage.PVCCut, SubNone)
}
