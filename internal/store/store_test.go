package store_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"dealroom/internal/config"
	"dealroom/internal/domain"
	"dealroom/internal/persist"
	"dealroom/internal/store"
)

type testEnv struct {
	Store *store.Store
	Mem   *persist.Memory
	Ctx   context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	cfg := config.Default("deal-1")
	mem := persist.NewMemory()
	snap := store.Seed("deal-1", "Acme Ltd", "12 King Street", cfg, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	st := store.New(snap, mem, cfg)
	st.Logger = log.New(io.Discard, "", 0)
	st.Now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	seq := 0
	st.NewID = func() string { seq++; return fmt.Sprintf("id-%d", seq) }
	return testEnv{Store: st, Mem: mem, Ctx: context.Background()}
}

func testPlan() domain.AgreementPlan {
	return domain.AgreementPlan{
		DealType: domain.DealAllInclusive,
		Services: []domain.PlanService{
			{Name: "Lease", Included: true, Route: domain.RouteLandlord, Locked: true},
			{Name: "Cleaning", Included: true, Route: domain.RouteUnionDirect},
			{Name: "Fit-out", Included: true, Route: domain.RouteSupplier},
			{Name: "Security", Included: true, Route: domain.RouteSupplier},
			{Name: "Catering", Included: false, Route: domain.RouteSupplier},
		},
	}
}

// openRoom accepts the proposal, confirms setup, and generates the pack.
func openRoom(t *testing.T, env testEnv) domain.Snapshot {
	t.Helper()
	if _, err := env.Store.AcceptProposal(env.Ctx, "tester"); err != nil {
		t.Fatalf("accept proposal: %v", err)
	}
	if _, err := env.Store.ConfirmSetup(env.Ctx, "tester", testPlan()); err != nil {
		t.Fatalf("confirm setup: %v", err)
	}
	snap, err := env.Store.GenerateLegalPack(env.Ctx, "tester")
	if err != nil {
		t.Fatalf("generate pack: %v", err)
	}
	return snap
}

func TestPackGenerationBeforeSetupIsNoop(t *testing.T) {
	env := newTestEnv(t)
	before := env.Store.Snapshot()
	snap, err := env.Store.GenerateLegalPack(env.Ctx, "tester")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(snap.Room.Agreements) != 0 || snap.Room.Status != before.Room.Status {
		t.Fatalf("expected unchanged room, got %d agreements status %s", len(snap.Room.Agreements), snap.Room.Status)
	}
	if len(snap.Room.Activity) != len(before.Room.Activity) {
		t.Fatalf("no-op appended activity")
	}
}

func TestPackGenerationCountsPerRoute(t *testing.T) {
	env := newTestEnv(t)
	snap := openRoom(t, env)
	// one landlord, one union, two supplier agreements (catering excluded)
	if len(snap.Room.Agreements) != 4 {
		t.Fatalf("expected 4 agreements, got %d", len(snap.Room.Agreements))
	}
	counts := map[domain.AgreementKind]int{}
	for _, a := range snap.Room.Agreements {
		counts[a.Kind]++
		if a.Status != domain.AgreementDrafting {
			t.Fatalf("agreement %s not drafting: %s", a.Title, a.Status)
		}
		if len(a.Versions) != 1 || a.Versions[0].Name != "v1" {
			t.Fatalf("agreement %s missing v1", a.Title)
		}
		if len(a.RequiredSigners) == 0 {
			t.Fatalf("agreement %s has no signers", a.Title)
		}
	}
	if counts[domain.KindLandlord] != 1 || counts[domain.KindUnion] != 1 || counts[domain.KindSupplier] != 2 {
		t.Fatalf("unexpected kind counts: %v", counts)
	}
	if snap.Room.Status != domain.RoomContractsPending {
		t.Fatalf("expected contracts_pending, got %s", snap.Room.Status)
	}
}

func TestAdvanceIsMonotonicAndSignedIsAbsorbing(t *testing.T) {
	env := newTestEnv(t)
	snap := openRoom(t, env)
	id := snap.Room.Agreements[0].ID
	want := []domain.AgreementStatus{
		domain.AgreementInReview,
		domain.AgreementWithLegal,
		domain.AgreementReadyToSign,
		domain.AgreementSigned,
		domain.AgreementSigned, // fifth call is a no-op
	}
	for i, w := range want {
		snap, err := env.Store.AdvanceAgreementStatus(env.Ctx, "tester", id)
		if err != nil {
			t.Fatalf("advance %d: %v", i+1, err)
		}
		if got := snap.Room.Agreements[0].Status; got != w {
			t.Fatalf("advance %d: expected %s, got %s", i+1, w, got)
		}
	}
}

func TestAdvanceUnknownIDIsNoop(t *testing.T) {
	env := newTestEnv(t)
	before := openRoom(t, env)
	snap, err := env.Store.AdvanceAgreementStatus(env.Ctx, "tester", "nope")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if len(snap.Room.Activity) != len(before.Room.Activity) {
		t.Fatalf("no-op appended activity")
	}
}

func TestRoomPromotedWhenAllSigned(t *testing.T) {
	env := newTestEnv(t)
	snap := openRoom(t, env)
	for _, a := range snap.Room.Agreements {
		for i := 0; i < 4; i++ {
			if _, err := env.Store.AdvanceAgreementStatus(env.Ctx, "tester", a.ID); err != nil {
				t.Fatalf("advance %s: %v", a.ID, err)
			}
		}
	}
	got := env.Store.Snapshot()
	if got.Room.Status != domain.RoomHandoffReady {
		t.Fatalf("expected handoff_ready, got %s", got.Room.Status)
	}
}

func TestUploadAgreementVersionAppends(t *testing.T) {
	env := newTestEnv(t)
	snap := openRoom(t, env)
	id := snap.Room.Agreements[0].ID
	snap, err := env.Store.UploadAgreementVersion(env.Ctx, "tester", id)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	versions := snap.Room.Agreements[0].Versions
	if len(versions) != 2 || versions[1].Name != "v2" {
		t.Fatalf("expected v2 appended, got %v", versions)
	}
}

func TestHotsUpdateBumpsVersionAndFiltersKeys(t *testing.T) {
	env := newTestEnv(t)
	openRoom(t, env)
	snap, err := env.Store.UpdateHots(env.Ctx, "tester", map[string]string{
		"Term":  "5 years",
		"Rogue": "ignored",
		"Break": "year 3",
	})
	if err != nil {
		t.Fatalf("update hots: %v", err)
	}
	if snap.Room.Hots.Version != 2 {
		t.Fatalf("expected version 2, got %d", snap.Room.Hots.Version)
	}
	if snap.Room.Hots.Fields["Term"] != "5 years" || snap.Room.Hots.Fields["Break"] != "year 3" {
		t.Fatalf("editable fields not merged: %v", snap.Room.Hots.Fields)
	}
	if _, ok := snap.Room.Hots.Fields["Rogue"]; ok {
		t.Fatalf("non-whitelisted key applied")
	}
	// untouched keys survive the merge
	snap, err = env.Store.UpdateHots(env.Ctx, "tester", map[string]string{"Indexation": "CPI"})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if snap.Room.Hots.Version != 3 || snap.Room.Hots.Fields["Term"] != "5 years" {
		t.Fatalf("merge lost prior fields: v%d %v", snap.Room.Hots.Version, snap.Room.Hots.Fields)
	}
}

func TestDocumentUpsertByName(t *testing.T) {
	env := newTestEnv(t)
	openRoom(t, env)
	snap, err := env.Store.UploadDocument(env.Ctx, "tester", "floorplan.pdf", domain.TagFloorplan)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(snap.Room.Documents) != 1 || snap.Room.Documents[0].Version != 1 {
		t.Fatalf("expected single v1 doc, got %v", snap.Room.Documents)
	}
	snap, err = env.Store.UploadDocument(env.Ctx, "tester", "floorplan.pdf", domain.TagFloorplan)
	if err != nil {
		t.Fatalf("re-upload: %v", err)
	}
	if len(snap.Room.Documents) != 1 || snap.Room.Documents[0].Version != 2 {
		t.Fatalf("expected same doc at v2, got %v", snap.Room.Documents)
	}
	if _, err := env.Store.UploadDocument(env.Ctx, "tester", "weird.pdf", "salad"); err == nil {
		t.Fatalf("expected tag validation error")
	}
}

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	openRoom(t, env)
	snap, err := env.Store.AddTask(env.Ctx, "tester", domain.TaskItem{Title: "Chase landlord", Group: domain.GroupLegal})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	task := snap.Room.Tasks[0]
	if task.Status != domain.TaskOpen || task.ID == "" {
		t.Fatalf("expected open task with id, got %+v", task)
	}
	snap, err = env.Store.UpdateTaskStatus(env.Ctx, "tester", task.ID, domain.TaskDone)
	if err != nil || snap.Room.Tasks[0].Status != domain.TaskDone {
		t.Fatalf("to done: %v", err)
	}
	// unknown id leaves the list untouched
	before := snap.Room.Tasks
	snap, err = env.Store.UpdateTaskStatus(env.Ctx, "tester", "nope", domain.TaskBlocked)
	if err != nil {
		t.Fatalf("unknown id: %v", err)
	}
	if len(snap.Room.Tasks) != len(before) || snap.Room.Tasks[0].Status != domain.TaskDone {
		t.Fatalf("unknown id mutated tasks")
	}
	if _, err := env.Store.UpdateTaskStatus(env.Ctx, "tester", task.ID, "paused"); err == nil {
		t.Fatalf("expected status validation error")
	}
}

func TestEveryMutationAppendsOneActivity(t *testing.T) {
	env := newTestEnv(t)
	snap := openRoom(t, env)
	id := snap.Room.Agreements[0].ID
	n := len(snap.Room.Activity)
	steps := []func() (domain.Snapshot, error){
		func() (domain.Snapshot, error) { return env.Store.AdvanceAgreementStatus(env.Ctx, "tester", id) },
		func() (domain.Snapshot, error) { return env.Store.UploadAgreementVersion(env.Ctx, "tester", id) },
		func() (domain.Snapshot, error) {
			return env.Store.UpdateHots(env.Ctx, "tester", map[string]string{"Term": "3 years"})
		},
		func() (domain.Snapshot, error) {
			return env.Store.UploadDocument(env.Ctx, "tester", "ops-manual.pdf", domain.TagOps)
		},
		func() (domain.Snapshot, error) {
			return env.Store.AddTask(env.Ctx, "tester", domain.TaskItem{Title: "t", Group: domain.GroupOps})
		},
		func() (domain.Snapshot, error) {
			return env.Store.AddActivity(env.Ctx, "tester", domain.ActivityComment, "note to file")
		},
	}
	for i, step := range steps {
		snap, err := step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		n++
		if len(snap.Room.Activity) != n {
			t.Fatalf("step %d: expected %d activity items, got %d", i, n, len(snap.Room.Activity))
		}
	}
	// newest first
	got := env.Store.Snapshot()
	if got.Room.Activity[0].Note != "note to file" {
		t.Fatalf("expected newest activity at index 0, got %q", got.Room.Activity[0].Note)
	}
	for _, item := range got.Room.Activity {
		if item.ID == "" || item.TS == "" {
			t.Fatalf("activity item missing id or timestamp: %+v", item)
		}
	}
}

func TestHandoffGate(t *testing.T) {
	env := newTestEnv(t)
	snap := openRoom(t, env)
	snap, err := env.Store.AddTask(env.Ctx, "tester", domain.TaskItem{Title: "Compliance check", Group: domain.GroupLegal})
	if err != nil {
		t.Fatal(err)
	}
	legalTask := snap.Room.Tasks[0].ID
	// gate closed: agreements unsigned
	snap, err = env.Store.HandoffToOps(env.Ctx, "tester")
	if err != nil {
		t.Fatalf("handoff: %v", err)
	}
	if snap.Deal.Stage != domain.StageDealRoom {
		t.Fatalf("handoff allowed with unsigned agreements")
	}
	for _, a := range snap.Room.Agreements {
		for i := 0; i < 4; i++ {
			_, _ = env.Store.AdvanceAgreementStatus(env.Ctx, "tester", a.ID)
		}
	}
	// gate still closed: open legal task
	if env.Store.CanHandoff() {
		t.Fatalf("gate open with pending legal task")
	}
	_, _ = env.Store.UpdateTaskStatus(env.Ctx, "tester", legalTask, domain.TaskDone)
	if !env.Store.CanHandoff() {
		t.Fatalf("gate closed after all signed and legal tasks done")
	}
	snap, err = env.Store.HandoffToOps(env.Ctx, "tester")
	if err != nil {
		t.Fatalf("handoff: %v", err)
	}
	if snap.Deal.Stage != domain.StageOnboarding {
		t.Fatalf("expected onboarding stage, got %s", snap.Deal.Stage)
	}
	if snap.Room.Activity[0].Type != domain.ActivityHandoff {
		t.Fatalf("expected handoff activity, got %s", snap.Room.Activity[0].Type)
	}
}

func TestPersistFailureIsBestEffort(t *testing.T) {
	env := newTestEnv(t)
	openRoom(t, env)
	env.Mem.FailSaves = true
	snap, err := env.Store.UpdateHots(env.Ctx, "tester", map[string]string{"Term": "1 year"})
	if err != nil {
		t.Fatalf("expected no error on persist failure, got %v", err)
	}
	if snap.Room.Hots.Fields["Term"] != "1 year" {
		t.Fatalf("in-memory state lost on persist failure")
	}
	if env.Store.PersistFailures() == 0 {
		t.Fatalf("expected persist failure counted")
	}
	// recovery resumes write-through
	env.Mem.FailSaves = false
	saves := env.Mem.Saves
	_, _ = env.Store.UpdateHots(env.Ctx, "tester", map[string]string{"Term": "2 years"})
	if env.Mem.Saves != saves+1 {
		t.Fatalf("expected save after recovery")
	}
}

func TestSnapshotReturnsCopy(t *testing.T) {
	env := newTestEnv(t)
	openRoom(t, env)
	snap := env.Store.Snapshot()
	snap.Room.Agreements[0].Status = domain.AgreementSigned
	snap.Room.Hots.Fields["Term"] = "tampered"
	fresh := env.Store.Snapshot()
	if fresh.Room.Agreements[0].Status == domain.AgreementSigned {
		t.Fatalf("snapshot shares agreement backing array")
	}
	if fresh.Room.Hots.Fields["Term"] == "tampered" {
		t.Fatalf("snapshot shares hots map")
	}
}
