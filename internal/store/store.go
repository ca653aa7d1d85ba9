package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"dealroom/internal/config"
	"dealroom/internal/domain"
	"dealroom/internal/persist"
)

// Audit receives a copy of every appended activity item. Implemented by
// events.Writer; failures are logged and swallowed like snapshot saves.
type Audit interface {
	Append(ctx context.Context, dealID string, item domain.ActivityItem) error
}

// Store is the single source of truth for one deal and its room. All
// mutation goes through its operations; each operation reduces over a copy of
// the previous snapshot and swaps the whole aggregate in atomically, then
// writes the snapshot through to the persister best-effort.
//
// Misuse contract: unknown ids and unmet preconditions are silent no-ops
// returning the unchanged snapshot. Malformed enum values at the operation
// boundary return an error. Persistence failures never propagate; they are
// logged and counted.
type Store struct {
	Persister persist.Persister
	Audit     Audit
	Config    *config.Config
	Logger    *log.Logger
	Now       func() time.Time
	NewID     func() string

	mu              sync.Mutex
	snap            domain.Snapshot
	persistFailures int
}

// New wraps an existing snapshot.
func New(snap domain.Snapshot, p persist.Persister, cfg *config.Config) *Store {
	return &Store{
		Persister: p,
		Config:    cfg,
		Now:       time.Now,
		NewID:     func() string { return uuid.New().String() },
		snap:      snap.Clone(),
	}
}

// Seed builds the initial snapshot for a brand-new deal: proposal stage, room
// created alongside at setup_pending with HoTs version 1 seeded from config.
func Seed(dealID, tenant, property string, cfg *config.Config, now time.Time) domain.Snapshot {
	ts := now.UTC().Format(time.RFC3339)
	return domain.Snapshot{
		Deal: domain.Deal{
			ID:             dealID,
			Tenant:         tenant,
			Property:       property,
			Stage:          domain.StageProposal,
			ProposalStatus: domain.ProposalDraft,
			CreatedAt:      ts,
		},
		Room: domain.DealRoom{
			DealID: dealID,
			Status: domain.RoomSetupPending,
			Hots: domain.HeadsOfTerms{
				Version:   1,
				Fields:    cfg.SeedHotsFields(),
				UpdatedAt: ts,
			},
			Agreements: []domain.Agreement{},
			Documents:  []domain.FileDoc{},
			Activity:   []domain.ActivityItem{},
			Tasks:      []domain.TaskItem{},
			CreatedAt:  ts,
			UpdatedAt:  ts,
		},
	}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.New().String()
}

func (s *Store) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// PersistFailures reports how many snapshot writes have failed since start.
func (s *Store) PersistFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistFailures
}

// mutate runs a reducer over a copy of the snapshot. When the reducer
// reports a change it stamps and prepends exactly one activity item, bumps
// the room's updated timestamp, swaps the copy in, and write-through
// persists. The reducer never sees the live snapshot.
func (s *Store) mutate(ctx context.Context, fn func(next *domain.Snapshot) (domain.ActivityItem, bool, error)) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.snap.Clone()
	item, changed, err := fn(&next)
	if err != nil {
		return s.snap.Clone(), err
	}
	if !changed {
		return s.snap.Clone(), nil
	}
	ts := s.now().UTC().Format(time.RFC3339)
	item.ID = s.newID()
	item.TS = ts
	next.Room.Activity = append([]domain.ActivityItem{item}, next.Room.Activity...)
	next.Room.UpdatedAt = ts
	s.snap = next
	s.persistLocked(ctx, item)
	return s.snap.Clone(), nil
}

// persistLocked writes the snapshot and audit row best-effort. The in-memory
// state is already swapped and stays authoritative on failure.
func (s *Store) persistLocked(ctx context.Context, item domain.ActivityItem) {
	dealID := s.snap.Deal.ID
	if s.Persister != nil {
		if err := s.Persister.Save(ctx, dealID, s.snap); err != nil {
			s.persistFailures++
			s.logger().Printf("warn: persist snapshot for deal %s: %v", dealID, err)
		}
	}
	if s.Audit != nil {
		if err := s.Audit.Append(ctx, dealID, item); err != nil {
			s.logger().Printf("warn: append activity audit for deal %s: %v", dealID, err)
		}
	}
}

// AcceptProposal marks the proposal accepted and moves the deal into the
// deal-room stage. No-op if already accepted.
func (s *Store) AcceptProposal(ctx context.Context, actor string) (domain.Snapshot, error) {
	return s.mutate(ctx, func(next *domain.Snapshot) (domain.ActivityItem, bool, error) {
		if next.Deal.ProposalStatus == domain.ProposalAccepted {
			return domain.ActivityItem{}, false, nil
		}
		next.Deal.ProposalStatus = domain.ProposalAccepted
		next.Deal.Stage = domain.StageDealRoom
		return domain.ActivityItem{
			Actor: actor,
			Type:  domain.ActivityComment,
			Note:  "Proposal accepted; deal room opened",
		}, true, nil
	})
}

// ConfirmSetup stores the agreement plan and confirms the room setup. The
// form layer owns semantic validation of the plan; the store only rejects
// unknown enum values. A zero summary is derived from the service list.
func (s *Store) ConfirmSetup(ctx context.Context, actor string, plan domain.AgreementPlan) (domain.Snapshot, error) {
	if !domain.ValidDealType(plan.DealType) {
		return s.Snapshot(), fmt.Errorf("unknown deal type %q", plan.DealType)
	}
	for _, svc := range plan.Services {
		if !domain.ValidServiceRoute(svc.Route) {
			return s.Snapshot(), fmt.Errorf("service %s has unknown route %q", svc.Name, svc.Route)
		}
	}
	if plan.Summary == (domain.PlanSummary{}) {
		plan.Summary = plan.ComputeSummary()
	}
	return s.mutate(ctx, func(next *domain.Snapshot) (domain.ActivityItem, bool, error) {
		p := plan
		next.Room.Plan = &p
		next.Room.Status = domain.RoomSetupConfirmed
		return domain.ActivityItem{
			Actor: actor,
			Type:  domain.ActivityComment,
			Note:  fmt.Sprintf("Setup confirmed: %s plan, %d agreements to generate", plan.DealType, plan.Summary.Total()),
		}, true, nil
	})
}

// GenerateLegalPack creates one agreement per plan summary slot, each at
// drafting with a v1 version and the kind's configured signer pair. No-op
// without a confirmed plan.
func (s *Store) GenerateLegalPack(ctx context.Context, actor string) (domain.Snapshot, error) {
	return s.mutate(ctx, func(next *domain.Snapshot) (domain.ActivityItem, bool, error) {
		plan := next.Room.Plan
		if plan == nil {
			return domain.ActivityItem{}, false, nil
		}
		ts := s.now().UTC().Format(time.RFC3339)
		var agreements []domain.Agreement
		for i := 0; i < plan.Summary.LandlordAgreements; i++ {
			agreements = append(agreements, s.newAgreement(domain.KindLandlord, "Landlord Agreement", ts))
		}
		for i := 0; i < plan.Summary.UnionAgreements; i++ {
			agreements = append(agreements, s.newAgreement(domain.KindUnion, "Union Services Agreement", ts))
		}
		supplierTitles := supplierTitles(*plan)
		for i := 0; i < plan.Summary.SupplierAgreements; i++ {
			title := fmt.Sprintf("Supplier Agreement %d", i+1)
			if i < len(supplierTitles) {
				title = supplierTitles[i]
			}
			agreements = append(agreements, s.newAgreement(domain.KindSupplier, title, ts))
		}
		next.Room.Agreements = agreements
		next.Room.Status = domain.RoomContractsPending
		return domain.ActivityItem{
			Actor: actor,
			Type:  domain.ActivityPackGenerated,
			Note:  fmt.Sprintf("Legal pack generated: %d agreements", len(agreements)),
		}, true, nil
	})
}

func (s *Store) newAgreement(kind domain.AgreementKind, title, ts string) domain.Agreement {
	return domain.Agreement{
		ID:              s.newID(),
		Kind:            kind,
		Title:           title,
		Status:          domain.AgreementDrafting,
		Versions:        []domain.AgreementVersion{{Name: "v1", UploadedAt: ts}},
		RequiredSigners: s.Config.SignersFor(kind),
	}
}

func supplierTitles(plan domain.AgreementPlan) []string {
	var titles []string
	for _, svc := range plan.Services {
		if svc.Included && svc.Route == domain.RouteSupplier {
			titles = append(titles, fmt.Sprintf("Supplier Agreement: %s", svc.Name))
		}
	}
	return titles
}

// AdvanceAgreementStatus moves one agreement exactly one step forward along
// drafting -> in_review -> with_legal -> ready_to_sign -> signed. Unknown id
// or an agreement already signed is a no-op. When every agreement in a
// non-empty room is signed the room is forced to handoff_ready.
func (s *Store) AdvanceAgreementStatus(ctx context.Context, actor, agreementID string) (domain.Snapshot, error) {
	return s.mutate(ctx, func(next *domain.Snapshot) (domain.ActivityItem, bool, error) {
		idx := findAgreement(next.Room.Agreements, agreementID)
		if idx < 0 {
			return domain.ActivityItem{}, false, nil
		}
		a := &next.Room.Agreements[idx]
		if a.Status == domain.AgreementSigned {
			return domain.ActivityItem{}, false, nil
		}
		from := a.Status
		a.Status = domain.NextAgreementStatus(a.Status)
		promoteIfSigned(&next.Room)
		return domain.ActivityItem{
			Actor: actor,
			Type:  domain.ActivityAgreementStatus,
			Note:  fmt.Sprintf("%s: %s -> %s", a.Title, from, a.Status),
		}, true, nil
	})
}

// UploadAgreementVersion appends version v{n+1} to an agreement. Unknown id
// is a no-op. Versions are never deleted.
func (s *Store) UploadAgreementVersion(ctx context.Context, actor, agreementID string) (domain.Snapshot, error) {
	return s.mutate(ctx, func(next *domain.Snapshot) (domain.ActivityItem, bool, error) {
		idx := findAgreement(next.Room.Agreements, agreementID)
		if idx < 0 {
			return domain.ActivityItem{}, false, nil
		}
		a := &next.Room.Agreements[idx]
		version := domain.AgreementVersion{
			Name:       fmt.Sprintf("v%d", len(a.Versions)+1),
			UploadedAt: s.now().UTC().Format(time.RFC3339),
		}
		a.Versions = append(a.Versions, version)
		return domain.ActivityItem{
			Actor: actor,
			Type:  domain.ActivityDocUploaded,
			Note:  fmt.Sprintf("%s: uploaded %s", a.Title, version.Name),
		}, true, nil
	})
}

// SetTargetSignDate sets or clears an agreement's target sign date. Unknown
// id is a no-op.
func (s *Store) SetTargetSignDate(ctx context.Context, actor, agreementID string, date *string) (domain.Snapshot, error) {
	return s.mutate(ctx, func(next *domain.Snapshot) (domain.ActivityItem, bool, error) {
		idx := findAgreement(next.Room.Agreements, agreementID)
		if idx < 0 {
			return domain.ActivityItem{}, false, nil
		}
		a := &next.Room.Agreements[idx]
		a.TargetSignDate = date
		note := fmt.Sprintf("%s: target sign date cleared", a.Title)
		if date != nil {
			note = fmt.Sprintf("%s: target sign date %s", a.Title, *date)
		}
		return domain.ActivityItem{Actor: actor, Type: domain.ActivityComment, Note: note}, true, nil
	})
}

// CanHandoff reports whether the hand-off gate is satisfied: at least one
// agreement, all signed, and every legal-group task done.
func (s *Store) CanHandoff() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return canHandoff(s.snap.Room)
}

func canHandoff(room domain.DealRoom) bool {
	if len(room.Agreements) == 0 {
		return false
	}
	for _, a := range room.Agreements {
		if a.Status != domain.AgreementSigned {
			return false
		}
	}
	for _, t := range room.Tasks {
		if t.Group == domain.GroupLegal && t.Status != domain.TaskDone {
			return false
		}
	}
	return true
}

// HandoffToOps moves the deal to the onboarding stage. The gate is enforced
// here rather than left to callers: when unsatisfied the call is a no-op,
// consistent with the store's permissive contract. handoff_ready is terminal
// for the room; hand-off transitions the deal.
func (s *Store) HandoffToOps(ctx context.Context, actor string) (domain.Snapshot, error) {
	return s.mutate(ctx, func(next *domain.Snapshot) (domain.ActivityItem, bool, error) {
		if next.Deal.Stage == domain.StageOnboarding {
			return domain.ActivityItem{}, false, nil
		}
		if !canHandoff(next.Room) {
			return domain.ActivityItem{}, false, nil
		}
		next.Deal.Stage = domain.StageOnboarding
		return domain.ActivityItem{
			Actor: actor,
			Type:  domain.ActivityHandoff,
			Note:  "Handed off to operations",
		}, true, nil
	})
}

// UpdateHots merges the given fields into the heads of terms and bumps the
// version by exactly one. Only whitelisted keys are applied; anything else
// is dropped. Fields not mentioned keep their prior values.
func (s *Store) UpdateHots(ctx context.Context, actor string, fields map[string]string) (domain.Snapshot, error) {
	editable := map[string]bool{}
	for _, k := range s.Config.EditableHotsKeys() {
		editable[k] = true
	}
	return s.mutate(ctx, func(next *domain.Snapshot) (domain.ActivityItem, bool, error) {
		if next.Room.Hots.Fields == nil {
			next.Room.Hots.Fields = map[string]string{}
		}
		var applied []string
		for k, v := range fields {
			if !editable[k] {
				continue
			}
			next.Room.Hots.Fields[k] = v
			applied = append(applied, k)
		}
		next.Room.Hots.Version++
		next.Room.Hots.UpdatedAt = s.now().UTC().Format(time.RFC3339)
		note := fmt.Sprintf("Heads of terms updated to v%d", next.Room.Hots.Version)
		if len(applied) > 0 {
			note = fmt.Sprintf("Heads of terms updated to v%d (%d fields)", next.Room.Hots.Version, len(applied))
		}
		return domain.ActivityItem{Actor: actor, Type: domain.ActivityComment, Note: note}, true, nil
	})
}

// UploadDocument upserts by name: a doc with the same name gets its version
// bumped, otherwise a new doc starts at version 1.
func (s *Store) UploadDocument(ctx context.Context, actor, name string, tag domain.DocTag) (domain.Snapshot, error) {
	if !domain.ValidDocTag(tag) {
		return s.Snapshot(), fmt.Errorf("unknown document tag %q", tag)
	}
	return s.mutate(ctx, func(next *domain.Snapshot) (domain.ActivityItem, bool, error) {
		ts := s.now().UTC().Format(time.RFC3339)
		for i := range next.Room.Documents {
			if next.Room.Documents[i].Name == name {
				next.Room.Documents[i].Version++
				next.Room.Documents[i].Tag = tag
				next.Room.Documents[i].UploadedAt = ts
				return domain.ActivityItem{
					Actor: actor,
					Type:  domain.ActivityDocUploaded,
					Note:  fmt.Sprintf("%s re-uploaded (v%d)", name, next.Room.Documents[i].Version),
				}, true, nil
			}
		}
		next.Room.Documents = append(next.Room.Documents, domain.FileDoc{
			ID:         s.newID(),
			Name:       name,
			Tag:        tag,
			Version:    1,
			UploadedAt: ts,
		})
		return domain.ActivityItem{
			Actor: actor,
			Type:  domain.ActivityDocUploaded,
			Note:  fmt.Sprintf("%s uploaded", name),
		}, true, nil
	})
}

// AddTask assigns a fresh id and appends the task. Status defaults to open.
func (s *Store) AddTask(ctx context.Context, actor string, task domain.TaskItem) (domain.Snapshot, error) {
	if !domain.ValidTaskGroup(task.Group) {
		return s.Snapshot(), fmt.Errorf("unknown task group %q", task.Group)
	}
	if task.Status == "" {
		task.Status = domain.TaskOpen
	}
	if !domain.ValidTaskStatus(task.Status) {
		return s.Snapshot(), fmt.Errorf("unknown task status %q", task.Status)
	}
	return s.mutate(ctx, func(next *domain.Snapshot) (domain.ActivityItem, bool, error) {
		task.ID = s.newID()
		next.Room.Tasks = append(next.Room.Tasks, task)
		return domain.ActivityItem{
			Actor: actor,
			Type:  domain.ActivityComment,
			Note:  fmt.Sprintf("Task added: %s (%s)", task.Title, task.Group),
		}, true, nil
	})
}

// UpdateTaskStatus sets a task's status. Unknown id is a no-op.
func (s *Store) UpdateTaskStatus(ctx context.Context, actor, taskID string, status domain.TaskStatus) (domain.Snapshot, error) {
	if !domain.ValidTaskStatus(status) {
		return s.Snapshot(), fmt.Errorf("unknown task status %q", status)
	}
	return s.mutate(ctx, func(next *domain.Snapshot) (domain.ActivityItem, bool, error) {
		for i := range next.Room.Tasks {
			if next.Room.Tasks[i].ID != taskID {
				continue
			}
			next.Room.Tasks[i].Status = status
			return domain.ActivityItem{
				Actor: actor,
				Type:  domain.ActivityComment,
				Note:  fmt.Sprintf("Task %s: %s", next.Room.Tasks[i].Title, status),
			}, true, nil
		}
		return domain.ActivityItem{}, false, nil
	})
}

// AddActivity prepends a free-form activity item with a generated id and
// timestamp. The prepended entry is the operation's own activity record.
func (s *Store) AddActivity(ctx context.Context, actor string, typ domain.ActivityType, note string) (domain.Snapshot, error) {
	if !domain.ValidActivityType(typ) {
		return s.Snapshot(), fmt.Errorf("unknown activity type %q", typ)
	}
	return s.mutate(ctx, func(next *domain.Snapshot) (domain.ActivityItem, bool, error) {
		return domain.ActivityItem{Actor: actor, Type: typ, Note: note}, true, nil
	})
}

func findAgreement(agreements []domain.Agreement, id string) int {
	for i := range agreements {
		if agreements[i].ID == id {
			return i
		}
	}
	return -1
}

// promoteIfSigned forces the room to handoff_ready once every agreement in a
// non-empty room is signed, regardless of its prior status.
func promoteIfSigned(room *domain.DealRoom) {
	if len(room.Agreements) == 0 {
		return
	}
	for _, a := range room.Agreements {
		if a.Status != domain.AgreementSigned {
			return
		}
	}
	room.Status = domain.RoomHandoffReady
}
