package domain_test

import (
	"testing"

	"dealroom/internal/domain"
)

func TestComputeSummary(t *testing.T) {
	plan := domain.AgreementPlan{
		DealType: domain.DealAllInclusive,
		Services: []domain.PlanService{
			{Name: "Lease", Included: true, Route: domain.RouteLandlord},
			{Name: "Parking", Included: true, Route: domain.RouteLandlord},
			{Name: "Cleaning", Included: true, Route: domain.RouteUnionDirect},
			{Name: "Fit-out", Included: true, Route: domain.RouteSupplier},
			{Name: "Security", Included: true, Route: domain.RouteSupplier},
			{Name: "Catering", Included: false, Route: domain.RouteSupplier},
		},
	}
	s := plan.ComputeSummary()
	// landlord and union collapse to one agreement each; suppliers do not
	if s.LandlordAgreements != 1 || s.UnionAgreements != 1 || s.SupplierAgreements != 2 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Total() != 4 {
		t.Fatalf("expected total 4, got %d", s.Total())
	}
	empty := domain.AgreementPlan{DealType: domain.DealBoltOn}
	if empty.ComputeSummary().Total() != 0 {
		t.Fatalf("expected empty summary for no services")
	}
}

func TestNextAgreementStatus(t *testing.T) {
	order := []domain.AgreementStatus{
		domain.AgreementDrafting,
		domain.AgreementInReview,
		domain.AgreementWithLegal,
		domain.AgreementReadyToSign,
		domain.AgreementSigned,
	}
	for i := 0; i < len(order)-1; i++ {
		if got := domain.NextAgreementStatus(order[i]); got != order[i+1] {
			t.Fatalf("from %s expected %s, got %s", order[i], order[i+1], got)
		}
	}
	if got := domain.NextAgreementStatus(domain.AgreementSigned); got != domain.AgreementSigned {
		t.Fatalf("signed must be absorbing, got %s", got)
	}
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	date := "2025-06-01"
	snap := domain.Snapshot{
		Deal: domain.Deal{ID: "d1"},
		Room: domain.DealRoom{
			DealID: "d1",
			Plan: &domain.AgreementPlan{
				DealType: domain.DealAllInclusive,
				Services: []domain.PlanService{{Name: "Lease", Included: true, Route: domain.RouteLandlord}},
			},
			Agreements: []domain.Agreement{{
				ID:             "a1",
				Versions:       []domain.AgreementVersion{{Name: "v1"}},
				TargetSignDate: &date,
			}},
			Hots:  domain.HeadsOfTerms{Version: 1, Fields: map[string]string{"Term": "2 years"}},
			Tasks: []domain.TaskItem{{ID: "t1", DueDate: &date}},
		},
	}
	clone := snap.Clone()
	clone.Room.Plan.Services[0].Included = false
	clone.Room.Agreements[0].Versions[0].Name = "v9"
	*clone.Room.Agreements[0].TargetSignDate = "2030-01-01"
	clone.Room.Hots.Fields["Term"] = "tampered"
	*clone.Room.Tasks[0].DueDate = "2030-01-01"

	if !snap.Room.Plan.Services[0].Included {
		t.Fatalf("plan services shared")
	}
	if snap.Room.Agreements[0].Versions[0].Name != "v1" {
		t.Fatalf("agreement versions shared")
	}
	if *snap.Room.Agreements[0].TargetSignDate != date {
		t.Fatalf("target sign date pointer shared")
	}
	if snap.Room.Hots.Fields["Term"] != "2 years" {
		t.Fatalf("hots map shared")
	}
	if *snap.Room.Tasks[0].DueDate != date {
		t.Fatalf("task due date pointer shared")
	}
}
