package server

import (
	"dealroom/internal/domain"
)

type CreateDealRequest struct {
	ID       string `json:"id" example:"deal-42"`
	Tenant   string `json:"tenant,omitempty" example:"Acme Ltd"`
	Property string `json:"property,omitempty" example:"12 King Street"`
}

type DealResponse struct {
	ID             string `json:"id"`
	Tenant         string `json:"tenant"`
	Property       string `json:"property"`
	Stage          string `json:"stage" enum:"proposal,deal_room,onboarding"`
	ProposalStatus string `json:"proposal_status" enum:"draft,sent,accepted,declined"`
	RoomStatus     string `json:"room_status" enum:"setup_pending,setup_confirmed,contracts_pending,handoff_ready"`
	CreatedAt      string `json:"created_at" format:"date-time"`
	UpdatedAt      string `json:"updated_at" format:"date-time"`
}

type PlanServiceRequest struct {
	Name     string `json:"name" example:"Cleaning"`
	Included bool   `json:"included"`
	Route    string `json:"route" enum:"landlord,union_direct,supplier"`
	Notes    string `json:"notes,omitempty"`
	Locked   bool   `json:"locked,omitempty"`
}

type SetupRequest struct {
	DealType string               `json:"deal_type" enum:"all_inclusive,bolt_on"`
	Services []PlanServiceRequest `json:"services"`
	Notes    string               `json:"notes,omitempty"`
}

type PlanSummaryResponse struct {
	LandlordAgreements int `json:"landlord_agreements"`
	UnionAgreements    int `json:"union_agreements"`
	SupplierAgreements int `json:"supplier_agreements"`
	Total              int `json:"total"`
}

type PlanResponse struct {
	DealType string               `json:"deal_type"`
	Services []domain.PlanService `json:"services"`
	Notes    string               `json:"notes,omitempty"`
	Summary  PlanSummaryResponse  `json:"summary"`
}

type RoomResponse struct {
	DealID     string                `json:"deal_id"`
	Status     string                `json:"status" enum:"setup_pending,setup_confirmed,contracts_pending,handoff_ready"`
	Plan       *PlanResponse         `json:"plan,omitempty"`
	Agreements []domain.Agreement    `json:"agreements"`
	Hots       domain.HeadsOfTerms   `json:"hots"`
	Documents  []domain.FileDoc      `json:"documents"`
	Activity   []domain.ActivityItem `json:"activity"`
	Tasks      []domain.TaskItem     `json:"tasks"`
	CanHandoff bool                  `json:"can_handoff"`
	CreatedAt  string                `json:"created_at" format:"date-time"`
	UpdatedAt  string                `json:"updated_at" format:"date-time"`
}

type HotsUpdateRequest struct {
	Fields map[string]string `json:"fields"`
}

type UploadDocumentRequest struct {
	Name string `json:"name" example:"floorplan.pdf"`
	Tag  string `json:"tag" enum:"ops,fire,insurance,fit_out,floorplan,photo,other"`
}

type AddTaskRequest struct {
	Title    string  `json:"title" example:"Chase landlord signature"`
	Group    string  `json:"group" enum:"legal,ops,landlord,internal"`
	Assignee string  `json:"assignee,omitempty"`
	DueDate  *string `json:"due_date,omitempty" format:"date"`
}

type TaskStatusRequest struct {
	Status string `json:"status" enum:"open,in_progress,blocked,done"`
}

type AddActivityRequest struct {
	Type string `json:"type" enum:"doc_uploaded,agreement_status,comment,pack_generated,handoff"`
	Note string `json:"note"`
}

type TargetSignDateRequest struct {
	Date *string `json:"date" format:"date"`
}

type GuardResponse struct {
	OK       bool   `json:"ok"`
	Redirect string `json:"redirect,omitempty"`
}

func dealResponse(snap domain.Snapshot) DealResponse {
	return DealResponse{
		ID:             snap.Deal.ID,
		Tenant:         snap.Deal.Tenant,
		Property:       snap.Deal.Property,
		Stage:          string(snap.Deal.Stage),
		ProposalStatus: string(snap.Deal.ProposalStatus),
		RoomStatus:     string(snap.Room.Status),
		CreatedAt:      snap.Deal.CreatedAt,
		UpdatedAt:      snap.Room.UpdatedAt,
	}
}

func planResponse(plan *domain.AgreementPlan) *PlanResponse {
	if plan == nil {
		return nil
	}
	return &PlanResponse{
		DealType: string(plan.DealType),
		Services: plan.Services,
		Notes:    plan.Notes,
		Summary: PlanSummaryResponse{
			LandlordAgreements: plan.Summary.LandlordAgreements,
			UnionAgreements:    plan.Summary.UnionAgreements,
			SupplierAgreements: plan.Summary.SupplierAgreements,
			Total:              plan.Summary.Total(),
		},
	}
}

func roomResponse(snap domain.Snapshot, canHandoff bool) RoomResponse {
	room := snap.Room
	return RoomResponse{
		DealID:     room.DealID,
		Status:     string(room.Status),
		Plan:       planResponse(room.Plan),
		Agreements: room.Agreements,
		Hots:       room.Hots,
		Documents:  room.Documents,
		Activity:   room.Activity,
		Tasks:      room.Tasks,
		CanHandoff: canHandoff,
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	}
}

func planFromSetup(req SetupRequest) domain.AgreementPlan {
	services := make([]domain.PlanService, 0, len(req.Services))
	for _, s := range req.Services {
		services = append(services, domain.PlanService{
			Name:     s.Name,
			Included: s.Included,
			Route:    domain.ServiceRoute(s.Route),
			Notes:    s.Notes,
			Locked:   s.Locked,
		})
	}
	return domain.AgreementPlan{
		DealType: domain.DealType(req.DealType),
		Services: services,
		Notes:    req.Notes,
	}
}
