package domain

type DealStage string

const (
	StageProposal   DealStage = "proposal"
	StageDealRoom   DealStage = "deal_room"
	StageOnboarding DealStage = "onboarding"
)

type ProposalStatus string

const (
	ProposalDraft    ProposalStatus = "draft"
	ProposalSent     ProposalStatus = "sent"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalDeclined ProposalStatus = "declined"
)

type Deal struct {
	ID             string         `json:"id"`
	Tenant         string         `json:"tenant"`
	Property       string         `json:"property"`
	Stage          DealStage      `json:"stage" enum:"proposal,deal_room,onboarding"`
	ProposalStatus ProposalStatus `json:"proposal_status" enum:"draft,sent,accepted,declined"`
	CreatedAt      string         `json:"created_at" format:"date-time"`
}

type RoomStatus string

const (
	RoomSetupPending     RoomStatus = "setup_pending"
	RoomSetupConfirmed   RoomStatus = "setup_confirmed"
	RoomContractsPending RoomStatus = "contracts_pending"
	RoomHandoffReady     RoomStatus = "handoff_ready"
)

type DealType string

const (
	DealAllInclusive DealType = "all_inclusive"
	DealBoltOn       DealType = "bolt_on"
)

type ServiceRoute string

const (
	RouteLandlord    ServiceRoute = "landlord"
	RouteUnionDirect ServiceRoute = "union_direct"
	RouteSupplier    ServiceRoute = "supplier"
)

// PlanService is one routed service line in an agreement plan.
type PlanService struct {
	Name     string       `json:"name"`
	Included bool         `json:"included"`
	Route    ServiceRoute `json:"route" enum:"landlord,union_direct,supplier"`
	Notes    string       `json:"notes,omitempty"`
	Locked   bool         `json:"locked"`
}

// PlanSummary counts the agreements the legal pack will generate per route.
type PlanSummary struct {
	LandlordAgreements int `json:"landlord_agreements"`
	UnionAgreements    int `json:"union_agreements"`
	SupplierAgreements int `json:"supplier_agreements"`
}

func (s PlanSummary) Total() int {
	return s.LandlordAgreements + s.UnionAgreements + s.SupplierAgreements
}

// AgreementPlan is the setup-time configuration snapshot. Immutable once
// consumed by pack generation except through a full re-submission of setup.
type AgreementPlan struct {
	DealType DealType      `json:"deal_type" enum:"all_inclusive,bolt_on"`
	Services []PlanService `json:"services"`
	Notes    string        `json:"notes,omitempty"`
	Summary  PlanSummary   `json:"summary"`
}

// ComputeSummary derives agreement counts from the included services: one
// landlord agreement if anything routes to the landlord, one union agreement
// if anything routes union-direct, and one supplier agreement per
// supplier-routed service.
func (p AgreementPlan) ComputeSummary() PlanSummary {
	var s PlanSummary
	for _, svc := range p.Services {
		if !svc.Included {
			continue
		}
		switch svc.Route {
		case RouteLandlord:
			s.LandlordAgreements = 1
		case RouteUnionDirect:
			s.UnionAgreements = 1
		case RouteSupplier:
			s.SupplierAgreements++
		}
	}
	return s
}

type AgreementKind string

const (
	KindLandlord AgreementKind = "landlord"
	KindUnion    AgreementKind = "union"
	KindSupplier AgreementKind = "supplier"
)

type AgreementStatus string

const (
	AgreementDrafting    AgreementStatus = "drafting"
	AgreementInReview    AgreementStatus = "in_review"
	AgreementWithLegal   AgreementStatus = "with_legal"
	AgreementReadyToSign AgreementStatus = "ready_to_sign"
	AgreementSigned      AgreementStatus = "signed"
)

// NextAgreementStatus returns the status one step forward. Signed is
// absorbing: advancing a signed agreement returns signed again.
func NextAgreementStatus(s AgreementStatus) AgreementStatus {
	switch s {
	case AgreementDrafting:
		return AgreementInReview
	case AgreementInReview:
		return AgreementWithLegal
	case AgreementWithLegal:
		return AgreementReadyToSign
	case AgreementReadyToSign:
		return AgreementSigned
	default:
		return AgreementSigned
	}
}

type AgreementVersion struct {
	Name       string `json:"name"`
	UploadedAt string `json:"uploaded_at" format:"date-time"`
}

type Agreement struct {
	ID              string             `json:"id"`
	Kind            AgreementKind      `json:"kind" enum:"landlord,union,supplier"`
	Title           string             `json:"title"`
	Status          AgreementStatus    `json:"status" enum:"drafting,in_review,with_legal,ready_to_sign,signed"`
	Versions        []AgreementVersion `json:"versions"`
	RequiredSigners []string           `json:"required_signers"`
	TargetSignDate  *string            `json:"target_sign_date,omitempty" format:"date"`
}

// HeadsOfTerms is the single versioned commercial-terms record per deal.
type HeadsOfTerms struct {
	Version   int               `json:"version"`
	Fields    map[string]string `json:"fields"`
	UpdatedAt string            `json:"updated_at" format:"date-time"`
}

type DocTag string

const (
	TagOps       DocTag = "ops"
	TagFire      DocTag = "fire"
	TagInsurance DocTag = "insurance"
	TagFitOut    DocTag = "fit_out"
	TagFloorplan DocTag = "floorplan"
	TagPhoto     DocTag = "photo"
	TagOther     DocTag = "other"
)

type FileDoc struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Tag        DocTag `json:"tag" enum:"ops,fire,insurance,fit_out,floorplan,photo,other"`
	Version    int    `json:"version"`
	UploadedAt string `json:"uploaded_at" format:"date-time"`
}

type ActivityType string

const (
	ActivityDocUploaded     ActivityType = "doc_uploaded"
	ActivityAgreementStatus ActivityType = "agreement_status"
	ActivityComment         ActivityType = "comment"
	ActivityPackGenerated   ActivityType = "pack_generated"
	ActivityHandoff         ActivityType = "handoff"
)

type ActivityItem struct {
	ID    string       `json:"id"`
	Actor string       `json:"actor"`
	TS    string       `json:"ts" format:"date-time"`
	Type  ActivityType `json:"type" enum:"doc_uploaded,agreement_status,comment,pack_generated,handoff"`
	Note  string       `json:"note,omitempty"`
}

type TaskGroup string

const (
	GroupLegal    TaskGroup = "legal"
	GroupOps      TaskGroup = "ops"
	GroupLandlord TaskGroup = "landlord"
	GroupInternal TaskGroup = "internal"
)

type TaskStatus string

const (
	TaskOpen       TaskStatus = "open"
	TaskInProgress TaskStatus = "in_progress"
	TaskBlocked    TaskStatus = "blocked"
	TaskDone       TaskStatus = "done"
)

type TaskItem struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Group    TaskGroup  `json:"group" enum:"legal,ops,landlord,internal"`
	Status   TaskStatus `json:"status" enum:"open,in_progress,blocked,done"`
	Assignee string     `json:"assignee,omitempty"`
	DueDate  *string    `json:"due_date,omitempty" format:"date"`
}

// DealRoom is the aggregate root for post-acceptance contracting. It
// exclusively owns every nested collection; nothing is shared across deals.
type DealRoom struct {
	DealID     string         `json:"deal_id"`
	Status     RoomStatus     `json:"status" enum:"setup_pending,setup_confirmed,contracts_pending,handoff_ready"`
	Plan       *AgreementPlan `json:"plan,omitempty"`
	Agreements []Agreement    `json:"agreements"`
	Hots       HeadsOfTerms   `json:"hots"`
	Documents  []FileDoc      `json:"documents"`
	Activity   []ActivityItem `json:"activity"`
	Tasks      []TaskItem     `json:"tasks"`
	CreatedAt  string         `json:"created_at" format:"date-time"`
	UpdatedAt  string         `json:"updated_at" format:"date-time"`
}

// Snapshot is the unit of persistence: one deal plus its room, replaced
// wholesale on every mutation.
type Snapshot struct {
	Deal Deal     `json:"deal"`
	Room DealRoom `json:"room"`
}

func ValidServiceRoute(r ServiceRoute) bool {
	switch r {
	case RouteLandlord, RouteUnionDirect, RouteSupplier:
		return true
	}
	return false
}

func ValidDealType(t DealType) bool {
	return t == DealAllInclusive || t == DealBoltOn
}

func ValidDocTag(t DocTag) bool {
	switch t {
	case TagOps, TagFire, TagInsurance, TagFitOut, TagFloorplan, TagPhoto, TagOther:
		return true
	}
	return false
}

func ValidTaskGroup(g TaskGroup) bool {
	switch g {
	case GroupLegal, GroupOps, GroupLandlord, GroupInternal:
		return true
	}
	return false
}

func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskOpen, TaskInProgress, TaskBlocked, TaskDone:
		return true
	}
	return false
}

func ValidActivityType(t ActivityType) bool {
	switch t {
	case ActivityDocUploaded, ActivityAgreementStatus, ActivityComment, ActivityPackGenerated, ActivityHandoff:
		return true
	}
	return false
}
