package domain

// Clone returns a deep copy of the snapshot. Store operations reduce over a
// copy and swap it in whole, so a failed or partial mutation can never leak
// into the published state.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Room = s.Room.clone()
	return out
}

func (r DealRoom) clone() DealRoom {
	out := r
	if r.Plan != nil {
		p := r.Plan.clone()
		out.Plan = &p
	}
	out.Agreements = make([]Agreement, len(r.Agreements))
	for i, a := range r.Agreements {
		out.Agreements[i] = a.clone()
	}
	out.Hots = r.Hots.clone()
	out.Documents = append([]FileDoc(nil), r.Documents...)
	out.Activity = append([]ActivityItem(nil), r.Activity...)
	out.Tasks = make([]TaskItem, len(r.Tasks))
	for i, t := range r.Tasks {
		out.Tasks[i] = t.clone()
	}
	return out
}

func (p AgreementPlan) clone() AgreementPlan {
	out := p
	out.Services = append([]PlanService(nil), p.Services...)
	return out
}

func (a Agreement) clone() Agreement {
	out := a
	out.Versions = append([]AgreementVersion(nil), a.Versions...)
	out.RequiredSigners = append([]string(nil), a.RequiredSigners...)
	if a.TargetSignDate != nil {
		d := *a.TargetSignDate
		out.TargetSignDate = &d
	}
	return out
}

func (h HeadsOfTerms) clone() HeadsOfTerms {
	out := h
	out.Fields = make(map[string]string, len(h.Fields))
	for k, v := range h.Fields {
		out.Fields[k] = v
	}
	return out
}

func (t TaskItem) clone() TaskItem {
	out := t
	if t.DueDate != nil {
		d := *t.DueDate
		out.DueDate = &d
	}
	return out
}
