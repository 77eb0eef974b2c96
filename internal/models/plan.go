package models

// PlanStep is one ordered step of a plan. Order within PlanDraft.Steps is the
// execution order.
type PlanStep struct {
	Time                string `json:"time"`
	Title               string `json:"title" validate:"required"`
	Description         string `json:"description"`
	CompletionCriterion string `json:"completion"`
	DayOffset           int    `json:"day_offset" validate:"gte=0,lte=365"`
}

// PlanDraft is an extracted, editable multi-step plan
type PlanDraft struct {
	Title string     `json:"title"`
	Steps []PlanStep `json:"steps" validate:"dive"`
}

// Clone returns a deep copy so editors never share step slices
func (p *PlanDraft) Clone() *PlanDraft {
	if p == nil {
		return nil
	}
	out := &PlanDraft{Title: p.Title, Steps: make([]PlanStep, len(p.Steps))}
	copy(out.Steps, p.Steps)
	return out
}

// CalendarEventDraft is an extracted, not-yet-persisted event
type CalendarEventDraft struct {
	Title       string   `json:"title"`
	DayOffset   int      `json:"day_offset"`
	Description string   `json:"description"`
	ColorTag    ColorTag `json:"color_tag"`
	Signature   string   `json:"signature"`
}
