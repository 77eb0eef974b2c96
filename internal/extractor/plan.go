package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/benvon/smart-calendar/internal/dates"
	"github.com/benvon/smart-calendar/internal/models"
	"github.com/benvon/smart-calendar/internal/textclean"
)

var (
	planHeader   = regexp.MustCompile(`(?im)\bPlan:[ \t]*(?:\[([^\]\n]*)\]|([^\n|]*))`)
	planEnd      = regexp.MustCompile(`(?i)\)\*!|\*\*\s*Part\b`)
	stepHeader   = regexp.MustCompile(`(?i)\bStep\s*\d+\s*:`)
	firstInteger = regexp.MustCompile(`-?\d+`)
)

var planFields = []string{"time", "title", "description", "completion", "day"}

// DayNumber reduces a day field such as "3 days from today" to its first
// integer. Text without digits means day 0.
func DayNumber(s string) int {
	m := firstInteger.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// ExtractPlan parses the first "Plan: [title]" block. Suppressed blocks
// ("Plan X!@:") never match. Blocks without a valid step yield nil.
func ExtractPlan(prepared string) *models.PlanDraft {
	loc := planHeader.FindStringSubmatchIndex(prepared)
	if loc == nil {
		return nil
	}
	title, bodyStart := "", loc[1]
	if loc[2] >= 0 {
		title = prepared[loc[2]:loc[3]]
	} else if loc[4] >= 0 {
		title = prepared[loc[4]:loc[5]]
		// An unbracketed title runs into a step on the same line
		if h := stepHeader.FindStringIndex(title); h != nil {
			title = title[:h[0]]
			bodyStart = loc[4] + h[0]
		}
	}

	body := prepared[bodyStart:]
	if end := planEnd.FindStringIndex(body); end != nil {
		body = body[:end[0]]
	}

	steps := ParseSteps(body)
	if len(steps) == 0 {
		return nil
	}
	return &models.PlanDraft{
		Title: strings.TrimSpace(textclean.StripMarkers(title)),
		Steps: steps,
	}
}

// ParseSteps reads "Step N:" records in source order, dropping steps whose
// day falls outside the accepted range or that have no title
func ParseSteps(body string) []models.PlanStep {
	heads := stepHeader.FindAllStringIndex(body, -1)
	steps := make([]models.PlanStep, 0, len(heads))
	for i, h := range heads {
		end := len(body)
		if i+1 < len(heads) {
			end = heads[i+1][0]
		}
		step, ok := parseStep(body[h[1]:end])
		if !ok {
			continue
		}
		steps = append(steps, step)
	}
	return steps
}

func parseStep(record string) (models.PlanStep, bool) {
	record = strings.TrimSpace(record)
	if first, _, multi := strings.Cut(record, "\n"); multi && strings.Contains(first, "|") {
		record = first
	}
	values := make(map[string]string, len(planFields))
	for i, part := range strings.Split(record, "|") {
		part = strings.TrimSpace(textclean.StripMarkers(part))
		part = strings.TrimSpace(strings.Trim(part, "[]"))
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		if !found || !isPlanField(key) {
			// Unlabelled fields follow the fixed order
			if i >= len(planFields) {
				continue
			}
			key, value = planFields[i], part
		}
		values[key] = strings.TrimSpace(strings.Trim(strings.TrimSpace(value), "[]"))
	}

	step := models.PlanStep{
		Time:                values["time"],
		Title:               values["title"],
		Description:         values["description"],
		CompletionCriterion: values["completion"],
		DayOffset:           DayNumber(values["day"]),
	}
	if strings.TrimSpace(step.Title) == "" || !dates.ValidOffset(step.DayOffset) {
		return models.PlanStep{}, false
	}
	return step, true
}

func isPlanField(key string) bool {
	for _, f := range planFields {
		if key == f {
			return true
		}
	}
	return false
}
