package extractor

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/benvon/smart-calendar/internal/models"
)

// Thursday
var fixedNow = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

func newTestExtractor() *Extractor {
	return New(WithClock(func() time.Time { return fixedNow }))
}

const categoriesResponse = `**Part 1: Response**
That sounds like a great weekend!
**Part 2: Memory**
User likes cars.!.
**Part 3: Categories**
Calendar: 5 days from today Car Meet.!.
Plan X!@: none)*!`

func TestExtractStructuredTag(t *testing.T) {
	t.Parallel()

	res := newTestExtractor().Extract(categoriesResponse, "I'm going to a car meet on Tuesday")
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(res.Events), res.Events)
	}
	ev := res.Events[0]
	if ev.Title != "Car Meet" || ev.DayOffset != 5 {
		t.Errorf("event = %q +%d, want Car Meet +5", ev.Title, ev.DayOffset)
	}
	if ev.ColorTag != models.ColorMeeting {
		t.Errorf("ColorTag = %q, want meeting", ev.ColorTag)
	}
	if ev.Signature != "carmeet_5" {
		t.Errorf("Signature = %q, want carmeet_5", ev.Signature)
	}
	if res.Plan != nil {
		t.Errorf("suppressed plan should not be extracted, got %+v", res.Plan)
	}
	if res.Response != "That sounds like a great weekend!" {
		t.Errorf("Response = %q", res.Response)
	}
}

func TestExtractSeveralTagsOnOneLine(t *testing.T) {
	t.Parallel()

	text := "**Part 3: Categories**\nCalendar: 2 days from today Dentist. Calendar: 5 days from today Gym Session"
	res := newTestExtractor().Extract(text, "Book these")
	if len(res.Events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(res.Events), res.Events)
	}
	want := []struct {
		title  string
		offset int
	}{{"Dentist", 2}, {"Gym Session", 5}}
	for i, w := range want {
		if got := res.Events[i]; got.Title != w.title || got.DayOffset != w.offset {
			t.Errorf("event %d = %q +%d, want %q +%d", i, got.Title, got.DayOffset, w.title, w.offset)
		}
	}
}

func TestExtractUrgentOverride(t *testing.T) {
	t.Parallel()

	res := newTestExtractor().Extract("Calendar: 0 days from today Doctor Appointment.!.", "I see the doctor today")
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(res.Events))
	}
	if res.Events[0].ColorTag != models.ColorUrgent {
		t.Errorf("ColorTag = %q, want urgent", res.Events[0].ColorTag)
	}
	if res.Events[0].Title != "Doctor Appointment" {
		t.Errorf("Title = %q", res.Events[0].Title)
	}
}

func TestExtractQuestionSuppression(t *testing.T) {
	t.Parallel()

	response := "**Part 3: Categories**\nCalendar: 30 days from today Sister's Wedding.!."
	res := newTestExtractor().Extract(response, "When is my sister's wedding?")
	if len(res.Events) != 0 {
		t.Errorf("question produced events: %+v", res.Events)
	}
	if res.Events == nil {
		t.Error("Events should be an empty slice, not nil")
	}
}

func TestExtractFallbackFromInput(t *testing.T) {
	t.Parallel()

	res := newTestExtractor().Extract("Congratulations! Let me know if you need help.", "I have a wedding in 2 weeks")
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(res.Events), res.Events)
	}
	if res.Events[0].Title != "Wedding" || res.Events[0].DayOffset != 14 {
		t.Errorf("event = %q +%d, want Wedding +14", res.Events[0].Title, res.Events[0].DayOffset)
	}
	if res.Events[0].ColorTag != models.ColorCelebration {
		t.Errorf("ColorTag = %q, want celebration", res.Events[0].ColorTag)
	}
}

func TestExtractFallbackPrefersResponse(t *testing.T) {
	t.Parallel()

	res := newTestExtractor().Extract("Good luck with the job interview tomorrow.", "I have a dentist appointment in 3 days")
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(res.Events), res.Events)
	}
	if res.Events[0].Title != "Job Interview" || res.Events[0].DayOffset != 1 {
		t.Errorf("event = %q +%d, want Job Interview +1", res.Events[0].Title, res.Events[0].DayOffset)
	}
}

func TestExtractDeduplicates(t *testing.T) {
	t.Parallel()

	response := "**Part 3: Categories**\n" +
		"Calendar: 5 days from today Car Meet.!.\n" +
		"1. Calendar: 5 days from today car meet!)*!\n" +
		"Calendar: 5 days from today Calendar Car Meet.!.\n"
	res := newTestExtractor().Extract(response, "car meet soon")
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(res.Events), res.Events)
	}
}

func TestExtractOffsetBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		offset string
		want   int
	}{
		{offset: "0", want: 1},
		{offset: "365", want: 1},
		{offset: "366", want: 0},
		{offset: "-1", want: 0},
	}
	for _, tt := range tests {
		res := newTestExtractor().Extract("Calendar: "+tt.offset+" days from today Board Meeting.!.", "noted")
		if len(res.Events) != tt.want {
			t.Errorf("offset %s: got %d events, want %d", tt.offset, len(res.Events), tt.want)
		}
	}
}

func TestExtractRejectsBadTitles(t *testing.T) {
	t.Parallel()

	for _, title := range []string{"None", "the", "a b", "12", "?!", "Part 3: Categories", "x"} {
		res := newTestExtractor().Extract("Calendar: 3 days from today "+title+".!.", "ok")
		for _, ev := range res.Events {
			if strings.EqualFold(ev.Title, title) {
				t.Errorf("title %q should have been rejected", title)
			}
		}
	}
}

func TestExtractDeterministic(t *testing.T) {
	t.Parallel()

	inputs := []struct{ response, input string }{
		{categoriesResponse, "car meet"},
		{"Calendar: 2 days from today Exam.!.\nCalendar: 9 days from today Book Club.!.", "exams"},
		{"Sure.", "dinner party on friday and a concert next month"},
	}
	e := newTestExtractor()
	for _, in := range inputs {
		a := e.Extract(in.response, in.input)
		b := e.Extract(in.response, in.input)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Extract not deterministic for %q:\n%+v\n%+v", in.input, a, b)
		}
	}
}

func TestExtractPlanScenario(t *testing.T) {
	t.Parallel()

	response := `**Part 1: Response**
Here is a plan to get ready.
**Part 3: Categories**
Calendar: None.!..!.
Plan: [Trip Prep]
Step 1: [Time: 9:00 AM] | [Title: Book flights] | [Description: Compare fares] | [Completion: Tickets emailed] | [Day: 0 days from today]
Step 2: [Time: 6:00 PM] | [Title: Pack bags] | [Description: Clothes and chargers] | [Completion: Bag zipped] | [Day: 2]
Step 3: [Time: 7:00 AM] | [Title: Leave for airport] | [Description: Taxi] | [Completion: Checked in] | [Day: 3 days from today]
)*!`

	res := newTestExtractor().Extract(response, "Help me plan my trip")
	if res.Plan == nil {
		t.Fatal("expected a plan")
	}
	if res.Plan.Title != "Trip Prep" {
		t.Errorf("Plan.Title = %q", res.Plan.Title)
	}
	if len(res.Plan.Steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(res.Plan.Steps))
	}
	want := []models.PlanStep{
		{Time: "9:00 AM", Title: "Book flights", Description: "Compare fares", CompletionCriterion: "Tickets emailed", DayOffset: 0},
		{Time: "6:00 PM", Title: "Pack bags", Description: "Clothes and chargers", CompletionCriterion: "Bag zipped", DayOffset: 2},
		{Time: "7:00 AM", Title: "Leave for airport", Description: "Taxi", CompletionCriterion: "Checked in", DayOffset: 3},
	}
	if !reflect.DeepEqual(res.Plan.Steps, want) {
		t.Errorf("steps = %+v\nwant %+v", res.Plan.Steps, want)
	}
	if res.Response != "Here is a plan to get ready." {
		t.Errorf("Response = %q", res.Response)
	}
}

func TestExtractHandlesEscapedText(t *testing.T) {
	t.Parallel()

	response := `**Part 1: Response**\nHave fun at the \"Car Meet\"!\n**Part 3: Categories**\nCalendar: 5 days from today Car Meet.!.`
	res := newTestExtractor().Extract(response, "car meet")
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(res.Events))
	}
	if res.Response != `Have fun at the "Car Meet"!` {
		t.Errorf("Response = %q", res.Response)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	t.Parallel()

	res := newTestExtractor().Extract("", "")
	if len(res.Events) != 0 || res.Plan != nil || res.Response != "" {
		t.Errorf("unexpected result for empty input: %+v", res)
	}
}
