package extractor

import (
	"testing"

	"github.com/benvon/smart-calendar/internal/models"
)

func TestColorFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title  string
		offset int
		want   models.ColorTag
	}{
		{title: "Doctor Appointment", offset: 0, want: models.ColorUrgent},
		{title: "Wedding", offset: 1, want: models.ColorUrgent},
		{title: "Car Meet", offset: 5, want: models.ColorMeeting},
		{title: "Birthday Meeting", offset: 5, want: models.ColorBirthday},
		{title: "Dentist Appointment", offset: 2, want: models.ColorAppointment},
		{title: "Wedding", offset: 20, want: models.ColorCelebration},
		{title: "Math Exams", offset: 4, want: models.ColorExam},
		{title: "Book Club", offset: 9, want: models.ColorReading},
		{title: "Gardening", offset: 9, want: models.ColorDefault},
	}
	for _, tt := range tests {
		if got := ColorFor(tt.title, tt.offset); got != tt.want {
			t.Errorf("ColorFor(%q, %d) = %q, want %q", tt.title, tt.offset, got, tt.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title  string
		offset int
		want   string
	}{
		{title: "Wedding", offset: 14, want: "Wedding celebration"},
		{title: "Wedding", offset: 5, want: "Wedding celebration (soon!)"},
		{title: "Mom's Birthday", offset: 40, want: "Birthday celebration"},
		{title: "Car Meet", offset: 5, want: "Upcoming meeting"},
		{title: "Doctor Appointment", offset: 0, want: "Urgent appointment"},
		{title: "Job Interview", offset: 30, want: "Scheduled interview"},
		{title: "Gardening", offset: 2, want: "Upcoming: Gardening (in 2 days)"},
		{title: "Gardening", offset: 12, want: "Scheduled event: Gardening"},
	}
	for _, tt := range tests {
		if got := Describe(tt.title, tt.offset); got != tt.want {
			t.Errorf("Describe(%q, %d) = %q, want %q", tt.title, tt.offset, got, tt.want)
		}
	}
}
