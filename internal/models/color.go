package models

import "strings"

// ColorTag is one of the fixed palette entries used to render events
type ColorTag string

const (
	ColorUrgent      ColorTag = "urgent"
	ColorBirthday    ColorTag = "birthday"
	ColorMeeting     ColorTag = "meeting"
	ColorAppointment ColorTag = "appointment"
	ColorCelebration ColorTag = "celebration"
	ColorExam        ColorTag = "exam"
	ColorReading     ColorTag = "reading"
	ColorPlan        ColorTag = "plan"
	ColorDefault     ColorTag = "default"
)

var colorHex = map[ColorTag]string{
	ColorUrgent:      "#dc2626",
	ColorBirthday:    "#FF6B6B",
	ColorMeeting:     "#4ECDC4",
	ColorAppointment: "#45B7D1",
	ColorCelebration: "#96CEB4",
	ColorExam:        "#FFEAA7",
	ColorReading:     "#A29BFE",
	ColorPlan:        "#3b82f6",
	ColorDefault:     "#DDA0DD",
}

// ValidColorTags lists every palette entry
var ValidColorTags = []ColorTag{
	ColorUrgent,
	ColorBirthday,
	ColorMeeting,
	ColorAppointment,
	ColorCelebration,
	ColorExam,
	ColorReading,
	ColorPlan,
	ColorDefault,
}

// IsValid reports whether c is a palette entry
func (c ColorTag) IsValid() bool {
	_, ok := colorHex[c]
	return ok
}

// Hex returns the display color, falling back to the default palette entry
func (c ColorTag) Hex() string {
	if h, ok := colorHex[c]; ok {
		return h
	}
	return colorHex[ColorDefault]
}

// ColorTagFromHex maps a backend color back to its palette entry
func ColorTagFromHex(hex string) ColorTag {
	for _, tag := range ValidColorTags {
		if strings.EqualFold(colorHex[tag], hex) {
			return tag
		}
	}
	return ColorDefault
}
