package models

// Enums lists the selectors and verdicts the API understands, with display labels.
type Enums struct {
	Locale      string          `json:"locale"`
	Metrics     []EnumValue     `json:"metrics"`
	DayCounts   []DayCountValue `json:"dayCounts"`
	Assessments []EnumValue     `json:"assessments"`
}

// EnumValue is a string enum value and its label.
type EnumValue struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// DayCountValue is a forecast window and its label.
type DayCountValue struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}
