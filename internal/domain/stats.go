package domain

import (
	"fmt"
	"math"
)

// EngagementCounts holds the raw contact counters behind the dashboard.
type EngagementCounts struct {
	Total   int
	Opened  int
	Clicked int
}

// Stats is the aggregate open/click report.
type Stats struct {
	Total     int    `json:"total"`
	Opened    int    `json:"opened"`
	Clicked   int    `json:"clicked"`
	OpenRate  string `json:"openRate"`
	ClickRate string `json:"clickRate"`
}

// Stats converts raw counts into the report, formatting rates as
// percentages with one decimal place.
func (c EngagementCounts) Stats() Stats {
	return Stats{
		Total:     c.Total,
		Opened:    c.Opened,
		Clicked:   c.Clicked,
		OpenRate:  Rate(c.Opened, c.Total),
		ClickRate: Rate(c.Clicked, c.Total),
	}
}

// Rate formats part/total as a percentage with one decimal, "0%" when total
// is zero. Ties round half up (1/16 is "6.3%").
func Rate(part, total int) string {
	if total <= 0 {
		return "0%"
	}
	v := float64(part) * 100 / float64(total)
	return fmt.Sprintf("%.1f%%", math.Floor(v*10+0.5)/10)
}
