package models

// Report is one advertiser-facing summary row. Ad is nil for rows that were
// reconstructed purely from the click log (the backing ad no longer exists);
// Breakdown is only populated by the final report.
type Report struct {
	Ad          *Ad        `json:"ad"`
	Clicks      int        `json:"clicks"`
	Impressions int64      `json:"impressions"`
	Breakdown   *Breakdown `json:"breakdown,omitempty"`
}

// Breakdown holds independent click frequency tables per dimension.
type Breakdown struct {
	Gender      map[string]int `json:"gender"`
	Agents      map[string]int `json:"agents"`
	Generations map[string]int `json:"generations"`
	Devices     map[string]int `json:"devices,omitempty"`
}

// NewBreakdown returns a Breakdown with every table allocated so callers can
// increment without nil checks.
func NewBreakdown() *Breakdown {
	return &Breakdown{
		Gender:      map[string]int{},
		Agents:      map[string]int{},
		Generations: map[string]int{},
		Devices:     map[string]int{},
	}
}
