package models

// Ad is the stored metadata for a single advertisement. All fields except
// Impressions are immutable after creation; Impressions is only ever moved
// by the store's atomic increment.
type Ad struct {
	Slot        string `json:"slot"`
	ID          int64  `json:"id,string"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	Advertiser  string `json:"advertiser"`
	Destination string `json:"destination"`
	Impressions int64  `json:"impressions"`
}

// AdWithEndpoints is an Ad enriched with the derived URLs a client needs to
// fetch the asset, register an impression and follow the click redirect.
type AdWithEndpoints struct {
	Ad
	Asset    string `json:"asset"`
	Redirect string `json:"redirect"`
	Counter  string `json:"counter"`
}

// ClickEvent is one decoded line of an advertiser's click log. AdID stays a
// string: the log is the durable record and may reference ids that no longer
// resolve to a stored Ad.
type ClickEvent struct {
	AdID      string `json:"ad_id"`
	UserToken string `json:"user"`
	Agent     string `json:"agent"`
}
