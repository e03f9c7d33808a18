package tba

import "slices"

// AppVersions holds mobile app version requirements.
type AppVersions struct {
	MinAppVersion    int `json:"min_app_version"`
	LatestAppVersion int `json:"latest_app_version"`
}

// Status is the upstream API status document.
type Status struct {
	CurrentSeason  int         `json:"current_season"`
	MaxSeason      int         `json:"max_season"`
	DownEvents     []string    `json:"down_events"`
	IsDatafeedDown bool        `json:"is_datafeed_down"`
	IOS            AppVersions `json:"ios"`
	Android        AppVersions `json:"android"`
}

// IsEventDown reports whether the feed for an event is flagged as down.
func (s *Status) IsEventDown(eventKey string) bool {
	return slices.Contains(s.DownEvents, eventKey)
}
