package models

import "time"

// AuditQuery asks for an aggregate over the prediction audit trail.
type AuditQuery struct {
	Dimension    string    `json:"dimension"` // model_version, home_team, away_team, winner, feature_source, day
	Metric       string    `json:"metric"`    // predictions, confidence, home_win_prob, home_pick_rate
	ModelVersion string    `json:"model_version"`
	TeamID       int64     `json:"team_id"` // either side of the matchup
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Limit        int       `json:"limit"`
}

// AuditBucket is one group of an audit aggregate.
type AuditBucket struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Count uint64  `json:"count"`
}
