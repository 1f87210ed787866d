package logic

import (
	"errors"
	"fmt"

	"github.com/openhoops/match-predictor/internal/models"
)

// ErrInvalidAuditQuery is returned for unknown dimensions or metrics.
var ErrInvalidAuditQuery = errors.New("invalid audit query")

// allowedDimensions maps safe API values to SQL expressions
var allowedDimensions = map[string]string{
	"model_version":  "model_version",
	"home_team":      "home_team",
	"away_team":      "away_team",
	"winner":         "if(predicted_winner_id = home_team_id, home_team, away_team)",
	"feature_source": "feature_source",
	"day":            "toString(toDate(timestamp))",
}

// allowedMetrics maps safe API values to aggregate expressions
var allowedMetrics = map[string]string{
	"predictions":    "toFloat64(count())",
	"confidence":     "avg(confidence)",
	"home_win_prob":  "avg(home_win_prob)",
	"home_pick_rate": "avg(predicted_winner_id = home_team_id)",
}

// BuildAuditQuery constructs a safe ClickHouse query over prediction_audit.
// Every row scans into value, count and label.
func BuildAuditQuery(req models.AuditQuery) (string, []interface{}, error) {
	groupBy, ok := allowedDimensions[req.Dimension]
	if !ok && req.Dimension != "" {
		return "", nil, fmt.Errorf("%w: dimension %q", ErrInvalidAuditQuery, req.Dimension)
	}

	metric := req.Metric
	if metric == "" {
		metric = "predictions"
	}
	selectClause, ok := allowedMetrics[metric]
	if !ok {
		return "", nil, fmt.Errorf("%w: metric %q", ErrInvalidAuditQuery, req.Metric)
	}
	if !req.Start.IsZero() && !req.End.IsZero() && req.End.Before(req.Start) {
		return "", nil, fmt.Errorf("%w: end before start", ErrInvalidAuditQuery)
	}

	query := fmt.Sprintf("SELECT %s AS value, count() AS n", selectClause)
	var args []interface{}

	if groupBy != "" {
		query += fmt.Sprintf(", %s AS label", groupBy)
	} else {
		query += ", 'all' AS label"
	}

	query += " FROM prediction_audit WHERE 1=1"

	if req.ModelVersion != "" {
		query += " AND model_version = ?"
		args = append(args, req.ModelVersion)
	}
	if req.TeamID != 0 {
		query += " AND (home_team_id = ? OR away_team_id = ?)"
		args = append(args, req.TeamID, req.TeamID)
	}
	if !req.Start.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, req.Start)
	}
	if !req.End.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, req.End)
	}

	if groupBy != "" {
		query += " GROUP BY label"
	}

	if req.Dimension == "day" {
		query += " ORDER BY label ASC"
	} else {
		query += " ORDER BY value DESC, label ASC"
	}

	limit := req.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	return query, args, nil
}
