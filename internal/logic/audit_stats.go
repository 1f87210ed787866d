package logic

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/openhoops/match-predictor/internal/models"
)

// AuditStatsService aggregates the prediction audit trail
type AuditStatsService interface {
	AuditStats(ctx context.Context, req models.AuditQuery) ([]models.AuditBucket, error)
}

type auditStatsService struct {
	ch     driver.Conn
	logger *zap.SugaredLogger
}

func NewAuditStatsService(ch driver.Conn, logger *zap.Logger) AuditStatsService {
	return &auditStatsService{ch: ch, logger: logger.Sugar()}
}

func (s *auditStatsService) AuditStats(ctx context.Context, req models.AuditQuery) ([]models.AuditBucket, error) {
	query, args, err := BuildAuditQuery(req)
	if err != nil {
		return nil, err
	}

	rows, err := s.ch.Query(ctx, query, args...)
	if err != nil {
		s.logger.Errorw("Audit query failed", "dimension", req.Dimension, "metric", req.Metric, "error", err)
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	defer rows.Close()

	buckets := []models.AuditBucket{}
	for rows.Next() {
		var b models.AuditBucket
		if err := rows.Scan(&b.Value, &b.Count, &b.Label); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buckets, nil
}
