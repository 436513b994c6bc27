package services

import (
	"context"
	"strconv"

	"civic-portal/internal/logger"
	"civic-portal/internal/models"
	"civic-portal/internal/store"
)

// StatsService computes dashboard counters on every call. A failing counter
// reads as zero so a page can still render.
type StatsService struct {
	gw  *store.Gateway
	log *logger.Logger
}

func NewStatsService(gw *store.Gateway, log *logger.Logger) *StatsService {
	return &StatsService{gw: gw, log: log}
}

type counter struct {
	key   string
	query string
	args  []interface{}
}

func (s *StatsService) collect(ctx context.Context, counters []counter) map[string]int64 {
	out := make(map[string]int64, len(counters))
	for _, c := range counters {
		out[c.key] = s.count(ctx, c)
	}
	return out
}

func (s *StatsService) count(ctx context.Context, c counter) int64 {
	rows, err := s.gw.Execute(ctx, c.query, c.args...)
	if err != nil || len(rows) == 0 {
		if err != nil {
			s.log.WithError(err).WithField("stat", c.key).Warn("statistics query failed")
		}
		return 0
	}
	n, err := strconv.ParseInt(rows[0].String("n"), 10, 64)
	if err != nil {
		s.log.WithError(err).WithField("stat", c.key).Warn("statistics value is not a number")
		return 0
	}
	return n
}

// Public feeds the landing page.
func (s *StatsService) Public(ctx context.Context) map[string]int64 {
	return s.collect(ctx, []counter{
		{"total_reportes", "SELECT COUNT(*) AS n FROM reports", nil},
		{"reportes_resueltos", "SELECT COUNT(*) AS n FROM reports WHERE status = ?", []interface{}{models.ReportResolved}},
		{"proyectos_activos", "SELECT COUNT(*) AS n FROM projects WHERE status = ? AND active = ?", []interface{}{models.ProjectInProgress, true}},
	})
}

// Dashboard feeds /admin.
func (s *StatsService) Dashboard(ctx context.Context) map[string]int64 {
	return s.collect(ctx, []counter{
		{"total_usuarios", "SELECT COUNT(*) AS n FROM users", nil},
		{"total_reportes", "SELECT COUNT(*) AS n FROM reports", nil},
		{"reportes_pendientes", "SELECT COUNT(*) AS n FROM reports WHERE status = ?", []interface{}{models.ReportPending}},
		{"total_denuncias", "SELECT COUNT(*) AS n FROM complaints", nil},
		{"denuncias_revision", "SELECT COUNT(*) AS n FROM complaints WHERE status = ?", []interface{}{models.ComplaintInReview}},
		{"total_contactos", "SELECT COUNT(*) AS n FROM contact_messages WHERE status = ?", []interface{}{models.ContactNew}},
	})
}

// API feeds /api/estadisticas.
func (s *StatsService) API(ctx context.Context) map[string]int64 {
	return s.collect(ctx, []counter{
		{"total_usuarios", "SELECT COUNT(*) AS n FROM users", nil},
		{"total_reportes", "SELECT COUNT(*) AS n FROM reports", nil},
		{"reportes_pendientes", "SELECT COUNT(*) AS n FROM reports WHERE status = ?", []interface{}{models.ReportPending}},
		{"reportes_resueltos", "SELECT COUNT(*) AS n FROM reports WHERE status = ?", []interface{}{models.ReportResolved}},
		{"total_denuncias", "SELECT COUNT(*) AS n FROM complaints", nil},
		{"total_proyectos", "SELECT COUNT(*) AS n FROM projects", nil},
	})
}

// ForUser feeds the profile page.
func (s *StatsService) ForUser(ctx context.Context, userID uint) map[string]int64 {
	return s.collect(ctx, []counter{
		{"total_reportes", "SELECT COUNT(*) AS n FROM reports WHERE user_id = ?", []interface{}{userID}},
		{"total_denuncias", "SELECT COUNT(*) AS n FROM complaints WHERE user_id = ?", []interface{}{userID}},
		{"reportes_resueltos", "SELECT COUNT(*) AS n FROM reports WHERE user_id = ? AND status = ?", []interface{}{userID, models.ReportResolved}},
	})
}

// TableCounts returns row counts per table for diagnostics.
func (s *StatsService) TableCounts(ctx context.Context, tables []string) map[string]int64 {
	counters := make([]counter, 0, len(tables))
	for _, t := range tables {
		counters = append(counters, counter{key: t, query: "SELECT COUNT(*) AS n FROM " + t})
	}
	return s.collect(ctx, counters)
}
