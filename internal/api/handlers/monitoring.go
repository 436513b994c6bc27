package handlers

import (
	"context"
	"time"

	"civic-portal/internal/config"
	"civic-portal/internal/models"
	"civic-portal/internal/services"
	"civic-portal/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const healthTimeout = 3 * time.Second

// MonitoringHandler serves health, statistics and database diagnostics.
type MonitoringHandler struct {
	*Page
	db           *gorm.DB
	gw           *store.Gateway
	cfg          *config.Config
	statsService *services.StatsService
}

func NewMonitoringHandler(page *Page, db *gorm.DB, gw *store.Gateway, cfg *config.Config, statsService *services.StatsService) *MonitoringHandler {
	return &MonitoringHandler{
		Page:         page,
		db:           db,
		gw:           gw,
		cfg:          cfg,
		statsService: statsService,
	}
}

type columnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// Health reports whether the database answers.
func (h *MonitoringHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.gw.Ping(ctx); err != nil {
		h.entry(c).WithError(err).Warn("health check failed")
		c.JSON(503, gin.H{"status": "unhealthy", "database": "unreachable"})
		return
	}
	c.JSON(200, gin.H{"status": "healthy", "database": h.cfg.Database.Type})
}

// GetStats returns the public counters as JSON.
func (h *MonitoringHandler) GetStats(c *gin.Context) {
	c.JSON(200, h.statsService.API(c.Request.Context()))
}

// DebugDB shows the active backend, row counts per table and pool usage.
func (h *MonitoringHandler) DebugDB(c *gin.Context) {
	tables, err := models.TableNames(h.db)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to resolve tables", "details": err.Error()})
		return
	}

	resp := gin.H{
		"type":   h.cfg.Database.Type,
		"driver": h.gw.DriverName(),
		"counts": h.statsService.TableCounts(c.Request.Context(), tables),
	}
	if sqlDB, err := h.db.DB(); err == nil {
		stats := sqlDB.Stats()
		resp["pool"] = gin.H{
			"open":            stats.OpenConnections,
			"in_use":          stats.InUse,
			"idle":            stats.Idle,
			"wait_count":      stats.WaitCount,
			"max_open":        stats.MaxOpenConnections,
			"wait_duration_s": stats.WaitDuration.Seconds(),
		}
	}
	c.JSON(200, resp)
}

// DebugDBStructure lists every table with its columns.
func (h *MonitoringHandler) DebugDBStructure(c *gin.Context) {
	migrator := h.db.WithContext(c.Request.Context()).Migrator()
	tables, err := migrator.GetTables()
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to list tables", "details": err.Error()})
		return
	}

	structure := make(map[string][]columnInfo, len(tables))
	for _, table := range tables {
		types, err := migrator.ColumnTypes(table)
		if err != nil {
			h.entry(c).WithError(err).WithField("table", table).Warn("failed to read columns")
			continue
		}
		cols := make([]columnInfo, 0, len(types))
		for _, ct := range types {
			nullable, _ := ct.Nullable()
			cols = append(cols, columnInfo{Name: ct.Name(), Type: ct.DatabaseTypeName(), Nullable: nullable})
		}
		structure[table] = cols
	}

	c.JSON(200, gin.H{"type": h.cfg.Database.Type, "tables": structure})
}
