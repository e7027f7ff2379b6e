package handlers

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"eventfaces/pkg/logger"
	"eventfaces/pkg/utils"
)

// LogHandler serves the structured log files. Routes are guarded by the admin token.
type LogHandler struct{}

func NewLogHandler() *LogHandler {
	return &LogHandler{}
}

// GetLogs returns log entries
// @Summary Get application logs
// @Tags Admin
// @Security AdminToken
// @Param lines query int false "Number of lines" default(100)
// @Param level query string false "Minimum level (DEBUG, INFO, WARN, ERROR)"
// @Param category query string false "Filter by category (face, cluster, search, api, db, scheduler, websocket, startup)"
// @Param event_id query string false "Filter by event"
// @Param search query string false "Search in message/action"
// @Router /api/v1/admin/logs [get]
func (h *LogHandler) GetLogs(c *fiber.Ctx) error {
	opts := logger.ReadLogsOptions{
		Lines:    c.QueryInt("lines", 100),
		Level:    logger.Level(c.Query("level")),
		Category: logger.Category(c.Query("category")),
		EventID:  c.Query("event_id"),
		Search:   c.Query("search"),
	}

	entries, err := logger.ReadLogs(opts)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read logs", err)
	}

	return utils.SuccessResponse(c, "Logs retrieved", fiber.Map{
		"entries": entries,
		"count":   len(entries),
		"filters": fiber.Map{
			"lines":    opts.Lines,
			"level":    opts.Level,
			"category": opts.Category,
			"event_id": opts.EventID,
			"search":   opts.Search,
		},
	})
}

func (h *LogHandler) GetLogFiles(c *fiber.Ctx) error {
	files, err := logger.Default().ListLogFiles()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list log files", err)
	}

	return utils.SuccessResponse(c, "Log files retrieved", fiber.Map{
		"files":  files,
		"logDir": logger.GetLogDir(),
	})
}

// GetLogStats counts the most recent entries by level and category
func (h *LogHandler) GetLogStats(c *fiber.Ctx) error {
	allLogs, _ := logger.ReadLogs(logger.ReadLogsOptions{Lines: 1000})

	levelCounts := map[string]int{
		"DEBUG": 0,
		"INFO":  0,
		"WARN":  0,
		"ERROR": 0,
	}
	categoryCounts := map[string]int{}
	for _, entry := range allLogs {
		levelCounts[string(entry.Level)]++
		categoryCounts[string(entry.Category)]++
	}

	var totalSize int64
	files, _ := logger.Default().ListLogFiles()
	logDir := logger.GetLogDir()
	for _, f := range files {
		if info, err := os.Stat(filepath.Join(logDir, f)); err == nil {
			totalSize += info.Size()
		}
	}

	return utils.SuccessResponse(c, "Log stats retrieved", fiber.Map{
		"total_entries":    len(allLogs),
		"by_level":         levelCounts,
		"by_category":      categoryCounts,
		"total_files":      len(files),
		"total_size_bytes": totalSize,
	})
}
