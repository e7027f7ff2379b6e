package logger

// Helper functions for common log operations

func write(level Level, category Category, action, message string, err error, data map[string]interface{}) {
	entry := LogEntry{
		Level:    level,
		Category: category,
		Action:   action,
		Message:  message,
		Data:     data,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if data != nil {
		if id, ok := data["event_id"].(string); ok {
			entry.EventID = id
		}
	}
	Default().Log(entry)
}

// Face logs detection pipeline events
func Face(action, message string, data map[string]interface{}) {
	write(LevelInfo, CategoryFace, action, message, nil, data)
}

// FaceWarn logs recoverable detection problems
func FaceWarn(action, message string, data map[string]interface{}) {
	write(LevelWarn, CategoryFace, action, message, nil, data)
}

// FaceError logs detection errors
func FaceError(action, message string, err error, data map[string]interface{}) {
	write(LevelError, CategoryFace, action, message, err, data)
}

// Cluster logs clustering and merge pass events
func Cluster(action, message string, data map[string]interface{}) {
	write(LevelInfo, CategoryCluster, action, message, nil, data)
}

// ClusterWarn logs faces skipped by the clustering engine
func ClusterWarn(action, message string, data map[string]interface{}) {
	write(LevelWarn, CategoryCluster, action, message, nil, data)
}

// ClusterError logs clustering errors
func ClusterError(action, message string, err error, data map[string]interface{}) {
	write(LevelError, CategoryCluster, action, message, err, data)
}

// Search logs find-yourself searches
func Search(action, message string, data map[string]interface{}) {
	write(LevelInfo, CategorySearch, action, message, nil, data)
}

// SearchError logs search errors
func SearchError(action, message string, err error, data map[string]interface{}) {
	write(LevelError, CategorySearch, action, message, err, data)
}

// Scheduler logs scheduled job events
func Scheduler(action, message string, data map[string]interface{}) {
	write(LevelInfo, CategoryScheduler, action, message, nil, data)
}

// SchedulerWarn logs scheduler warnings
func SchedulerWarn(action, message string, data map[string]interface{}) {
	write(LevelWarn, CategoryScheduler, action, message, nil, data)
}

// SchedulerError logs scheduler errors
func SchedulerError(action, message string, err error, data map[string]interface{}) {
	write(LevelError, CategoryScheduler, action, message, err, data)
}

// WebSocket logs WebSocket related events
func WebSocket(action, message string, data map[string]interface{}) {
	write(LevelInfo, CategoryWebSocket, action, message, nil, data)
}

// WebSocketError logs WebSocket errors
func WebSocketError(action, message string, err error, data map[string]interface{}) {
	write(LevelError, CategoryWebSocket, action, message, err, data)
}

// API logs API request/response events
func API(action, message string, data map[string]interface{}) {
	write(LevelInfo, CategoryAPI, action, message, nil, data)
}

// APIError logs failed requests
func APIError(action, message string, err error, data map[string]interface{}) {
	write(LevelError, CategoryAPI, action, message, err, data)
}

// DB logs database operations
func DB(action, message string, data map[string]interface{}) {
	write(LevelDebug, CategoryDB, action, message, nil, data)
}

// Startup logs startup events
func Startup(action, message string, data map[string]interface{}) {
	write(LevelInfo, CategoryStartup, action, message, nil, data)
}

// StartupError logs startup errors
func StartupError(action, message string, err error, data map[string]interface{}) {
	write(LevelError, CategoryStartup, action, message, err, data)
}

// StartupWarn logs startup warnings
func StartupWarn(action, message string, data map[string]interface{}) {
	write(LevelWarn, CategoryStartup, action, message, nil, data)
}

// Info logs an info message for any category
func Info(category Category, action, message string, data map[string]interface{}) {
	write(LevelInfo, category, action, message, nil, data)
}

// Error logs an error for any category
func Error(category Category, action, message string, err error, data map[string]interface{}) {
	write(LevelError, category, action, message, err, data)
}

// Debug logs a debug message for any category
func Debug(category Category, action, message string, data map[string]interface{}) {
	write(LevelDebug, category, action, message, nil, data)
}

// Warn logs a warning for any category
func Warn(category Category, action, message string, data map[string]interface{}) {
	write(LevelWarn, category, action, message, nil, data)
}
