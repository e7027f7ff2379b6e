package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"
)

// Category represents a log category
type Category string

const (
	CategoryAPI       Category = "api"
	CategoryDB        Category = "db"
	CategoryFace      Category = "face"
	CategoryCluster   Category = "cluster"
	CategorySearch    Category = "search"
	CategoryScheduler Category = "scheduler"
	CategoryWebSocket Category = "websocket"
	CategoryStartup   Category = "startup"
)

// AllCategories lists every category in file read order
var AllCategories = []Category{
	CategoryAPI, CategoryDB, CategoryFace, CategoryCluster,
	CategorySearch, CategoryScheduler, CategoryWebSocket, CategoryStartup,
}

// Level represents log level
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelRank = map[Level]int{LevelDebug: 0, LevelInfo: 1, LevelWarn: 2, LevelError: 3}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     Level                  `json:"level"`
	Category  Category               `json:"category"`
	Action    string                 `json:"action"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	EventID   string                 `json:"event_id,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Duration  string                 `json:"duration,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Logger writes one JSON-lines file per category and day, plus an optional colored console copy
type Logger struct {
	mu       sync.Mutex
	logDir   string
	writers  map[Category]*os.File
	console  bool
	minLevel Level
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init initializes the default logger
func Init(logDir string, console bool) error {
	var err error
	once.Do(func() {
		defaultLogger, err = NewLogger(logDir, console)
	})
	return err
}

// NewLogger creates a new logger
func NewLogger(logDir string, console bool) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &Logger{
		logDir:   logDir,
		writers:  make(map[Category]*os.File),
		console:  console,
		minLevel: LevelDebug,
	}, nil
}

// SetMinLevel drops entries below the given level
func (l *Logger) SetMinLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := levelRank[level]; ok {
		l.minLevel = level
	}
}

// getWriter returns or creates today's file writer for the category
func (l *Logger) getWriter(category Category) (io.Writer, error) {
	today := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", category, today)

	if writer, exists := l.writers[category]; exists {
		if info, err := writer.Stat(); err == nil && info.Name() == filename {
			return writer, nil
		}
		writer.Close()
	}

	file, err := os.OpenFile(filepath.Join(l.logDir, filename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	l.writers[category] = file
	return file, nil
}

// Log writes a log entry
func (l *Logger) Log(entry LogEntry) {
	entry.Timestamp = time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if levelRank[entry.Level] < levelRank[l.minLevel] {
		return
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Printf("Error marshaling log entry: %v\n", err)
		return
	}

	writer, err := l.getWriter(entry.Category)
	if err != nil {
		fmt.Printf("Error getting log writer: %v\n", err)
	} else {
		fmt.Fprintln(writer, string(jsonData))
	}

	if l.console {
		printToConsole(entry)
	}
}

// printToConsole prints formatted log to console
func printToConsole(entry LogEntry) {
	levelColors := map[Level]string{
		LevelDebug: "\033[36m", // Cyan
		LevelInfo:  "\033[32m", // Green
		LevelWarn:  "\033[33m", // Yellow
		LevelError: "\033[31m", // Red
	}
	reset := "\033[0m"

	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]%s [%s] [%s] %s: %s",
		levelColors[entry.Level], entry.Level, reset,
		entry.Timestamp.Format("15:04:05.000"),
		entry.Category, entry.Action, entry.Message,
	)
	if entry.EventID != "" {
		fmt.Fprintf(&b, " (event: %s)", entry.EventID)
	}
	if entry.Duration != "" {
		fmt.Fprintf(&b, " (duration: %s)", entry.Duration)
	}
	if entry.Error != "" {
		fmt.Fprintf(&b, " ERROR: %s", entry.Error)
	}
	if len(entry.Data) > 0 {
		dataJSON, _ := json.MarshalIndent(entry.Data, "    ", "  ")
		fmt.Fprintf(&b, "\n    Data: %s", dataJSON)
	}
	fmt.Println(b.String())
}

// Close closes all file writers
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, writer := range l.writers {
		writer.Close()
	}
	l.writers = make(map[Category]*os.File)
}

// Default returns the default logger
func Default() *Logger {
	if defaultLogger == nil {
		dir := os.Getenv("LOG_DIR")
		if dir == "" {
			dir = "logs"
		}
		Init(dir, true)
	}
	return defaultLogger
}

// GetTypeName returns the dynamic type name of v, used when logging unexpected values
func GetTypeName(v interface{}) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}

// ReadLogsOptions options for reading logs
type ReadLogsOptions struct {
	Category Category // Filter by category (empty = all)
	Level    Level    // Filter by level (empty = all)
	Lines    int      // Number of lines to return (default 100)
	Search   string   // Search in message/action/error
	EventID  string   // Only entries of this event
}

// ReadLogs reads log entries from files
func ReadLogs(opts ReadLogsOptions) ([]LogEntry, error) {
	return Default().ReadLogs(opts)
}

// ReadLogs reads today's entries, newest first
func (l *Logger) ReadLogs(opts ReadLogsOptions) ([]LogEntry, error) {
	if opts.Lines <= 0 {
		opts.Lines = 100
	}
	if opts.Lines > 1000 {
		opts.Lines = 1000
	}

	today := time.Now().Format("2006-01-02")
	categories := AllCategories
	if opts.Category != "" {
		categories = []Category{opts.Category}
	}
	search := strings.ToLower(opts.Search)

	var entries []LogEntry
	for _, cat := range categories {
		data, err := os.ReadFile(filepath.Join(l.logDir, fmt.Sprintf("%s_%s.log", cat, today)))
		if err != nil {
			continue
		}

		for _, line := range strings.Split(string(data), "\n") {
			if line == "" {
				continue
			}
			var entry LogEntry
			if err := json.Unmarshal([]byte(line), &entry); err != nil {
				continue
			}
			if opts.Level != "" && entry.Level != opts.Level {
				continue
			}
			if opts.EventID != "" && entry.EventID != opts.EventID {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(entry.Message), search) &&
				!strings.Contains(strings.ToLower(entry.Action), search) &&
				!strings.Contains(strings.ToLower(entry.Error), search) {
				continue
			}
			entries = append(entries, entry)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if len(entries) > opts.Lines {
		entries = entries[:opts.Lines]
	}
	return entries, nil
}

// GetLogDir returns the log directory path
func GetLogDir() string {
	return Default().logDir
}

// ListLogFiles returns list of log files in the log directory
func (l *Logger) ListLogFiles() ([]string, error) {
	entries, err := os.ReadDir(l.logDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".log" {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}
