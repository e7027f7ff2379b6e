package logger

import (
	"errors"
	"testing"
)

func TestLogger_WriteAndRead(t *testing.T) {
	l, err := NewLogger(t.TempDir(), false)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer l.Close()

	l.Log(LogEntry{Level: LevelInfo, Category: CategoryCluster, Action: "assign", Message: "Clustered 3 faces"})
	l.Log(LogEntry{Level: LevelError, Category: CategoryFace, Action: "detect", Message: "Provider failed", Error: errors.New("timeout").Error()})
	l.Log(LogEntry{Level: LevelInfo, Category: CategoryFace, Action: "detect", Message: "Found 2 faces", EventID: "evt-1"})

	all, err := l.ReadLogs(ReadLogsOptions{})
	if err != nil {
		t.Fatalf("ReadLogs: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.After(all[i-1].Timestamp) {
			t.Error("entries must be newest first")
		}
	}

	tests := []struct {
		name string
		opts ReadLogsOptions
		want int
	}{
		{name: "by category", opts: ReadLogsOptions{Category: CategoryFace}, want: 2},
		{name: "by level", opts: ReadLogsOptions{Level: LevelError}, want: 1},
		{name: "search is case insensitive", opts: ReadLogsOptions{Search: "TIMEOUT"}, want: 1},
		{name: "line limit", opts: ReadLogsOptions{Lines: 1}, want: 1},
		{name: "by event", opts: ReadLogsOptions{EventID: "evt-1"}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.ReadLogs(tt.opts)
			if err != nil {
				t.Fatalf("ReadLogs: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}

	files, err := l.ListLogFiles()
	if err != nil {
		t.Fatalf("ListLogFiles: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 log files, got %v", files)
	}
}

func TestLogger_MinLevel(t *testing.T) {
	l, err := NewLogger(t.TempDir(), false)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer l.Close()

	l.SetMinLevel(LevelWarn)
	l.Log(LogEntry{Level: LevelDebug, Category: CategoryDB, Action: "query", Message: "select"})
	l.Log(LogEntry{Level: LevelWarn, Category: CategoryDB, Action: "slow", Message: "slow query"})

	got, _ := l.ReadLogs(ReadLogsOptions{})
	if len(got) != 1 || got[0].Action != "slow" {
		t.Errorf("expected only the warning, got %+v", got)
	}
}

func TestGetTypeName(t *testing.T) {
	if GetTypeName(nil) != "nil" {
		t.Error("nil should be reported as nil")
	}
	if GetTypeName(42) != "int" {
		t.Errorf("GetTypeName(42) = %s", GetTypeName(42))
	}
}
