package core

import (
	"testing"
	"time"
)

func TestTimeScanner(t *testing.T) {
	ts := &TimeScanner{}

	// Test string
	dateStr := "2026-01-15 16:08:38"
	err := ts.Scan(dateStr)
	if err != nil {
		t.Errorf("Failed to scan string: %v", err)
	}
	if !ts.Valid {
		t.Error("Expected Valid=true")
	}
	// Verify value (Local time)
	expected, _ := time.ParseInLocation("2006-01-02 15:04:05", dateStr, time.Local)
	if !ts.Value.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, ts.Value)
	}

	// Test bytes
	err = ts.Scan([]byte(dateStr))
	if err != nil {
		t.Errorf("Failed to scan bytes: %v", err)
	}
	if !ts.Valid || !ts.Value.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, ts.Value)
	}

	// sqlite3 text format with zone
	err = ts.Scan("2024-03-01 10:30:00+00:00")
	if err != nil {
		t.Errorf("Failed to scan zoned string: %v", err)
	}
	if !ts.Value.Equal(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected zoned value %v", ts.Value)
	}

	// Test zero date
	if err := ts.Scan("0000-00-00 00:00:00"); err != nil || ts.Valid {
		t.Errorf("Expected invalid zero date, got valid=%v err=%v", ts.Valid, err)
	}

	// Test empty string
	if err := ts.Scan(""); err != nil || ts.Valid {
		t.Errorf("Expected invalid empty string, got valid=%v err=%v", ts.Valid, err)
	}

	// Test time.Time (direct)
	now := time.Now()
	if err := ts.Scan(now); err != nil || !ts.Value.Equal(now) {
		t.Errorf("Expected %v, got %v (%v)", now, ts.Value, err)
	}

	// Test nil
	if err := ts.Scan(nil); err != nil || ts.Valid {
		t.Errorf("Expected invalid nil, got valid=%v err=%v", ts.Valid, err)
	}

	if err := ts.Scan(42); err == nil {
		t.Error("Expected error for int source")
	}
	if err := ts.Scan("yesterday"); err == nil {
		t.Error("Expected error for unparsable string")
	}
}
