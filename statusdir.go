package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// LoadStatusRecord reads one status file written by the hook. A torn or
// half-written file returns an error; callers treat that as "retry next
// cycle", since the hook rewrites the file on every event.
func LoadStatusRecord(path string) (StatusRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StatusRecord{}, errors.Wrap(err, "could not read status file")
	}
	var record StatusRecord
	err = json.Unmarshal(data, &record)
	if err != nil {
		return StatusRecord{}, errors.Wrap(err, "could not parse status file")
	}
	return record, nil
}

// LoadStatusDir scans dir for per-interface status files. Each file is
// stat-ed before and after the settle delay; a file whose mtime changed in
// between is mid-burst and skipped for this cycle.
func LoadStatusDir(dir string, settle time.Duration) (map[string]DFStatus, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "could not read status directory")
	}
	status := make(map[string]DFStatus)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, StatusFilePrefix) || !strings.HasSuffix(name, StatusFileSuffix) {
			continue
		}
		path := filepath.Join(dir, name)
		before, err := os.Stat(path)
		if err != nil {
			continue
		}
		if settle > 0 {
			time.Sleep(settle)
		}
		record, err := LoadStatusRecord(path)
		if err != nil {
			continue
		}
		after, err := os.Stat(path)
		if err != nil || !before.ModTime().Equal(after.ModTime()) {
			continue
		}
		status[record.Interface] = record.Status
	}
	return status, nil
}
