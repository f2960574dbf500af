// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package changes

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/valyala/fastjson"
)

// Scanner limits for the change log. Patch text can make individual lines
// large.
const (
	readerInitialBuf = 64 * 1024
	readerMaxLine    = 16 * 1024 * 1024
)

// LogReader reads change events back out of the append-only JSONL log.
//
// The log is treated as opaque and possibly dirty: blank and malformed
// lines are skipped, not errors. Each line is pre-scanned with fastjson to
// reject junk and apply the service/time filter before paying for a full
// struct unmarshal.
type LogReader struct {
	path string
}

// NewLogReader creates a reader over the log at path.
func NewLogReader(path string) *LogReader {
	return &LogReader{path: path}
}

// ReadAll returns every well-formed event carrying a service id.
func (r *LogReader) ReadAll() ([]ChangeEvent, error) {
	return r.ReadSince(time.Time{})
}

// ReadSince returns events with ingested_at at or after cutoff. A zero
// cutoff disables the filter. Only a missing/unreadable file is an error.
func (r *LogReader) ReadSince(cutoff time.Time) ([]ChangeEvent, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open change log: %w", err)
	}
	defer f.Close()

	var (
		parser  fastjson.Parser
		out     []ChangeEvent
		skipped int
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, readerInitialBuf), readerMaxLine)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		v, err := parser.ParseBytes(line)
		if err != nil {
			skipped++
			continue
		}

		serviceID := string(v.GetStringBytes("service_id"))
		if serviceID == "" {
			skipped++
			continue
		}

		if !cutoff.IsZero() {
			ingestedAt, err := time.Parse(time.RFC3339, string(v.GetStringBytes("ingested_at")))
			if err != nil || ingestedAt.Before(cutoff) {
				skipped++
				continue
			}
		}

		var ev ChangeEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			skipped++
			continue
		}
		out = append(out, ev)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan change log: %w", err)
	}
	if skipped > 0 {
		slog.Debug("change log lines skipped", "path", r.path, "skipped", skipped)
	}
	return out, nil
}
