package admin

import (
	"os"
	"strings"
)

// LogTail is the admin view of the service log file.
type LogTail struct {
	Lines []string    `json:"lines"`
	Meta  LogTailMeta `json:"meta"`
}

// LogTailMeta describes the tailed file.
type LogTailMeta struct {
	File   string `json:"file"`
	Exists bool   `json:"exists"`
	Limit  int    `json:"limit"`
}

const (
	defaultLogLimit = 300
	maxLogLimit     = 2000
)

// TailLogFile returns the last limit non-empty lines of the log file,
// newest first. A missing file is reported, not an error; the dashboard
// polls this endpoint and a 500 per poll would be noise.
func TailLogFile(path string, limit int) LogTail {
	if limit < 1 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return LogTail{
			Lines: []string{"log file not found: " + path},
			Meta:  LogTailMeta{File: path, Exists: false, Limit: limit},
		}
	}

	all := strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(all))
	for _, line := range all {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	// Newest on top.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return LogTail{Lines: lines, Meta: LogTailMeta{File: path, Exists: true, Limit: limit}}
}
