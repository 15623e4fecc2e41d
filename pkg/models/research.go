package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// DefaultResearchLogLimit is the number of research log entries returned by default.
const DefaultResearchLogLimit = 20

// JSONStringArray is a []string stored as a JSON array in a TEXT column.
type JSONStringArray []string

// Scan implements sql.Scanner.
func (a *JSONStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("JSONStringArray: unsupported type %T", value)
	}

	if len(data) == 0 {
		*a = nil
		return nil
	}
	return json.Unmarshal(data, a)
}

// Value implements driver.Valuer.
func (a JSONStringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// ResearchLogEntry records one bulk import of researched ideas.
type ResearchLogEntry struct {
	SearchTerm        string          `json:"search_term"`
	Source            string          `json:"source"`
	ResearchedAt      string          `json:"researched_at"`
	Findings          JSONStringArray `json:"findings"`
	ID                int64           `json:"id"`
	ResearchedAtEpoch int64           `json:"researched_at_epoch"`
}

// NewResearchLogEntry creates a log entry stamped with the current time.
func NewResearchLogEntry(searchTerm, source string, findings []string) *ResearchLogEntry {
	now := time.Now()
	return &ResearchLogEntry{
		SearchTerm:        searchTerm,
		Source:            source,
		Findings:          JSONStringArray(findings),
		ResearchedAt:      now.Format(time.RFC3339),
		ResearchedAtEpoch: now.UnixMilli(),
	}
}
