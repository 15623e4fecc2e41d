// Package models contains domain models for idea-tracker.
package models

import (
	"fmt"
	"strings"
	"time"
)

// IdeaStatus represents the review state of an idea.
type IdeaStatus string

const (
	StatusNew         IdeaStatus = "new"
	StatusInteresting IdeaStatus = "interesting"
	StatusValidated   IdeaStatus = "validated"
	StatusReject      IdeaStatus = "reject"
)

// AllStatuses returns every known status in display order.
func AllStatuses() []IdeaStatus {
	return []IdeaStatus{StatusNew, StatusInteresting, StatusValidated, StatusReject}
}

func (s IdeaStatus) String() string { return string(s) }

// IsValid reports whether s is one of the known statuses.
func (s IdeaStatus) IsValid() bool {
	switch s {
	case StatusNew, StatusInteresting, StatusValidated, StatusReject:
		return true
	}
	return false
}

// Label returns the human-readable label shown in the dashboard.
func (s IdeaStatus) Label() string {
	switch s {
	case StatusNew:
		return "Neu"
	case StatusInteresting:
		return "Interessant"
	case StatusValidated:
		return "Validiert"
	case StatusReject:
		return "Verwerfen"
	}
	return string(s)
}

// ParseIdeaStatus converts raw input into an IdeaStatus. Only the exact
// lower-case values are accepted; anything else is rejected with a ValidationError.
func ParseIdeaStatus(raw string) (IdeaStatus, error) {
	s := IdeaStatus(raw)
	if !s.IsValid() {
		return "", NewValidationError("status", fmt.Sprintf("unknown status %q", raw))
	}
	return s, nil
}

// Idea is a tracked business idea.
type Idea struct {
	Title             string     `json:"title"`
	Problem           string     `json:"problem"`
	Description       string     `json:"description,omitempty"`
	ExistingSolutions string     `json:"existing_solutions,omitempty"`
	Source            string     `json:"source,omitempty"`
	Category          string     `json:"category,omitempty"`
	ResearchNotes     string     `json:"research_notes,omitempty"`
	Status            IdeaStatus `json:"status"`
	CreatedAt         string     `json:"created_at"`
	UpdatedAt         string     `json:"updated_at"`
	ID                int64      `json:"id"`
	CreatedAtEpoch    int64      `json:"created_at_epoch"`
	UpdatedAtEpoch    int64      `json:"updated_at_epoch"`
}

// NewIdea creates an idea with trimmed fields and status new.
// Timestamps are assigned by the store on insert.
func NewIdea(title, problem string) *Idea {
	return &Idea{
		Title:   strings.TrimSpace(title),
		Problem: strings.TrimSpace(problem),
		Status:  StatusNew,
	}
}

// Normalize trims surrounding whitespace from every text field.
func (i *Idea) Normalize() {
	i.Title = strings.TrimSpace(i.Title)
	i.Problem = strings.TrimSpace(i.Problem)
	i.Description = strings.TrimSpace(i.Description)
	i.ExistingSolutions = strings.TrimSpace(i.ExistingSolutions)
	i.Source = strings.TrimSpace(i.Source)
	i.Category = strings.TrimSpace(i.Category)
	i.ResearchNotes = strings.TrimSpace(i.ResearchNotes)
}

// Validate checks the required fields of an idea.
func (i *Idea) Validate() error {
	var errs []FieldError
	if strings.TrimSpace(i.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "required"})
	}
	if strings.TrimSpace(i.Problem) == "" {
		errs = append(errs, FieldError{Field: "problem", Message: "required"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

// Created returns the creation time parsed from the epoch.
func (i *Idea) Created() time.Time {
	return time.UnixMilli(i.CreatedAtEpoch)
}

// Updated returns the last update time parsed from the epoch.
func (i *Idea) Updated() time.Time {
	return time.UnixMilli(i.UpdatedAtEpoch)
}

// CreatedDate returns the creation date as YYYY-MM-DD in local time.
func (i *Idea) CreatedDate() string {
	if i.CreatedAtEpoch == 0 {
		return ""
	}
	return i.Created().Format(time.DateOnly)
}

// Stats holds aggregate idea counts.
type Stats struct {
	Total       int64 `json:"total"`
	New         int64 `json:"new"`
	Interesting int64 `json:"interesting"`
	Validated   int64 `json:"validated"`
	Rejected    int64 `json:"rejected"`
}

// Add increments the counter for status by n. Total is always incremented.
func (s *Stats) Add(status IdeaStatus, n int64) {
	s.Total += n
	switch status {
	case StatusNew:
		s.New += n
	case StatusInteresting:
		s.Interesting += n
	case StatusValidated:
		s.Validated += n
	case StatusReject:
		s.Rejected += n
	}
}

// Count returns the counter for a single status.
func (s *Stats) Count(status IdeaStatus) int64 {
	switch status {
	case StatusNew:
		return s.New
	case StatusInteresting:
		return s.Interesting
	case StatusValidated:
		return s.Validated
	case StatusReject:
		return s.Rejected
	}
	return 0
}
