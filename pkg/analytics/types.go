package analytics

import (
	"fmt"
	"time"
)

// ActionType enumerates the trackable user interactions.
type ActionType string

const (
	ActionView        ActionType = "view"
	ActionAbout       ActionType = "about"
	ActionInstall     ActionType = "install"
	ActionCopyCommand ActionType = "copy_command"
)

// Valid reports whether the action type is one of the four known values.
func (a ActionType) Valid() bool {
	switch a {
	case ActionView, ActionAbout, ActionInstall, ActionCopyCommand:
		return true
	}
	return false
}

// Weight returns the action's contribution to the popularity score. Install
// and copy actions signal deeper engagement than a view, so they weigh more.
func (a ActionType) Weight() int64 {
	switch a {
	case ActionView:
		return 1
	case ActionAbout:
		return 2
	case ActionInstall:
		return 3
	case ActionCopyCommand:
		return 5
	}
	return 0
}

// AllActionTypes lists every trackable action.
var AllActionTypes = []ActionType{ActionView, ActionAbout, ActionInstall, ActionCopyCommand}

// Event is a single user interaction submitted for tracking.
type Event struct {
	AppName    string                 `json:"appName"`
	ActionType ActionType             `json:"actionType"`
	Timestamp  int64                  `json:"timestamp,omitempty"` // epoch milliseconds
	SessionID  string                 `json:"sessionId,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// TrackedEvent acknowledges a recorded event back to the caller.
type TrackedEvent struct {
	App       string     `json:"app"`
	Action    ActionType `json:"action"`
	Timestamp int64      `json:"timestamp"`
}

// PopularApp is one entry in a popularity ranking.
type PopularApp struct {
	Name             string `json:"name"`
	ViewCount        int64  `json:"view_count"`
	AboutCount       int64  `json:"about_count"`
	InstallCount     int64  `json:"install_count"`
	CopyCommandCount int64  `json:"copy_command_count"`
	LastActivity     int64  `json:"last_activity"`
	Score            int64  `json:"score"`
}

// PopularResult carries a ranking along with the window it covers.
type PopularResult struct {
	Timeframe   string       `json:"timeframe"`
	Apps        []PopularApp `json:"popular_apps"`
	TotalFound  int          `json:"total_found"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// GlobalStats holds all-time interaction totals.
type GlobalStats struct {
	TotalViews        int64 `json:"total_views"`
	TotalAbouts       int64 `json:"total_abouts"`
	TotalInstalls     int64 `json:"total_installs"`
	TotalCopyCommands int64 `json:"total_copy_commands"`
	TotalInteractions int64 `json:"total_interactions"`
	UniqueApps        int64 `json:"unique_apps"`
}

// DailyStats holds a single day's interaction totals, including per-app
// breakdown for that day.
type DailyStats struct {
	Date              string           `json:"date"`
	TotalViews        int64            `json:"total_views"`
	TotalAbouts       int64            `json:"total_abouts"`
	TotalInstalls     int64            `json:"total_installs"`
	TotalCopyCommands int64            `json:"total_copy_commands"`
	Apps              map[string]int64 `json:"apps,omitempty"`
}

// StatsSnapshot is the full stats report returned by the stats endpoint.
type StatsSnapshot struct {
	Global      GlobalStats `json:"global"`
	Today       DailyStats  `json:"today"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// RecentEvent is the JSON record kept on each app's capped recent-events list.
type RecentEvent struct {
	Action    ActionType `json:"action"`
	Timestamp int64      `json:"timestamp"`
}

// ValidationError indicates a request failed input validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
