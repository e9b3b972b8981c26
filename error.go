package sitrapesca

import (
	"errors"
	"fmt"
)

// Workflow stage names, in execution order.
const (
	StageBrowser  = "browser"
	StageLogin    = "login"
	StagePanel    = "panel"
	StageNavigate = "navigate"
	StageOptions  = "options"
	StageDates    = "dates"
	StageGenerate = "generate"
)

// ErrElementNotFound is returned by script-driven lookups that matched nothing.
var ErrElementNotFound = errors.New("element not found")

// StageError identifies which part of the workflow aborted an account's run.
type StageError struct {
	Stage string
	Err   error
}

func (err StageError) Error() string {
	return fmt.Sprintf("%v: %v", err.Stage, err.Err)
}

func (err StageError) Unwrap() error {
	return err.Err
}

func stageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	return StageError{Stage: stage, Err: err}
}

// PanelNotFoundError is raised when the dashboard has no tile at the configured position.
type PanelNotFoundError struct {
	Index     int
	Available int
	Err       error
}

func (err PanelNotFoundError) Error() string {
	if err.Available < 0 {
		return fmt.Sprintf("panel #%d not found: %v", err.Index, err.Err)
	}
	return fmt.Sprintf("panel #%d not found (dashboard shows %d tiles): %v", err.Index, err.Available, err.Err)
}

func (err PanelNotFoundError) Unwrap() error {
	return err.Err
}

// ConfigError reports an unusable configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (err ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %v: %v", err.Field, err.Message)
}
