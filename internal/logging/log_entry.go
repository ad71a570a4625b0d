// Package logging is the VM's centralized logger: a circular buffer
// fed by a background goroutine, gated per component and level. It is
// adapted from the teacher's internal/debug logger, renamed to the
// components this runtime actually has.
package logging

import (
	"fmt"
	"time"
)

// Level is the severity of a log entry.
type Level int

const (
	LevelNone Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "NONE"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// Component names the subsystem that produced an entry.
type Component string

const (
	ComponentCompiler    Component = "Compiler"
	ComponentScheduler   Component = "Scheduler"
	ComponentInterpreter Component = "Interpreter"
	ComponentSprite      Component = "Sprite"
	ComponentRender      Component = "Render"
	ComponentAudio       Component = "Audio"
	ComponentHost        Component = "Host"
)

// Entry is a single log record.
type Entry struct {
	Timestamp time.Time
	Component Component
	Level     Level
	Message   string
	Data      map[string]interface{}
}

func (e *Entry) Format() string {
	ts := e.Timestamp.Format("15:04:05.000")
	return fmt.Sprintf("[%s] [%s] %s: %s", ts, e.Component, e.Level, e.Message)
}
