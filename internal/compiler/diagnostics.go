// Package compiler lowers internal/ast trees into linked
// internal/bytecode images: a post-order visitor plus an optimizer
// pass, reporting structured Diagnostics the way the teacher's CoreLX
// front end does.
package compiler

import "fmt"

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

type Stage string

const (
	StageOptimize Stage = "optimize"
	StageCodegen  Stage = "codegen"
	StageLink     Stage = "link"
)

type Category string

const (
	CategorySymbolError           Category = "SymbolError"
	CategoryDuplicateSymbol       Category = "DuplicateSymbolError"
	CategoryOverflowError         Category = "OverflowError"
	CategoryBackendCodegenError   Category = "BackendCodegenError"
	CategoryInternalCompilerError Category = "InternalCompilerError"
)

// Diagnostic is one structured compiler message.
type Diagnostic struct {
	Category Category
	Code     string
	Message  string
	Sprite   string
	Script   int
	Severity Severity
	Stage    Stage
}

func (d Diagnostic) Error() string {
	if d.Sprite != "" {
		return fmt.Sprintf("%s: %s: %s", d.Sprite, d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// DiagnosticsError wraps one or more fatal Diagnostics as a Go error.
type DiagnosticsError struct {
	Diagnostics []Diagnostic
}

func (e *DiagnosticsError) Error() string {
	if e == nil || len(e.Diagnostics) == 0 {
		return ""
	}
	return e.Diagnostics[0].Error()
}

// HasErrors reports whether any diagnostic in diags is severity error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func internalCompilerDiagnostic(stage Stage, sprite string, r interface{}) Diagnostic {
	return Diagnostic{
		Category: CategoryInternalCompilerError,
		Code:     "E_INTERNAL",
		Message:  fmt.Sprintf("panic during %s: %v", stage, r),
		Sprite:   sprite,
		Severity: SeverityError,
		Stage:    stage,
	}
}
