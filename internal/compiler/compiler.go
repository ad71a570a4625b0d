package compiler

import (
	"scratchvm/internal/ast"
	"scratchvm/internal/bytecode"
)

// Options configures a compile pass, mirroring the teacher's
// CompileOptions/CompileResult driver shape (internal/corelx/compiler.go).
type Options struct {
	OptimizeLevel OptimizeLevel
}

func defaultOptions() Options {
	return Options{OptimizeLevel: OptimizeFull}
}

// Result is everything a compile pass produces.
type Result struct {
	Image       []byte
	Manifest    *bytecode.Manifest
	Diagnostics []Diagnostic
}

// Compile lowers prog into a linked CSB3 image. Panics during codegen
// are converted into an InternalCompilerError diagnostic rather than
// propagating, matching the teacher's CompileSource recover-and-report
// pattern.
func Compile(prog *ast.Program, opts *Options) (result *Result, err error) {
	cfg := defaultOptions()
	if opts != nil {
		cfg = *opts
	}

	defer func() {
		if r := recover(); r != nil {
			diag := internalCompilerDiagnostic(StageCodegen, "", r)
			if result == nil {
				result = &Result{}
			}
			result.Diagnostics = append(result.Diagnostics, diag)
			err = &DiagnosticsError{Diagnostics: result.Diagnostics}
		}
	}()

	img, diags, cerr := compileProgram(prog, cfg.OptimizeLevel)
	result = &Result{Image: img, Diagnostics: diags}
	if cerr != nil {
		return result, cerr
	}

	loaded, lerr := bytecode.Load(img)
	if lerr != nil {
		diag := Diagnostic{
			Category: CategoryBackendCodegenError,
			Code:     "E_LINK_VERIFY",
			Message:  lerr.Error(),
			Severity: SeverityError,
			Stage:    StageLink,
		}
		result.Diagnostics = append(result.Diagnostics, diag)
		return result, &DiagnosticsError{Diagnostics: result.Diagnostics}
	}
	result.Manifest = bytecode.BuildManifest(loaded)
	return result, nil
}
