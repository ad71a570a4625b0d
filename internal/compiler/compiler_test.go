package compiler

import (
	"testing"

	"scratchvm/internal/ast"
	"scratchvm/internal/bytecode"
)

func flagIncrementProgram() *ast.Program {
	stage := &ast.Sprite{
		Name:    "Stage",
		IsStage: true,
		Size:    100,
		Visible: true,
	}
	sprite := &ast.Sprite{
		Name:      "Sprite1",
		Size:      100,
		Visible:   true,
		Variables: []ast.VarDecl{{Name: "counter", Initial: "0"}},
		Scripts: []*ast.Script{
			{
				Hat: ast.OnFlag{},
				Body: []ast.Statement{
					ast.SetVar{Var: "counter", Value: ast.NumberLit{Value: 0}},
					ast.RepeatCount{
						Count: ast.NumberLit{Value: 10},
						Body: []ast.Statement{
							ast.ChangeVar{Var: "counter", Value: ast.NumberLit{Value: 1}},
						},
					},
				},
			},
		},
	}
	return &ast.Program{Stage: stage, Sprites: []*ast.Sprite{sprite}}
}

func TestCompileProducesLoadableImage(t *testing.T) {
	res, err := Compile(flagIncrementProgram(), nil)
	if err != nil {
		t.Fatalf("Compile returned error: %v (diags=%+v)", err, res.Diagnostics)
	}
	if HasErrors(res.Diagnostics) {
		t.Fatalf("unexpected error diagnostics: %+v", res.Diagnostics)
	}
	if len(res.Image) == 0 {
		t.Fatal("expected non-empty image")
	}
	if res.Manifest == nil {
		t.Fatal("expected a manifest")
	}

	img, err := bytecode.Load(res.Image)
	if err != nil {
		t.Fatalf("failed to reload linked image: %v", err)
	}
	if len(img.Text()) == 0 {
		t.Fatal("expected non-empty .text segment")
	}
}

func TestCompileDuplicateVariableIsDiagnosed(t *testing.T) {
	prog := flagIncrementProgram()
	prog.Sprites[0].Variables = append(prog.Sprites[0].Variables, ast.VarDecl{Name: "counter"})

	_, err := Compile(prog, nil)
	if err == nil {
		t.Fatal("expected duplicate-declaration error")
	}
}

func TestCompileUnresolvedProcedureCallIsDiagnosed(t *testing.T) {
	prog := flagIncrementProgram()
	prog.Sprites[0].Scripts[0].Body = append(prog.Sprites[0].Scripts[0].Body,
		ast.ProcedureCall{Target: procKey("Sprite1", "does-not-exist")})

	_, err := Compile(prog, nil)
	if err == nil {
		t.Fatal("expected unresolved-call error")
	}
}

func TestOptimizeFoldsConstantArithmetic(t *testing.T) {
	body := []ast.Statement{
		ast.SetVar{Var: "x", Value: ast.BinaryOp{Op: "add", L: ast.NumberLit{Value: 2}, R: ast.NumberLit{Value: 3}}},
	}
	out := optimizeScript(body, OptimizeFull)
	sv, ok := out[0].(ast.SetVar)
	if !ok {
		t.Fatalf("expected SetVar, got %T", out[0])
	}
	lit, ok := sv.Value.(ast.NumberLit)
	if !ok || lit.Value != 5 {
		t.Fatalf("expected folded literal 5, got %#v", sv.Value)
	}
}

func TestOptimizeEliminatesDeadIfBranch(t *testing.T) {
	body := []ast.Statement{
		ast.If{Cond: ast.BoolLit{Value: false}, Then: []ast.Statement{ast.Op{Name: "show"}}},
	}
	out := optimizeScript(body, OptimizeFull)
	if len(out) != 0 {
		t.Fatalf("expected dead branch eliminated, got %+v", out)
	}
}

func TestOptimizeCollapsesSingleIterationRepeat(t *testing.T) {
	body := []ast.Statement{
		ast.RepeatCount{Count: ast.NumberLit{Value: 1}, Body: []ast.Statement{ast.Op{Name: "show"}}},
	}
	out := optimizeScript(body, OptimizeFull)
	if len(out) != 1 {
		t.Fatalf("expected one collapsed statement, got %d", len(out))
	}
	rc, ok := out[0].(ast.RepeatCount)
	if !ok || len(rc.Body) != 1 {
		t.Fatalf("expected collapsed wrapper with body, got %#v", out[0])
	}
}
