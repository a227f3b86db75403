package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esrt/pkg/ast"
	"esrt/pkg/errors"
	"esrt/pkg/source"
)

func parse(t *testing.T, code string) *ast.Module {
	t.Helper()
	m, err := ParseModule(source.NewSourceFile("test.mjs", "/test.mjs", code))
	require.NoError(t, err)
	return m
}

func TestImportEntries(t *testing.T) {
	m := parse(t, `
import def from "./a.js";
import * as ns from "./b.js";
import { x, y as z, "str name" as s } from "./a.js";
import other, { w } from "./c.js";
import "./side.js";
`)
	want := []ast.ImportEntry{
		{ModuleRequest: "./a.js", ImportName: "default", LocalName: "def"},
		{ModuleRequest: "./b.js", ImportName: "*", LocalName: "ns"},
		{ModuleRequest: "./a.js", ImportName: "x", LocalName: "x"},
		{ModuleRequest: "./a.js", ImportName: "y", LocalName: "z"},
		{ModuleRequest: "./a.js", ImportName: "str name", LocalName: "s"},
		{ModuleRequest: "./c.js", ImportName: "default", LocalName: "other"},
		{ModuleRequest: "./c.js", ImportName: "w", LocalName: "w"},
	}
	if diff := cmp.Diff(want, m.ImportEntries); diff != "" {
		t.Errorf("import entries mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"./a.js", "./b.js", "./c.js", "./side.js"}, m.RequestedModules)
}

func TestExportEntries(t *testing.T) {
	m := parse(t, `
export const a = 1, b = 2;
export function f() {}
export class C {}
let local = 3;
export { local as renamed, local };
export { x as y } from "./x.js";
export * from "./star.js";
export * as ns from "./ns.js";
export default 42;
`)
	want := []ast.ExportEntry{
		{ExportName: "a", LocalName: "a"},
		{ExportName: "b", LocalName: "b"},
		{ExportName: "f", LocalName: "f"},
		{ExportName: "C", LocalName: "C"},
		{ExportName: "renamed", LocalName: "local"},
		{ExportName: "local", LocalName: "local"},
		{ExportName: "y", ModuleRequest: "./x.js", ImportName: "x"},
		{ModuleRequest: "./star.js", ImportName: "*"},
		{ExportName: "ns", ModuleRequest: "./ns.js", ImportName: "*"},
		{ExportName: "default", LocalName: ast.DefaultLocalName},
	}
	if diff := cmp.Diff(want, m.ExportEntries); diff != "" {
		t.Errorf("export entries mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"./x.js", "./star.js", "./ns.js"}, m.RequestedModules)

	kinds := map[string]ast.DeclKind{}
	for _, d := range m.Declarations {
		kinds[d.Name] = d.Kind
	}
	assert.Equal(t, map[string]ast.DeclKind{
		"a": ast.DeclConst, "b": ast.DeclConst, "f": ast.DeclFunction, "C": ast.DeclClass,
		"local": ast.DeclLet, ast.DefaultLocalName: ast.DeclLet,
	}, kinds)
}

func TestExportDefaultForms(t *testing.T) {
	m := parse(t, `export default function () { return 1; }`)
	require.Len(t, m.Declarations, 1)
	d := m.Declarations[0]
	assert.Equal(t, ast.DeclFunction, d.Kind)
	assert.Equal(t, ast.DefaultLocalName, d.Name)
	assert.Equal(t, "default", d.Function.Name)

	m = parse(t, `export default function named() {}`)
	assert.Equal(t, []ast.ExportEntry{{ExportName: "default", LocalName: "named"}}, m.ExportEntries)

	m = parse(t, `export default class extends Base {}`)
	require.Len(t, m.Declarations, 1)
	assert.Equal(t, ast.DeclClass, m.Declarations[0].Kind)
	assert.True(t, m.Declarations[0].Function.Derived)
	cls := m.Body[0].(*ast.ClassStatement)
	assert.Equal(t, ast.DefaultLocalName, cls.Name)

	m = parse(t, `export default () => 1;`)
	init := m.Body[0].(*ast.VarStatement).Init.(*ast.FunctionExpr)
	assert.Equal(t, "default", init.Function.Name)
}

func TestDuplicateExportIsSyntaxError(t *testing.T) {
	_, err := ParseModule(source.NewEvalSource(`export const a = 1; export { a };`))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindSyntax))
}

func TestSyntaxErrorPosition(t *testing.T) {
	_, err := ParseModule(source.NewEvalSource("const ok = 1;\nlet = = ;"))
	var se *errors.SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Line)
}

func TestFunctionFlags(t *testing.T) {
	m := parse(t, `
function plain(a, b = 1, ...rest) {
  var v = arguments.length;
  let l = 1;
  const k = 2;
  function inner() { var hidden; }
  if (a) { var nested; }
  return plain(a);
}
function* gen() { yield 1; }
async function af() { await 1; }
`)
	byName := map[string]*ast.FunctionNode{}
	for _, d := range m.Declarations {
		byName[d.Name] = d.Function
	}
	plain := byName["plain"]
	require.NotNil(t, plain)
	assert.True(t, plain.Strict, "module code is strict")
	assert.Equal(t, []string{"a", "b", "rest"}, plain.Params)
	assert.Equal(t, []string{"v", "nested"}, plain.VarNames)
	assert.Equal(t, []ast.LexicalName{{Name: "l"}, {Name: "k", Const: true}}, plain.LexicalNames)
	require.Len(t, plain.Functions, 1)
	assert.Equal(t, "inner", plain.Functions[0].Name)
	assert.True(t, plain.UsesArguments)
	assert.Equal(t, "function plain(a, b = 1, ...rest)", plain.HeaderSource)

	ret := plain.Body[len(plain.Body)-1].(*ast.ReturnStatement)
	assert.True(t, ret.Arg.(*ast.CallExpr).Tail)

	assert.True(t, byName["gen"].Generator)
	assert.False(t, byName["gen"].Async)
	assert.True(t, byName["af"].Async)
	yield := byName["gen"].Body[0].(*ast.ExprStatement).X.(*ast.YieldExpr)
	assert.Equal(t, "yield 1", yield.String())
}

func TestArrowArgumentsBelongToEnclosingFunction(t *testing.T) {
	m := parse(t, `function outer() { const f = () => arguments[0]; var x; }`)
	outer := m.Declarations[0].Function
	assert.True(t, outer.UsesArguments)
	assert.Equal(t, []string{"x"}, outer.VarNames)
	f := outer.Body[0].(*ast.VarStatement).Init.(*ast.FunctionExpr).Function
	assert.Equal(t, ast.ArrowFunction, f.Kind)
	assert.Equal(t, "f", f.Name)
}

func TestClasses(t *testing.T) {
	m := parse(t, `
class Base { constructor(x) { this.x = x; } get g() { return 1; } static make() { return new Base(1); } area() { return 0; } }
class Derived extends Base {}
`)
	base := m.Body[0].(*ast.ClassStatement)
	assert.Equal(t, ast.ClassConstructor, base.Constructor.Kind)
	assert.Equal(t, "Base", base.Constructor.Name)
	assert.Equal(t, []string{"x"}, base.Constructor.Params)
	require.Len(t, base.Methods, 2)
	assert.Equal(t, "make", base.Methods[0].Function.Name)
	assert.True(t, base.Methods[0].Static)
	assert.Equal(t, "area", base.Methods[1].Function.Name)

	derived := m.Body[1].(*ast.ClassStatement)
	assert.True(t, derived.Constructor.Derived)
	call := derived.Constructor.Body[0].(*ast.ExprStatement).X.(*ast.SuperCall)
	assert.True(t, call.ForwardArguments)
	assert.Equal(t, "Base", derived.Heritage.String())
}

func TestLiterals(t *testing.T) {
	m := parse(t, `
const s = "a\nA\u{1F600}\x41😀";
const n = [0x10, 1_000, .5, 0b11, 1e3];
const o = { a: 1, "b c": 2, 3: "three", short, m() { return 1; } };
const t = `+"`tmpl`"+`;
`)
	lit := func(i int) ast.Expr { return m.Body[i].(*ast.VarStatement).Init }
	assert.Equal(t, "a\nA\U0001F600A\U0001F600", lit(0).(*ast.Literal).Str)

	var nums []float64
	for _, e := range lit(1).(*ast.ArrayLiteral).Elements {
		nums = append(nums, e.(*ast.Literal).Number)
	}
	assert.Equal(t, []float64{16, 1000, 0.5, 3, 1000}, nums)

	var keys []string
	for _, p := range lit(2).(*ast.ObjectLiteral).Properties {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"a", "b c", "3", "short", "m"}, keys)
	assert.Equal(t, "tmpl", lit(3).(*ast.Literal).Str)
}

func TestUnsupportedSyntaxIsKept(t *testing.T) {
	m := parse(t, `for (let i = 0; i < 3; i++) {}`)
	require.Len(t, m.Body, 1)
	u, ok := m.Body[0].(*ast.ExprStatement).X.(*ast.Unsupported)
	require.True(t, ok)
	assert.Contains(t, u.Text, "for (let i")
}

func TestDestructuringDeclarationsBindNames(t *testing.T) {
	m := parse(t, `export const { a, b: [c, d = 1], ...e } = obj;`)
	var names []string
	for _, entry := range m.ExportEntries {
		names = append(names, entry.ExportName)
	}
	assert.Equal(t, []string{"a", "c", "d", "e"}, names)
}
