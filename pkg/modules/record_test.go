package modules

import (
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esrt/pkg/ast"
	"esrt/pkg/errors"
	"esrt/pkg/vm"
)

func newTestLoader(t *testing.T, files map[string]string, opts ...LoaderOption) *Loader {
	t.Helper()
	mem := NewMemoryResolver("test")
	for p, src := range files {
		mem.AddModule(p, src)
	}
	realm := vm.NewAgent().NewRealm()
	l, err := NewLoader(realm, append([]LoaderOption{WithResolvers(mem)}, opts...)...)
	require.NoError(t, err)
	return l
}

func load(t *testing.T, l *Loader, specifier string) *SourceTextModuleRecord {
	t.Helper()
	m, err := l.Load(specifier)
	require.NoError(t, err)
	return m
}

func evaluate(t *testing.T, l *Loader, specifier string) *SourceTextModuleRecord {
	t.Helper()
	m, err := l.LoadAndEvaluate(specifier)
	require.NoError(t, err)
	return m
}

func nsGet(t *testing.T, m *SourceTextModuleRecord, name string) vm.Value {
	t.Helper()
	ns, err := m.Namespace()
	require.NoError(t, err)
	v, err := ns.Get(vm.StringKey(name), vm.ObjectValue(ns))
	require.NoError(t, err)
	return v
}

func TestExportEntryClassification(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"/main.js": `
import { a as b } from "./x.js";
import * as ns from "./y.js";
export { b, ns };
export let c = 1;
export * from "./z.js";
export * as w from "./w.js";
export { q as r } from "./q.js";
`,
	})
	m := load(t, l, "./main.js")

	assert.Equal(t, SourceIdentifier("/main.js"), m.ID())
	assert.Equal(t, []string{"./x.js", "./y.js", "./z.js", "./w.js", "./q.js"}, m.RequestedModules())

	if diff := cmp.Diff([]ast.ExportEntry{
		{ExportName: "ns", LocalName: "ns"},
		{ExportName: "c", LocalName: "c"},
	}, m.LocalExportEntries()); diff != "" {
		t.Errorf("local exports (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ast.ExportEntry{
		{ExportName: "b", ModuleRequest: "./x.js", ImportName: "a"},
		{ExportName: "r", ModuleRequest: "./q.js", ImportName: "q"},
	}, m.IndirectExportEntries()); diff != "" {
		t.Errorf("indirect exports (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ast.ExportEntry{
		{ModuleRequest: "./z.js", ImportName: ast.StarName},
	}, m.StarExportEntries()); diff != "" {
		t.Errorf("star exports (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ast.ExportEntry{
		{ExportName: "w", ModuleRequest: "./w.js", ImportName: ast.StarName},
	}, m.NamespaceExportEntries()); diff != "" {
		t.Errorf("namespace exports (-want +got):\n%s", diff)
	}
}

func TestStatusTransitions(t *testing.T) {
	l := newTestLoader(t, map[string]string{"/a.js": `export const x = 1;`})
	node := load(t, l, "/a.js").AST()

	m := ParseModule(l, "/copy.js", node, l.compiler, nil)
	assert.Equal(t, StatusUnlinked, m.Status())
	assert.True(t, errors.IsKind(m.Instantiate(), errors.KindType), "instantiate before linking")

	_, err := m.Evaluate()
	assert.True(t, errors.IsKind(err, errors.KindType), "evaluate before instantiation")

	linked := load(t, l, "/a.js")
	assert.Equal(t, StatusLinked, linked.Status())
	assert.Equal(t, "linked", linked.Status().String())
	assert.Error(t, linked.SetRealm(l.Realm()), "a record is linked once")

	require.NoError(t, linked.Instantiate())
	assert.Equal(t, StatusInstantiated, linked.Status())
	_, err = linked.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, StatusEvaluated, linked.Status())
}

func TestResolveExportThroughIndirection(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"/impl.js":  `export let value = 42;`,
		"/mid.js":   `import { value as v } from "./impl.js"; export { v as renamed };`,
		"/outer.js": `export { renamed as final } from "./mid.js";`,
	})
	outer := load(t, l, "/outer.js")

	r, err := outer.Resolve("final")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, SourceIdentifier("/impl.js"), r.Module.ID())
	assert.Equal(t, "value", r.BindingName)
	assert.Equal(t, "/impl.js:value", r.String())

	r, err = outer.Resolve("missing")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestCircularIndirectExportIsUnresolvable(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"/a.js":    `export { x } from "./b.js";`,
		"/b.js":    `export { x } from "./a.js";`,
		"/main.js": `import { x } from "./a.js";`,
	})
	a := load(t, l, "/a.js")

	r, err := a.Resolve("x")
	require.NoError(t, err)
	assert.Nil(t, r, "a cycle of re-exports resolves to nothing")

	main := load(t, l, "/main.js")
	err = main.Instantiate()
	require.Error(t, err)
	var re *errors.ResolutionError
	require.True(t, stderrors.As(err, &re))
	assert.Equal(t, "x", re.Name)
}

func TestStarExportNeverProvidesDefault(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"/dep.js":  `export default 1; export const v = 2;`,
		"/main.js": `export * from "./dep.js";`,
	})
	main := load(t, l, "/main.js")

	names, err := main.GetExportedNames(make(StarSet))
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, names)

	_, err = main.Resolve("default")
	assert.True(t, errors.IsKind(err, errors.KindResolution), "missing default is a resolution error, got %v", err)

	r, err := main.Resolve("v")
	require.NoError(t, err)
	assert.Equal(t, SourceIdentifier("/dep.js"), r.Module.ID())
}

func TestAmbiguousStarExports(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"/a.js":      `export const x = 1; export const onlyA = 1;`,
		"/b.js":      `export const x = 2;`,
		"/c.js":      `export * from "./a.js";`,
		"/both.js":   `export * from "./a.js"; export * from "./b.js";`,
		"/same.js":   `export * from "./a.js"; export * from "./c.js";`,
		"/user.js":   `import { x } from "./both.js";`,
		"/shadow.js": `export * from "./a.js"; export * from "./b.js"; export const x = 3;`,
	})

	both := load(t, l, "/both.js")
	r, err := both.Resolve("x")
	require.NoError(t, err)
	assert.Same(t, Ambiguous, r)
	assert.Equal(t, "<ambiguous>", r.String())

	r, err = both.Resolve("onlyA")
	require.NoError(t, err)
	assert.Equal(t, "onlyA", r.BindingName)

	same := load(t, l, "/same.js")
	r, err = same.Resolve("x")
	require.NoError(t, err)
	require.NotSame(t, Ambiguous, r, "one binding reached twice is not ambiguous")
	assert.Equal(t, SourceIdentifier("/a.js"), r.Module.ID())

	shadow := load(t, l, "/shadow.js")
	r, err = shadow.Resolve("x")
	require.NoError(t, err)
	assert.Equal(t, SourceIdentifier("/shadow.js"), r.Module.ID(), "a local export shadows star exports")

	require.NoError(t, both.Instantiate())
	ns, err := both.Namespace()
	require.NoError(t, err)
	assert.Equal(t, []string{"onlyA"}, ns.Exports(), "ambiguous names are left out of the namespace")

	user := load(t, l, "/user.js")
	assert.True(t, errors.IsKind(user.Instantiate(), errors.KindResolution))
	assert.False(t, user.IsInstantiated())
}

func TestLiveBindings(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"/counter.js": `
export let count = 0;
export function inc() { count = count + 1; }
`,
		"/main.js": `
import * as c from "./counter.js";
import { count, inc } from "./counter.js";
inc();
inc();
export const seen = count;
export const viaNamespace = c.count;
export { c };
`,
	})
	main := evaluate(t, l, "/main.js")

	assert.Equal(t, 2.0, nsGet(t, main, "seen").AsNumber())
	assert.Equal(t, 2.0, nsGet(t, main, "viaNamespace").AsNumber())

	counter := load(t, l, "/counter.js")
	_, err := vm.Call(nsGet(t, counter, "inc"), vm.Undefined, nil)
	require.NoError(t, err)
	assert.Equal(t, 3.0, nsGet(t, counter, "count").AsNumber(), "namespace reads are live")

	inner := nsGet(t, main, "c")
	require.True(t, inner.IsObject())
	cns, err := counter.Namespace()
	require.NoError(t, err)
	assert.Same(t, cns, inner.AsObject(), "one namespace object per module")

	ok, err := cns.Set(vm.StringKey("count"), vm.NumberValue(9), vm.ObjectValue(cns))
	require.NoError(t, err)
	assert.False(t, ok, "namespace properties are read-only")
}

func TestImportedBindingsAreImmutable(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"/dep.js":  `export let v = 1;`,
		"/main.js": `import { v } from "./dep.js"; v = 2;`,
	})
	_, err := l.LoadAndEvaluate("/main.js")
	assert.True(t, errors.IsKind(err, errors.KindType), "assignment to an import binding, got %v", err)
}

func TestNamespaceExport(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"/inner.js": `export const deep = "yes";`,
		"/outer.js": `export * as inner from "./inner.js";`,
		"/main.js":  `import { inner } from "./outer.js"; export const got = inner.deep;`,
	})
	main := evaluate(t, l, "/main.js")
	assert.Equal(t, "yes", nsGet(t, main, "got").AsString())

	outer := load(t, l, "/outer.js")
	r, err := outer.Resolve("inner")
	require.NoError(t, err)
	assert.True(t, r.Namespace)
	assert.Equal(t, "/inner.js:*namespace*", r.String())
}

func TestCyclicEvaluationRunsEachModuleOnce(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"/log.js": `
export let order = "";
export function record(s) { order = order + s; }
`,
		"/a.js": `import { record } from "./log.js"; import "./b.js"; record("a");`,
		"/b.js": `import { record } from "./log.js"; import "./a.js"; record("b");`,
	})
	a := evaluate(t, l, "/a.js")
	b := load(t, l, "/b.js")
	logm := load(t, l, "/log.js")

	assert.Equal(t, "ba", nsGet(t, logm, "order").AsString())
	assert.True(t, a.IsEvaluated())
	assert.True(t, b.IsEvaluated())

	_, err := a.Evaluate()
	require.NoError(t, err)
	_, err = b.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, "ba", nsGet(t, logm, "order").AsString(), "modules are evaluated once")

	assert.Equal(t, []SourceIdentifier{"/log.js", "/b.js", "/a.js"}, l.Graph().DepthFirstOrder("/a.js"))
}

func TestUninitializedImportInCycle(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"/a.js": `import { early } from "./b.js"; export const a = 1;`,
		"/b.js": `import { a } from "./a.js"; export const early = a;`,
	})
	_, err := l.LoadAndEvaluate("/a.js")
	require.Error(t, err)
	var re *errors.ResolutionError
	require.True(t, stderrors.As(err, &re), "got %v", err)
	assert.Equal(t, "a", re.Name)
	assert.Equal(t, "/a.js", re.Module)
}

func TestEvaluateRestoresScriptContext(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"/ok.js":   `export const x = 1;`,
		"/fail.js": `throw "boom";`,
	})
	realm := l.Realm()

	evaluate(t, l, "/ok.js")
	assert.Nil(t, realm.ScriptContext())
	assert.Equal(t, 0, realm.Agent().Depth())

	_, err := l.LoadAndEvaluate("/fail.js")
	var exc *vm.Exception
	require.True(t, stderrors.As(err, &exc), "got %v", err)
	assert.Equal(t, "boom", exc.Value.AsString())
	assert.Nil(t, realm.ScriptContext())
	assert.Equal(t, 0, realm.Agent().Depth())

	fail := load(t, l, "/fail.js")
	_, err = fail.Evaluate()
	assert.NoError(t, err, "a failed module is not run again")
}

func TestNamespaceOrderAndTag(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"/m.js": `export const zeta = 1; export const Alpha = 2; export const alpha = 3; export default 4;`,
	})
	m := evaluate(t, l, "/m.js")
	ns, err := m.Namespace()
	require.NoError(t, err)

	assert.Equal(t, []string{"Alpha", "alpha", "default", "zeta"}, ns.Exports())
	assert.Equal(t, 4.0, nsGet(t, m, "default").AsNumber())

	ext, err := ns.IsExtensible()
	require.NoError(t, err)
	assert.False(t, ext)
	proto, err := ns.GetPrototypeOf()
	require.NoError(t, err)
	assert.Nil(t, proto)
}

func TestHoistedFunctionsAreCallableBeforeTheirStatement(t *testing.T) {
	l := newTestLoader(t, map[string]string{
		"/m.js": `
export const early = twice(21);
function twice(n) { return n * 2; }
export class Point {}
`,
	})
	m := evaluate(t, l, "/m.js")
	assert.Equal(t, 42.0, nsGet(t, m, "early").AsNumber())
	assert.True(t, vm.IsConstructor(nsGet(t, m, "Point")))
}
