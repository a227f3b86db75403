package modules

import (
	"io"
	"testing"
	"testing/fstest"
)

func readAll(t *testing.T, rm *ResolvedModule) string {
	t.Helper()
	content, err := readSource(rm)
	if err != nil {
		t.Fatalf("Failed to read source: %v", err)
	}
	return content
}

func TestMemoryResolverBasic(t *testing.T) {
	resolver := NewMemoryResolver("TestMemory")

	if resolver.Name() != "TestMemory" {
		t.Errorf("Expected name 'TestMemory', got '%s'", resolver.Name())
	}
	if resolver.Priority() != 50 {
		t.Errorf("Expected priority 50, got %d", resolver.Priority())
	}
	if NewMemoryResolver("").Name() != "Memory" {
		t.Error("Expected default name 'Memory'")
	}
}

func TestMemoryResolverResolve(t *testing.T) {
	resolver := NewMemoryResolver("TestMemory")
	resolver.AddModule("./greet.js", `export const hi = "hi";`)
	resolver.AddModule("/utils/index.mjs", `export * from "./helper.js";`)
	resolver.AddModule("lodash", `export default 1;`)

	if got := resolver.ListModules(); len(got) != 3 || got[0] != "/greet.js" {
		t.Errorf("Expected stored paths to be rooted, got %v", got)
	}

	tests := []struct {
		id   SourceIdentifier
		want SourceIdentifier
	}{
		{"/greet.js", "/greet.js"},
		{"/greet", "/greet.js"},
		{"/utils", "/utils/index.mjs"},
		{"lodash", "lodash"},
	}
	for _, test := range tests {
		if !resolver.CanResolve(test.id) {
			t.Errorf("CanResolve(%s) = false", test.id)
			continue
		}
		rm, err := resolver.Resolve(test.id)
		if err != nil {
			t.Errorf("Resolve(%s): %v", test.id, err)
			continue
		}
		if rm.ID != test.want {
			t.Errorf("Resolve(%s) = %s, expected %s", test.id, rm.ID, test.want)
		}
		if rm.Resolver != "TestMemory" {
			t.Errorf("Expected resolver name on result, got %s", rm.Resolver)
		}
		readAll(t, rm)
	}

	if resolver.CanResolve("/missing.js") {
		t.Error("Expected CanResolve(/missing.js) = false")
	}
	if _, err := resolver.Resolve("/missing.js"); err == nil {
		t.Error("Expected error for missing module")
	}
}

func TestMemoryResolverUpdateAndRemove(t *testing.T) {
	resolver := NewMemoryResolver("")
	resolver.AddModule("/m.js", "export const v = 1;")

	if err := resolver.UpdateModule("/m.js", "export const v = 2;"); err != nil {
		t.Fatalf("UpdateModule: %v", err)
	}
	rm, err := resolver.Resolve("/m.js")
	if err != nil {
		t.Fatal(err)
	}
	if got := readAll(t, rm); got != "export const v = 2;" {
		t.Errorf("Expected updated content, got %q", got)
	}

	data, err := rm.FS.ReadFile("m.js")
	if err != nil || string(data) != "export const v = 2;" {
		t.Errorf("Expected module FS to read the module, got %q, %v", data, err)
	}
	f, err := rm.FS.Open("m.js")
	if err != nil {
		t.Fatal(err)
	}
	info, _ := f.Stat()
	if info.Name() != "m.js" || info.Size() != int64(len("export const v = 2;")) {
		t.Errorf("Unexpected file info %s %d", info.Name(), info.Size())
	}
	f.Close()
	if _, err := f.Read(make([]byte, 1)); err == nil {
		t.Error("Expected read after close to fail")
	}

	if err := resolver.UpdateModule("/none.js", ""); err == nil {
		t.Error("Expected error updating a missing module")
	}

	resolver.RemoveModule("/m.js")
	if resolver.CanResolve("/m.js") {
		t.Error("Expected removed module to be unresolvable")
	}
	resolver.AddModule("/x.js", "")
	resolver.Clear()
	if len(resolver.ListModules()) != 0 {
		t.Error("Expected Clear to drop every module")
	}
}

func TestFileSystemResolver(t *testing.T) {
	testFS := fstest.MapFS{
		"main.js":          {Data: []byte(`export const main = 1;`)},
		"lib/util.mjs":     {Data: []byte(`export const util = 1;`)},
		"lib/pkg/index.js": {Data: []byte(`export const pkg = 1;`)},
		"lib/dir.js/inner": {Data: []byte(``)},
	}
	resolver := NewFileSystemResolver(testFS)

	if resolver.Name() != "FileSystem" || resolver.Priority() != 100 {
		t.Errorf("Unexpected resolver defaults %s %d", resolver.Name(), resolver.Priority())
	}
	if resolver.CanResolve("bare") {
		t.Error("Expected bare identifiers to be rejected by default")
	}

	tests := []struct {
		id   SourceIdentifier
		want SourceIdentifier
	}{
		{"/main.js", "/main.js"},
		{"/main", "/main.js"},
		{"/lib/util", "/lib/util.mjs"},
		{"/lib/pkg", "/lib/pkg/index.js"},
	}
	for _, test := range tests {
		rm, err := resolver.Resolve(test.id)
		if err != nil {
			t.Errorf("Resolve(%s): %v", test.id, err)
			continue
		}
		if rm.ID != test.want {
			t.Errorf("Resolve(%s) = %s, expected %s", test.id, rm.ID, test.want)
		}
		if _, err := io.ReadAll(rm.Source); err != nil {
			t.Errorf("Read %s: %v", rm.ID, err)
		}
		rm.Source.Close()
	}

	if _, err := resolver.Resolve("/lib/dir.js"); err == nil {
		t.Error("Expected a directory without an index file to be unresolvable")
	}

	resolver.SetExtensions([]string{".cjs"})
	if _, err := resolver.Resolve("/main"); err == nil {
		t.Error("Expected custom extensions to replace the defaults")
	}

	resolver.SetBare(true)
	resolver.SetIndexFiles([]string{"index.js"})
	rm, err := resolver.Resolve("lib/pkg")
	if err != nil {
		t.Fatalf("Resolve(lib/pkg) with bare resolution: %v", err)
	}
	rm.Source.Close()
}
