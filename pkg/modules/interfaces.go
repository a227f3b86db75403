package modules

import (
	"io/fs"

	"esrt/pkg/ast"
	"esrt/pkg/compiler"
)

// ModuleFS extends Go's standard io/fs interfaces for module loading
type ModuleFS interface {
	fs.FS
	fs.ReadFileFS // Required for reading module content
}

// ModuleResolver finds module source for a normalized identifier.
type ModuleResolver interface {
	// Name returns a human-readable name for this resolver
	Name() string

	// CanResolve returns true if this resolver can handle the given identifier
	CanResolve(id SourceIdentifier) bool

	// Resolve locates the module, probing extensions and index files.
	Resolve(id SourceIdentifier) (*ResolvedModule, error)

	// Priority returns the priority of this resolver (lower = higher priority)
	Priority() int
}

// Host resolves import specifiers of a module to module records. For a
// given referrer and specifier it must return the same record every time.
type Host interface {
	HostResolveImportedModule(referrer *SourceTextModuleRecord, specifier string) (*SourceTextModuleRecord, error)
}

// ModuleBackend compiles module bodies as well as function bodies.
type ModuleBackend interface {
	compiler.Backend
	CompileModule(m *ast.Module) (compiler.Unit, error)
}

// ModuleRegistry caches modules by source identifier.
type ModuleRegistry interface {
	// Get retrieves an entry, nil when absent or expired
	Get(id SourceIdentifier) *ModuleEntry

	// Set stores an entry
	Set(entry *ModuleEntry)

	// Alias makes id an additional key for the entry stored under target
	Alias(id, target SourceIdentifier)

	// Remove removes an entry and its aliases
	Remove(id SourceIdentifier)

	// Clear removes every entry
	Clear()

	// List returns the identifiers of all stored entries, sorted
	List() []SourceIdentifier

	// Size returns the number of stored entries
	Size() int

	// GetStats returns registry statistics
	GetStats() RegistryStats
}
