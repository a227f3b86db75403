package modules

import (
	"io"
	"runtime"
	"time"

	"esrt/pkg/ast"
	"esrt/pkg/source"
)

// ModuleStatus is the linking state of a source text module record.
type ModuleStatus int

const (
	StatusUnlinked     ModuleStatus = iota // No realm yet
	StatusLinked                           // Realm set
	StatusInstantiated                     // Environment and bindings created
	StatusEvaluated                        // Evaluation started
)

func (s ModuleStatus) String() string {
	switch s {
	case StatusUnlinked:
		return "unlinked"
	case StatusLinked:
		return "linked"
	case StatusInstantiated:
		return "instantiated"
	case StatusEvaluated:
		return "evaluated"
	default:
		return "invalid"
	}
}

// LoadState tracks a module through the loader's fetch pipeline.
type LoadState int

const (
	LoadUnknown  LoadState = iota // Initial state
	LoadFetching                  // Source being read from a resolver
	LoadFetched                   // Source read
	LoadParsing                   // Being parsed
	LoadParsed                    // Parsed, no record yet
	LoadRecorded                  // Record created; pinned in the registry
	LoadError                     // Fetch or parse failed
)

func (s LoadState) String() string {
	switch s {
	case LoadUnknown:
		return "unknown"
	case LoadFetching:
		return "fetching"
	case LoadFetched:
		return "fetched"
	case LoadParsing:
		return "parsing"
	case LoadParsed:
		return "parsed"
	case LoadRecorded:
		return "recorded"
	case LoadError:
		return "error"
	default:
		return "invalid"
	}
}

// ModuleEntry is the registry's view of one module.
type ModuleEntry struct {
	ID       SourceIdentifier
	State    LoadState
	Resolver string // Name of the resolver that supplied the source

	Source *source.SourceFile
	AST    *ast.Module
	Record *SourceTextModuleRecord // Set once State is LoadRecorded

	Err error

	LoadTime      time.Time
	ParseDuration time.Duration
}

// ResolvedModule is a module found by a resolver.
type ResolvedModule struct {
	ID       SourceIdentifier // Identifier after extension and index probing
	Source   io.ReadCloser    // Must be closed by the caller
	FS       ModuleFS         // File system the source came from
	Resolver string
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// Maximum concurrent fetch+parse goroutines during Prefetch.
	Workers int

	// Registry limits. Recorded modules are never evicted or expired.
	CacheSize int           // 0 = unlimited
	CacheTTL  time.Duration // 0 = no expiry

	Extensions []string // Probed after the exact path
	IndexFiles []string // Probed inside directories
	Aliases    []AliasRule

	MaxDepth int // Prefetch depth limit, 0 = unlimited
}

// DefaultLoaderConfig returns the defaults used when no configuration is
// given.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		Workers:    runtime.NumCPU(),
		Extensions: []string{".js", ".mjs"},
		IndexFiles: []string{"index.js", "index.mjs"},
		MaxDepth:   100,
	}
}

// RegistryStats contains statistics about the module registry.
type RegistryStats struct {
	TotalModules  int   // Modules in the registry
	LoadedModules int   // Modules with a record
	FailedModules int   // Modules that failed to fetch or parse
	CacheHits     int   // Lookups that found a usable entry
	CacheMisses   int   // Lookups that found nothing or an expired entry
	MemoryUsage   int64 // Approximate bytes of source held
}

// LoaderStats contains overall statistics about module loading.
type LoaderStats struct {
	Registry      RegistryStats
	Fetched       int
	Parsed        int
	TotalParse    time.Duration
	AverageParse  time.Duration
	PrefetchRuns  int
	RecordsLinked int
}
