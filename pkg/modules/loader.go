package modules

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"esrt/pkg/compiler"
	"esrt/pkg/interp"
	"esrt/pkg/parser"
	"esrt/pkg/source"
	"esrt/pkg/vm"
)

// Loader fetches, parses and records modules for one realm. It is the Host
// of every record it creates.
//
// Prefetch may run fetches and parses concurrently. Records are created,
// instantiated and evaluated only on the goroutine that owns the realm.
type Loader struct {
	realm     *vm.Realm
	config    *LoaderConfig
	resolvers []ModuleResolver
	registry  ModuleRegistry
	graph     *DependencyGraph
	aliases   []alias
	backend   ModuleBackend
	compiler  *compiler.Compiler
	logger    zerolog.Logger

	mutex sync.Mutex // Protects stats
	stats LoaderStats
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConfig replaces the default loader configuration.
func WithConfig(config *LoaderConfig) LoaderOption {
	return func(l *Loader) { l.config = config }
}

// WithResolvers adds module resolvers. They are tried by priority.
func WithResolvers(resolvers ...ModuleResolver) LoaderOption {
	return func(l *Loader) { l.resolvers = append(l.resolvers, resolvers...) }
}

// WithRegistry replaces the loader's registry.
func WithRegistry(registry ModuleRegistry) LoaderOption {
	return func(l *Loader) { l.registry = registry }
}

// WithBackend sets the backend that compiles module and function bodies.
func WithBackend(backend ModuleBackend) LoaderOption {
	return func(l *Loader) { l.backend = backend }
}

// WithLogger sets the loader's logger.
func WithLogger(logger zerolog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a loader whose records are linked to realm.
func NewLoader(realm *vm.Realm, opts ...LoaderOption) (*Loader, error) {
	l := &Loader{
		realm:  realm,
		graph:  NewDependencyGraph(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.config == nil {
		l.config = DefaultLoaderConfig()
	}
	if l.registry == nil {
		l.registry = NewRegistry(l.config)
	}
	if l.backend == nil {
		l.backend = interp.New(interp.WithLogger(l.logger))
	}
	aliases, err := compileAliases(l.config.Aliases)
	if err != nil {
		return nil, err
	}
	l.aliases = aliases
	l.compiler = compiler.NewCompiler(l.backend,
		compiler.WithCompatibility(realm.Agent().Compatibility()),
		compiler.WithLogger(l.logger))

	// Sort resolvers by priority (lower = higher priority)
	sort.SliceStable(l.resolvers, func(i, j int) bool {
		return l.resolvers[i].Priority() < l.resolvers[j].Priority()
	})
	return l, nil
}

// Realm returns the realm records are linked to.
func (l *Loader) Realm() *vm.Realm { return l.realm }

// Registry returns the loader's module registry.
func (l *Loader) Registry() ModuleRegistry { return l.registry }

// Graph returns the dependencies discovered so far.
func (l *Loader) Graph() *DependencyGraph { return l.graph }

// Normalize applies alias rules and normalizes specifier relative to
// referrer.
func (l *Loader) Normalize(specifier string, referrer SourceIdentifier) (SourceIdentifier, error) {
	rewritten, err := rewrite(l.aliases, specifier)
	if err != nil {
		return "", fmt.Errorf("alias %q: %w", specifier, err)
	}
	if rewritten != specifier {
		l.logger.Trace().Str("specifier", specifier).Str("alias", rewritten).Msg("specifier rewritten")
	}
	return NormalizeName(rewritten, referrer)
}

// Load returns the record for a top-level specifier.
func (l *Loader) Load(specifier string) (*SourceTextModuleRecord, error) {
	id, err := l.Normalize(specifier, "")
	if err != nil {
		return nil, err
	}
	return l.record(id)
}

// LoadAndEvaluate loads, instantiates and evaluates a module, then runs
// the jobs its evaluation queued.
func (l *Loader) LoadAndEvaluate(specifier string) (*SourceTextModuleRecord, error) {
	m, err := l.Load(specifier)
	if err != nil {
		return nil, err
	}
	if err := m.Instantiate(); err != nil {
		return m, err
	}
	if _, err := m.Evaluate(); err != nil {
		return m, err
	}
	return m, l.realm.Agent().RunJobs()
}

// HostResolveImportedModule implements Host.
func (l *Loader) HostResolveImportedModule(referrer *SourceTextModuleRecord, specifier string) (*SourceTextModuleRecord, error) {
	var from SourceIdentifier
	if referrer != nil {
		from = referrer.ID()
	}
	id, err := l.Normalize(specifier, from)
	if err != nil {
		return nil, err
	}
	m, err := l.record(id)
	if err != nil {
		return nil, err
	}
	if referrer != nil {
		l.graph.AddDependency(from, m.ID())
	}
	return m, nil
}

// record returns the record for id, creating and linking it on first use.
func (l *Loader) record(id SourceIdentifier) (*SourceTextModuleRecord, error) {
	entry, err := l.fetch(id)
	if err != nil {
		return nil, err
	}
	if entry.Record != nil {
		return entry.Record, nil
	}

	unit, err := l.backend.CompileModule(entry.AST)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", entry.ID, err)
	}
	m := ParseModule(l, entry.ID, entry.AST, l.compiler, unit)
	if err := m.SetRealm(l.realm); err != nil {
		return nil, err
	}
	recorded := *entry
	recorded.State = LoadRecorded
	recorded.Record = m
	l.registry.Set(&recorded)

	l.mutex.Lock()
	l.stats.RecordsLinked++
	l.mutex.Unlock()
	l.logger.Debug().Str("module", entry.ID.String()).
		Int("imports", len(entry.AST.ImportEntries)).
		Int("exports", len(entry.AST.ExportEntries)).
		Msg("module record created")
	return m, nil
}

// fetch returns the registry entry for id, reading and parsing the source
// when it is not cached. Safe for concurrent use.
func (l *Loader) fetch(id SourceIdentifier) (*ModuleEntry, error) {
	if entry := l.registry.Get(id); entry != nil {
		if entry.State == LoadError {
			return nil, entry.Err
		}
		return entry, nil
	}

	rm, err := l.resolve(id)
	if err != nil {
		return nil, err
	}
	if rm.ID != id {
		if entry := l.registry.Get(rm.ID); entry != nil {
			rm.Source.Close()
			l.registry.Alias(id, rm.ID)
			if entry.State == LoadError {
				return nil, entry.Err
			}
			return entry, nil
		}
	}

	start := time.Now()
	content, err := readSource(rm)
	if err != nil {
		return nil, err
	}
	file := source.NewSourceFile(path.Base(string(rm.ID)), string(rm.ID), content)
	l.logger.Debug().Str("module", rm.ID.String()).Str("resolver", rm.Resolver).Int("bytes", len(content)).Msg("module fetched")

	parseStart := time.Now()
	node, err := parser.ParseModule(file)
	parseDuration := time.Since(parseStart)

	entry := &ModuleEntry{
		ID:            rm.ID,
		State:         LoadParsed,
		Resolver:      rm.Resolver,
		Source:        file,
		AST:           node,
		LoadTime:      start,
		ParseDuration: parseDuration,
	}
	if err != nil {
		err = fmt.Errorf("parse %s: %w", rm.ID, err)
		entry.State = LoadError
		entry.AST = nil
		entry.Err = err
	}
	l.registry.Set(entry)
	l.registry.Alias(id, rm.ID)

	l.mutex.Lock()
	l.stats.Fetched++
	if err == nil {
		l.stats.Parsed++
		l.stats.TotalParse += parseDuration
	}
	l.mutex.Unlock()

	if err != nil {
		l.logger.Debug().Err(err).Str("module", rm.ID.String()).Msg("parse failed")
		return nil, err
	}
	l.logger.Debug().Str("module", rm.ID.String()).Dur("parse", parseDuration).Msg("module parsed")
	return entry, nil
}

// resolve runs the resolver chain.
func (l *Loader) resolve(id SourceIdentifier) (*ResolvedModule, error) {
	var lastErr error
	for _, resolver := range l.resolvers {
		if !resolver.CanResolve(id) {
			continue
		}
		rm, err := resolver.Resolve(id)
		if err == nil {
			l.logger.Trace().Str("module", id.String()).Str("resolver", resolver.Name()).Str("resolved", rm.ID.String()).Msg("module resolved")
			return rm, nil
		}
		l.logger.Trace().Err(err).Str("module", id.String()).Str("resolver", resolver.Name()).Msg("resolver failed")
		// Continue to next resolver if this one fails
		lastErr = err
	}
	if lastErr != nil {
		return nil, fmt.Errorf("cannot find module %s: %w", id, lastErr)
	}
	return nil, fmt.Errorf("no resolver could handle module %s", id)
}

// Prefetch fetches and parses the static import graph of specifier ahead
// of linking, one breadth-first level at a time with at most
// Config.Workers concurrent fetches. It records dependency edges but
// creates no records. It must not run concurrently with linking.
func (l *Loader) Prefetch(ctx context.Context, specifier string) error {
	root, err := l.Normalize(specifier, "")
	if err != nil {
		return err
	}
	l.mutex.Lock()
	l.stats.PrefetchRuns++
	l.mutex.Unlock()

	type edge struct{ from, to SourceIdentifier }
	var edges []edge
	resolved := make(map[SourceIdentifier]SourceIdentifier)
	seen := map[SourceIdentifier]bool{root: true}
	level := []SourceIdentifier{root}
	for depth := 0; len(level) > 0; depth++ {
		if l.config.MaxDepth > 0 && depth > l.config.MaxDepth {
			l.logger.Warn().Str("module", root.String()).Int("depth", depth).Msg("prefetch depth limit reached")
			break
		}
		entries := make([]*ModuleEntry, len(level))
		g, gctx := errgroup.WithContext(ctx)
		if l.config.Workers > 0 {
			g.SetLimit(l.config.Workers)
		}
		for i, id := range level {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				entry, err := l.fetch(id)
				entries[i] = entry
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		var next []SourceIdentifier
		for i, entry := range entries {
			resolved[level[i]] = entry.ID
			for _, req := range entry.AST.RequestedModules {
				dep, err := l.Normalize(req, entry.ID)
				if err != nil {
					return fmt.Errorf("%s: import %q: %w", entry.ID, req, err)
				}
				edges = append(edges, edge{entry.ID, dep})
				if !seen[dep] {
					seen[dep] = true
					next = append(next, dep)
				}
			}
		}
		level = next
	}
	for _, e := range edges {
		to, ok := resolved[e.to]
		if !ok {
			to = e.to
		}
		l.graph.AddDependency(e.from, to)
	}
	l.logger.Debug().Str("module", root.String()).Int("modules", len(seen)).Msg("prefetch complete")
	return nil
}

// ClearCache drops cached modules and discovered dependencies.
func (l *Loader) ClearCache() {
	l.registry.Clear()
	l.graph.Clear()
}

// GetStats returns loader statistics
func (l *Loader) GetStats() LoaderStats {
	l.mutex.Lock()
	stats := l.stats
	l.mutex.Unlock()

	stats.Registry = l.registry.GetStats()
	if stats.Parsed > 0 {
		stats.AverageParse = stats.TotalParse / time.Duration(stats.Parsed)
	}
	return stats
}
