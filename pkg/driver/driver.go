// Package driver wires configuration, the agent and the module loader into
// a runtime session.
package driver

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"esrt/pkg/config"
	"esrt/pkg/modules"
	"esrt/pkg/vm"
)

// Version is reported by the esrt:process module.
const Version = "0.1.0"

// ProcessModule is the specifier of the built-in process information module.
const ProcessModule = "esrt:process"

// Runtime is one agent with one realm and the module loader feeding it.
// Modules loaded through a Runtime share records, so a module imported
// twice is evaluated once.
type Runtime struct {
	config  *config.Config
	agent   *vm.Agent
	realm   *vm.Realm
	loader  *modules.Loader
	natives *NativeModuleResolver
	logger  zerolog.Logger
}

type options struct {
	baseDir   string
	args      []string
	logger    zerolog.Logger
	resolvers []modules.ModuleResolver
}

// Option configures NewRuntime.
type Option func(*options)

// WithBaseDir sets the directory rooted specifiers resolve against. The
// default is the working directory.
func WithBaseDir(dir string) Option {
	return func(o *options) { o.baseDir = dir }
}

// WithArgs sets the argv exposed by esrt:process.
func WithArgs(args []string) Option {
	return func(o *options) { o.args = args }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithResolvers adds resolvers ahead of the file system ones (by their
// priority).
func WithResolvers(resolvers ...modules.ModuleResolver) Option {
	return func(o *options) { o.resolvers = append(o.resolvers, resolvers...) }
}

// NewRuntime creates a runtime from cfg. A nil cfg means config.Default().
func NewRuntime(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{baseDir: ".", logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	compat, err := cfg.CompatibilitySet()
	if err != nil {
		return nil, err
	}
	agent := vm.NewAgent(vm.WithCompatibility(compat), vm.WithLogger(o.logger))
	realm := agent.NewRealm()

	natives := NewNativeModuleResolver()
	resolvers := []modules.ModuleResolver{natives}
	resolvers = append(resolvers, o.resolvers...)
	resolvers = append(resolvers, fileResolver(modules.NewOSFileSystemResolver(o.baseDir), cfg, 100))
	for i, root := range cfg.Modules.Roots {
		r := fileResolver(modules.NewOSFileSystemResolver(root), cfg, 200+i)
		r.SetBare(true)
		resolvers = append(resolvers, r)
	}

	loader, err := modules.NewLoader(realm,
		modules.WithConfig(cfg.LoaderConfig()),
		modules.WithResolvers(resolvers...),
		modules.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create loader: %w", err)
	}

	r := &Runtime{
		config:  cfg,
		agent:   agent,
		realm:   realm,
		loader:  loader,
		natives: natives,
		logger:  o.logger,
	}
	if _, err := r.DeclareModule(ProcessModule, processModule(o.args)); err != nil {
		return nil, err
	}
	o.logger.Debug().Str("base", o.baseDir).Strs("roots", cfg.Modules.Roots).Int("resolvers", len(resolvers)).Msg("runtime ready")
	return r, nil
}

func fileResolver(r *modules.FileSystemResolver, cfg *config.Config, priority int) *modules.FileSystemResolver {
	r.SetExtensions(cfg.Modules.Extensions)
	r.SetIndexFiles(cfg.Modules.IndexFiles)
	r.SetPriority(priority)
	return r
}

func (r *Runtime) Agent() *vm.Agent               { return r.agent }
func (r *Runtime) Realm() *vm.Realm               { return r.realm }
func (r *Runtime) Loader() *modules.Loader        { return r.loader }
func (r *Runtime) Config() *config.Config         { return r.config }
func (r *Runtime) Natives() *NativeModuleResolver { return r.natives }

// DeclareModule registers a module whose exports are built in Go. It is
// importable by name from any module loaded afterwards.
func (r *Runtime) DeclareModule(name string, build func(m *ModuleBuilder)) (*NativeModule, error) {
	module, err := NewNativeModule(name, build)
	if err != nil {
		return nil, err
	}
	r.natives.RegisterModule(module)
	return module, nil
}

// Exports lists the names a module exports.
func (r *Runtime) Exports(specifier string) ([]string, error) {
	m, err := r.loader.Load(specifier)
	if err != nil {
		return nil, err
	}
	return m.GetExportedNames(make(modules.StarSet))
}

// ResolveExport resolves one exported name of a module. The result is
// nil when the name is not exported and modules.Ambiguous when star
// exports conflict.
func (r *Runtime) ResolveExport(specifier, name string) (*modules.ResolvedBinding, error) {
	m, err := r.loader.Load(specifier)
	if err != nil {
		return nil, err
	}
	return m.Resolve(name)
}

// Graph prefetches a module's static imports and returns every module it
// reaches, dependencies first.
func (r *Runtime) Graph(ctx context.Context, specifier string) ([]modules.SourceIdentifier, error) {
	if err := r.loader.Prefetch(ctx, specifier); err != nil {
		return nil, err
	}
	m, err := r.loader.Load(specifier)
	if err != nil {
		return nil, err
	}
	return r.loader.Graph().DepthFirstOrder(m.ID()), nil
}

// Binding is one export read from a module namespace.
type Binding struct {
	Name  string
	Value vm.Value
}

// Run prefetches, links and evaluates a module, drains the job queue and
// returns its namespace bindings in namespace order.
func (r *Runtime) Run(ctx context.Context, specifier string) ([]Binding, error) {
	if err := r.loader.Prefetch(ctx, specifier); err != nil {
		return nil, err
	}
	m, err := r.loader.LoadAndEvaluate(specifier)
	if err != nil {
		return nil, err
	}
	ns, err := m.Namespace()
	if err != nil {
		return nil, err
	}
	return ReadNamespace(ns)
}

// ReadNamespace reads every binding of a namespace.
func ReadNamespace(ns *vm.ModuleNamespace) ([]Binding, error) {
	names := ns.Exports()
	bindings := make([]Binding, 0, len(names))
	for _, name := range names {
		v, err := ns.Get(vm.StringKey(name), vm.ObjectValue(ns))
		if err != nil {
			return nil, fmt.Errorf("read export %s: %w", name, err)
		}
		bindings = append(bindings, Binding{Name: name, Value: v})
	}
	return bindings, nil
}

func workingDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}
