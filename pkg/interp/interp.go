// Package interp is the reference backend: it evaluates function and module
// bodies by walking their AST. It implements compiler.Backend, so the call
// protocol (this binding, declaration instantiation, generator and promise
// wrapping, tail call trampolining) stays in the compiler and interp only
// supplies the body.
package interp

import (
	"github.com/rs/zerolog"

	"esrt/pkg/ast"
	"esrt/pkg/compiler"
	"esrt/pkg/vm"
)

// Backend compiles function and module bodies into tree-walking units.
type Backend struct {
	logger zerolog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger for compile events.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Backend) { b.logger = logger }
}

// New creates a Backend.
func New(opts ...Option) *Backend {
	b := &Backend{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CompileFunction implements compiler.Backend. Generator functions get a
// resumable unit.
func (b *Backend) CompileFunction(node *ast.FunctionNode) (compiler.Unit, error) {
	b.logger.Trace().Str("function", node.String()).Int("statements", len(node.Body)).Msg("body unit created")
	u := &functionUnit{body: node.Body, strict: node.Strict || node.Kind == ast.ClassConstructor}
	if node.Generator {
		return &generatorUnit{functionUnit: u}, nil
	}
	return u, nil
}

// CompileModule returns the unit evaluating a module's top-level
// statements. Declarations are instantiated by the module record.
func (b *Backend) CompileModule(m *ast.Module) (compiler.Unit, error) {
	b.logger.Trace().Str("module", m.Name).Int("statements", len(m.Body)).Msg("module unit created")
	return &functionUnit{body: m.Body, strict: true}, nil
}

type functionUnit struct {
	body   []ast.Statement
	strict bool
}

func (u *functionUnit) Init(*compiler.Context) error { return nil }

func (u *functionUnit) Evaluate(cx *compiler.Context) (vm.Completion, error) {
	ev := &evaluator{cx: cx, strict: u.strict}
	for _, stmt := range u.body {
		c, returned, err := ev.exec(stmt)
		if err != nil {
			return vm.Normal(vm.Undefined), err
		}
		if returned {
			return c, nil
		}
	}
	return vm.Normal(vm.Undefined), nil
}

// evaluator walks statements and expressions against one context.
type evaluator struct {
	cx     *compiler.Context
	strict bool
}
