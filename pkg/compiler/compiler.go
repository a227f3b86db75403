// Package compiler turns function nodes into the [[Call]] and [[Construct]]
// entries of vm.FunctionObject. Each entry is a short opcode sequence run by
// a small state machine; the function body itself is an opaque Unit
// supplied by a Backend.
package compiler

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"esrt/pkg/ast"
	"esrt/pkg/vm"
)

// Unit is the invokable body of one function.
type Unit interface {
	// Init runs backend-specific instantiation after the protocol has
	// created parameter, var, lexical and hoisted function bindings.
	Init(cx *Context) error
	// Evaluate runs the body. It returns a pending tail call when the body
	// ends in a call in tail position.
	Evaluate(cx *Context) (vm.Completion, error)
}

// Resumable is implemented by units that can run as generator bodies.
type Resumable interface {
	Unit
	// Start prepares a suspended body; every resume continues it.
	Start(cx *Context) vm.ResumeFunc
}

// Backend compiles function nodes into units.
type Backend interface {
	CompileFunction(node *ast.FunctionNode) (Unit, error)
}

// Code is the compiled form stored in a function object.
type Code struct {
	Node      *ast.FunctionNode
	Unit      Unit
	Flavor    Flavor
	ThisMode  vm.ThisMode
	Call      *Chunk
	Construct *Chunk // nil when not constructible
}

// Disassemble lists both entry sequences.
func (c *Code) Disassemble() string {
	s := c.Call.Disassemble()
	if c.Construct != nil {
		s += c.Construct.Disassemble()
	}
	return s
}

// Compiler compiles and links functions for one agent configuration.
type Compiler struct {
	backend Backend
	compat  vm.CompatibilitySet
	logger  zerolog.Logger

	mu    sync.Mutex
	cache map[*ast.FunctionNode]*Code
}

// Option configures a Compiler.
type Option func(*Compiler)

func WithCompatibility(set vm.CompatibilitySet) Option {
	return func(c *Compiler) { c.compat = set }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// NewCompiler creates a compiler that obtains units from backend.
func NewCompiler(backend Backend, opts ...Option) *Compiler {
	c := &Compiler{
		backend: backend,
		logger:  zerolog.Nop(),
		cache:   make(map[*ast.FunctionNode]*Code),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile classifies node and emits its entry sequences. Results are cached
// per node, so closures created from the same node share one Code.
func (c *Compiler) Compile(node *ast.FunctionNode) (*Code, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if code, ok := c.cache[node]; ok {
		return code, nil
	}
	flavor, err := Classify(node, c.compat)
	if err != nil {
		return nil, err
	}
	unit, err := c.backend.CompileFunction(node)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", describe(node), err)
	}
	if flavor == FlavorGenerator {
		if _, ok := unit.(Resumable); !ok {
			return nil, fmt.Errorf("compile %s: backend unit %T cannot run a generator body", describe(node), unit)
		}
	}
	name := describe(node)
	code := &Code{
		Node:     node,
		Unit:     unit,
		Flavor:   flavor,
		ThisMode: ThisModeOf(node),
		Call:     emitCall(name, flavor),
	}
	if constructible(node) {
		code.Construct = emitConstruct(name, flavor)
	}
	c.cache[node] = code
	c.logger.Debug().Str("function", name).Stringer("flavor", flavor).Msg("function compiled")
	return code, nil
}

// Instantiate creates a function object for code closed over env and links
// its entries.
func (c *Compiler) Instantiate(realm *vm.Realm, code *Code, env vm.Environment, homeObject vm.Object) *vm.FunctionObject {
	node := code.Node
	f := vm.NewFunction(realm, vm.FunctionConfig{
		Name:             node.Name,
		Length:           len(node.Params),
		ThisMode:         code.ThisMode,
		Strict:           node.Strict || node.Kind == ast.ClassConstructor,
		ClassConstructor: node.Kind == ast.ClassConstructor,
		ConstructorKind:  constructorKind(node),
		Env:              env,
		HomeObject:       homeObject,
		Code:             code,
		Source:           node.SourceText(),
	})
	call := &entry{compiler: c, code: code, chunk: code.Call}
	f.SetCallEntry(func(f *vm.FunctionObject, this vm.Value, args []vm.Value) (vm.Completion, error) {
		return call.run(f, this, args, nil)
	})
	if code.Construct != nil {
		construct := &entry{compiler: c, code: code, chunk: code.Construct}
		f.SetConstructEntry(func(f *vm.FunctionObject, args []vm.Value, newTarget vm.Object) (vm.Completion, error) {
			return construct.run(f, vm.Undefined, args, newTarget)
		})
		MakeConstructor(f, node)
	} else if code.Flavor == FlavorGenerator {
		proto := vm.NewOrdinaryObject(realm.Intrinsic(vm.IntrinsicGeneratorPrototype))
		f.Properties().Put(vm.StringKey("prototype"), vm.NewDataProperty(vm.ObjectValue(proto), true, false, false))
	}
	if code.Flavor == FlavorLegacy {
		f.EnableLegacy()
	}
	return f
}

// MakeConstructor installs the prototype property: class constructors get a
// read-only one, ordinary functions a writable one.
func MakeConstructor(f *vm.FunctionObject, node *ast.FunctionNode) {
	vm.MakeConstructor(f, node.Kind != ast.ClassConstructor, nil)
}

// Closure compiles node and instantiates it in env.
func (c *Compiler) Closure(realm *vm.Realm, node *ast.FunctionNode, env vm.Environment) (*vm.FunctionObject, error) {
	code, err := c.Compile(node)
	if err != nil {
		return nil, err
	}
	return c.Instantiate(realm, code, env, nil), nil
}

func constructorKind(node *ast.FunctionNode) vm.ConstructorKind {
	if node.Kind == ast.ClassConstructor && node.Derived {
		return vm.ConstructorDerived
	}
	return vm.ConstructorBase
}

func describe(node *ast.FunctionNode) string {
	if node.Name == "" {
		return "<anonymous>"
	}
	return node.Name
}
