package compiler

import (
	"esrt/pkg/ast"
	"esrt/pkg/errors"
	"esrt/pkg/vm"
)

// Context is what a unit sees of the running invocation.
type Context struct {
	Realm     *vm.Realm
	Function  *vm.FunctionObject // nil for module bodies
	Env       vm.Environment
	NewTarget vm.Object
	Args      []vm.Value

	compiler *Compiler
}

// NewModuleContext creates the context a module body runs in.
func (c *Compiler) NewModuleContext(realm *vm.Realm, env *vm.ModuleEnvironment) *Context {
	return &Context{Realm: realm, Env: env, compiler: c}
}

// Closure creates a function object for node closed over the context's
// environment.
func (cx *Context) Closure(node *ast.FunctionNode) (*vm.FunctionObject, error) {
	return cx.compiler.Closure(cx.Realm, node, cx.Env)
}

// WithEnv returns a copy of the context using env as its lexical
// environment.
func (cx *Context) WithEnv(env vm.Environment) *Context {
	c := *cx
	c.Env = env
	return &c
}

type thisProvider interface {
	GetThisBinding() (vm.Value, error)
}

// thisEnvironment finds the innermost environment with a this binding.
func thisEnvironment(env vm.Environment) vm.Environment {
	for env != nil && !env.HasThisBinding() {
		env = env.Outer()
	}
	return env
}

// This resolves the this binding visible from the context.
func (cx *Context) This() (vm.Value, error) {
	env := thisEnvironment(cx.Env)
	if env == nil {
		return cx.Realm.GlobalThis(), nil
	}
	if p, ok := env.(thisProvider); ok {
		return p.GetThisBinding()
	}
	return vm.Undefined, nil
}

// SuperCall constructs the parent of the enclosing derived constructor and
// binds the result as this.
func (cx *Context) SuperCall(args []vm.Value) (vm.Value, error) {
	fenv, ok := thisEnvironment(cx.Env).(*vm.FunctionEnvironment)
	if !ok || fenv.Function().ConstructorKind() != vm.ConstructorDerived {
		return vm.Undefined, errors.NewTypeError("'super' keyword unexpected here")
	}
	parent, err := fenv.Function().GetPrototypeOf()
	if err != nil {
		return vm.Undefined, err
	}
	if parent == nil || !vm.IsConstructor(vm.ObjectValue(parent)) {
		return vm.Undefined, errors.NewTypeError("super constructor is not a constructor")
	}
	result, err := vm.Construct(parent, args, fenv.NewTarget())
	if err != nil {
		return vm.Undefined, err
	}
	if err := fenv.BindThisValue(vm.ObjectValue(result)); err != nil {
		return vm.Undefined, err
	}
	return vm.ObjectValue(result), nil
}
