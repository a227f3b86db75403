package compiler

import (
	"esrt/pkg/ast"
	"esrt/pkg/vm"
)

const argumentsName = "arguments"

// instantiateDeclarations creates the bindings of a call in this order:
// parameters, the arguments object, var names, lexical names, then the
// hoisted function declarations, which overwrite any same-named binding.
func (c *Compiler) instantiateDeclarations(cx *Context, node *ast.FunctionNode) error {
	env := cx.Env
	strict := node.Strict || node.Kind == ast.ClassConstructor

	bound := make(map[string]bool, len(node.Params))
	for _, name := range node.Params {
		if !bound[name] {
			if err := env.CreateMutableBinding(name, false); err != nil {
				return err
			}
			if err := env.InitializeBinding(name, vm.Undefined); err != nil {
				return err
			}
			bound[name] = true
		}
	}
	// Duplicate parameters of sloppy functions: the last one wins.
	for i, name := range node.Params {
		if err := env.SetMutableBinding(name, vm.Arg(cx.Args, i), strict); err != nil {
			return err
		}
	}

	if needsArguments(node, bound) {
		args := vm.NewArgumentsObject(cx.Realm, cx.Function, cx.Args)
		var err error
		if strict {
			err = env.CreateImmutableBinding(argumentsName, false)
		} else {
			err = env.CreateMutableBinding(argumentsName, false)
		}
		if err != nil {
			return err
		}
		if err := env.InitializeBinding(argumentsName, vm.ObjectValue(args)); err != nil {
			return err
		}
		bound[argumentsName] = true
	}

	for _, name := range node.VarNames {
		if bound[name] {
			continue
		}
		if err := env.CreateMutableBinding(name, false); err != nil {
			return err
		}
		if err := env.InitializeBinding(name, vm.Undefined); err != nil {
			return err
		}
		bound[name] = true
	}

	for _, lex := range node.LexicalNames {
		var err error
		if lex.Const {
			err = env.CreateImmutableBinding(lex.Name, true)
		} else {
			err = env.CreateMutableBinding(lex.Name, false)
		}
		if err != nil {
			return err
		}
	}

	for _, fn := range node.Functions {
		closure, err := c.Closure(cx.Realm, fn, env)
		if err != nil {
			return err
		}
		if bound[fn.Name] {
			if err := env.SetMutableBinding(fn.Name, vm.ObjectValue(closure), false); err != nil {
				return err
			}
			continue
		}
		if err := env.CreateMutableBinding(fn.Name, false); err != nil {
			return err
		}
		if err := env.InitializeBinding(fn.Name, vm.ObjectValue(closure)); err != nil {
			return err
		}
		bound[fn.Name] = true
	}
	return nil
}

// needsArguments reports whether the call gets an arguments binding. Arrow
// functions see the enclosing one; a parameter, or a function or lexical
// declaration named arguments shadows it.
func needsArguments(node *ast.FunctionNode, params map[string]bool) bool {
	if node.IsArrow() || !node.UsesArguments || params[argumentsName] {
		return false
	}
	for _, fn := range node.Functions {
		if fn.Name == argumentsName {
			return false
		}
	}
	for _, lex := range node.LexicalNames {
		if lex.Name == argumentsName {
			return false
		}
	}
	return true
}
