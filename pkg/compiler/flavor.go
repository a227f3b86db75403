package compiler

import (
	"fmt"

	"esrt/pkg/ast"
	"esrt/pkg/errors"
	"esrt/pkg/vm"
)

// Flavor selects the entry sequences emitted for a function.
type Flavor uint8

const (
	FlavorPlain Flavor = iota
	FlavorLegacy
	FlavorGenerator
	FlavorAsync
	FlavorClassConstructor
	FlavorDerived
)

func (f Flavor) String() string {
	switch f {
	case FlavorPlain:
		return "plain"
	case FlavorLegacy:
		return "legacy"
	case FlavorGenerator:
		return "generator"
	case FlavorAsync:
		return "async"
	case FlavorClassConstructor:
		return "class-constructor"
	case FlavorDerived:
		return "derived"
	}
	return fmt.Sprintf("Flavor(%d)", uint8(f))
}

// Classify returns the flavor of node. Legacy is chosen only for non-strict
// ordinary declarations and expressions when the function-prototype
// compatibility option is enabled.
func Classify(node *ast.FunctionNode, compat vm.CompatibilitySet) (Flavor, error) {
	switch {
	case node.Kind == ast.ClassConstructor && node.Derived:
		return FlavorDerived, nil
	case node.Kind == ast.ClassConstructor:
		return FlavorClassConstructor, nil
	case node.Generator && node.Async:
		return 0, errors.NewTypeError("async generator function %q is not supported", node.Name)
	case node.Generator:
		return FlavorGenerator, nil
	case node.Async:
		return FlavorAsync, nil
	}
	if !node.Strict && compat.Has(vm.CompatFunctionPrototype) &&
		(node.Kind == ast.FunctionDeclaration || node.Kind == ast.FunctionExpression) {
		return FlavorLegacy, nil
	}
	return FlavorPlain, nil
}

// ThisModeOf maps a function node to the way it binds this.
func ThisModeOf(node *ast.FunctionNode) vm.ThisMode {
	switch {
	case node.IsArrow():
		return vm.ThisModeLexical
	case node.Strict || node.Kind == ast.ClassConstructor:
		return vm.ThisModeStrict
	}
	return vm.ThisModeGlobal
}

// constructible reports whether the function gets a construct entry.
func constructible(node *ast.FunctionNode) bool {
	if node.Generator || node.Async {
		return false
	}
	switch node.Kind {
	case ast.FunctionDeclaration, ast.FunctionExpression, ast.ClassConstructor:
		return true
	}
	return false
}

// emitCall builds the [[Call]] sequence for a flavor.
func emitCall(name string, flavor Flavor) *Chunk {
	label := name + " [[Call]]"
	switch flavor {
	case FlavorClassConstructor, FlavorDerived:
		return newChunk(label, OpThrowClassCall)
	case FlavorLegacy:
		return newChunk(label, OpLegacyEnter, OpPrepareCall, OpBindThis, OpFunctionInit, OpEvaluateBody, OpReturnValue).
			withFinally(OpLegacyExit)
	case FlavorGenerator:
		return newChunk(label, OpPrepareCall, OpBindThis, OpFunctionInit, OpCreateGenerator, OpReturnValue)
	case FlavorAsync:
		return newChunk(label, OpPrepareCall, OpBindThis, OpCreatePromise, OpFunctionInit, OpEvaluateBody, OpResolvePromise, OpReturnValue)
	}
	return newChunk(label, OpPrepareCall, OpBindThis, OpFunctionInit, OpEvaluateBody, OpReturnValue)
}

// emitConstruct builds the [[Construct]] sequence, or nil when the flavor
// is not constructible.
func emitConstruct(name string, flavor Flavor) *Chunk {
	label := name + " [[Construct]]"
	switch flavor {
	case FlavorDerived:
		return newChunk(label, OpPrepareCall, OpFunctionInit, OpEvaluateBody, OpReturnDerivedResult)
	case FlavorLegacy:
		return newChunk(label, OpAllocateThis, OpLegacyEnter, OpPrepareCall, OpBindThis, OpFunctionInit, OpEvaluateBody, OpReturnResultOrThis).
			withFinally(OpLegacyExit)
	case FlavorPlain, FlavorClassConstructor:
		return newChunk(label, OpAllocateThis, OpPrepareCall, OpBindThis, OpFunctionInit, OpEvaluateBody, OpReturnResultOrThis)
	}
	return nil
}
