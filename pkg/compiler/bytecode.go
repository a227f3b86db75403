package compiler

import (
	"fmt"
	"strings"
)

// OpCode is one step of a call or construct entry sequence.
type OpCode uint8

const (
	// Setup
	OpThrowClassCall OpCode = iota // Fail: class constructors require new.
	OpAllocateThis                 // this = OrdinaryCreateFromConstructor(newTarget, %ObjectPrototype%).
	OpLegacyEnter                  // Publish caller/arguments on the function.
	OpPrepareCall                  // Create the function environment and push the execution context.
	OpBindThis                     // Coerce the receiver per this-mode and bind it.
	OpFunctionInit                 // FunctionDeclarationInstantiation.

	// Body
	OpEvaluateBody    // Run the unit, result may be a tail call.
	OpCreateGenerator // Wrap the unit in a suspended generator object.
	OpCreatePromise   // Allocate the result promise; later failures reject it.
	OpResolvePromise  // Settle the promise from the body's completion.

	// Exit
	OpReturnValue         // Return the body completion unchanged.
	OpReturnResultOrThis  // Object result, else the allocated this.
	OpReturnDerivedResult // Object result, else the bound this; TypeError otherwise.

	// Finally
	OpLegacyExit // Restore caller/arguments saved by OpLegacyEnter.
)

// String returns a human-readable name for the OpCode.
func (op OpCode) String() string {
	switch op {
	case OpThrowClassCall:
		return "OpThrowClassCall"
	case OpAllocateThis:
		return "OpAllocateThis"
	case OpLegacyEnter:
		return "OpLegacyEnter"
	case OpPrepareCall:
		return "OpPrepareCall"
	case OpBindThis:
		return "OpBindThis"
	case OpFunctionInit:
		return "OpFunctionInit"
	case OpEvaluateBody:
		return "OpEvaluateBody"
	case OpCreateGenerator:
		return "OpCreateGenerator"
	case OpCreatePromise:
		return "OpCreatePromise"
	case OpResolvePromise:
		return "OpResolvePromise"
	case OpReturnValue:
		return "OpReturnValue"
	case OpReturnResultOrThis:
		return "OpReturnResultOrThis"
	case OpReturnDerivedResult:
		return "OpReturnDerivedResult"
	case OpLegacyExit:
		return "OpLegacyExit"
	default:
		return fmt.Sprintf("UnknownOpcode(%d)", op)
	}
}

// Chunk is an entry sequence. Finally runs on every exit path, after Code
// returns or fails.
type Chunk struct {
	Name    string
	Code    []OpCode
	Finally []OpCode
}

func newChunk(name string, code ...OpCode) *Chunk {
	return &Chunk{Name: name, Code: code}
}

func (c *Chunk) withFinally(ops ...OpCode) *Chunk {
	c.Finally = append(c.Finally, ops...)
	return c
}

// Disassemble returns a human-readable listing of the chunk.
func (c *Chunk) Disassemble() string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("== %s ==\n", c.Name))
	for offset, op := range c.Code {
		builder.WriteString(fmt.Sprintf("%04d      %s\n", offset, op))
	}
	if len(c.Finally) > 0 {
		builder.WriteString("-- finally --\n")
		for offset, op := range c.Finally {
			builder.WriteString(fmt.Sprintf("%04d      %s\n", offset, op))
		}
	}
	return builder.String()
}
