package vm

import (
	"github.com/rs/zerolog"
)

// CompatibilityOption enables a legacy web-compatibility behavior.
type CompatibilityOption uint8

const (
	// CompatFunctionPrototype gives non-strict function declarations and
	// expressions the legacy "caller" and "arguments" own properties.
	CompatFunctionPrototype CompatibilityOption = iota
	// CompatBlockFunctionDeclaration hoists block-level function declarations
	// of sloppy code into the enclosing var scope.
	CompatBlockFunctionDeclaration
	compatCount
)

func (c CompatibilityOption) String() string {
	switch c {
	case CompatFunctionPrototype:
		return "function-prototype"
	case CompatBlockFunctionDeclaration:
		return "block-function-declaration"
	}
	return "unknown"
}

// ParseCompatibilityOption maps a configuration name to an option.
func ParseCompatibilityOption(name string) (CompatibilityOption, bool) {
	for c := CompatibilityOption(0); c < compatCount; c++ {
		if c.String() == name {
			return c, true
		}
	}
	return 0, false
}

// CompatibilitySet is a set of enabled options.
type CompatibilitySet uint32

// WebCompatibility enables every option.
func WebCompatibility() CompatibilitySet {
	return CompatibilitySet(1<<compatCount - 1)
}

func (s CompatibilitySet) With(c CompatibilityOption) CompatibilitySet {
	return s | 1<<c
}

func (s CompatibilitySet) Has(c CompatibilityOption) bool {
	return s&(1<<c) != 0
}

// ExecutionContext tracks the state of one running body.
type ExecutionContext struct {
	Realm *Realm
	// Function is the function being evaluated, nil for script and module
	// bodies.
	Function *FunctionObject
	// ScriptOrModule is the module record or script evaluated by this
	// context, opaque to the object model.
	ScriptOrModule      any
	LexicalEnvironment  Environment
	VariableEnvironment Environment
}

// Agent owns the execution context stack and the job queue shared by its
// realms. An agent is single-threaded: none of its methods may be called
// concurrently.
type Agent struct {
	stack   []*ExecutionContext
	jobs    JobQueue
	compat  CompatibilitySet
	realms  int
	logger  zerolog.Logger
	maxCall int
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithCompatibility sets the enabled compatibility options.
func WithCompatibility(set CompatibilitySet) AgentOption {
	return func(a *Agent) { a.compat = set }
}

// WithLogger sets the logger used for agent-level diagnostics.
func WithLogger(logger zerolog.Logger) AgentOption {
	return func(a *Agent) { a.logger = logger }
}

// WithMaxCallDepth bounds the execution context stack. Zero disables the
// bound.
func WithMaxCallDepth(n int) AgentOption {
	return func(a *Agent) { a.maxCall = n }
}

func NewAgent(opts ...AgentOption) *Agent {
	a := &Agent{
		logger:  zerolog.Nop(),
		maxCall: 10000,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.jobs.logger = a.logger
	return a
}

// NewRealm creates a realm with fresh intrinsics.
func (a *Agent) NewRealm() *Realm {
	a.realms++
	r := newRealm(a, a.realms)
	a.logger.Debug().Int("realm", r.id).Msg("realm created")
	return r
}

func (a *Agent) Compatibility() CompatibilitySet { return a.compat }

func (a *Agent) Logger() zerolog.Logger { return a.logger }

// Jobs returns the agent's job queue.
func (a *Agent) Jobs() *JobQueue { return &a.jobs }

// RunJobs drains the job queue. See JobQueue.Drain.
func (a *Agent) RunJobs() error { return a.jobs.Drain() }

// PushContext makes cx the running execution context.
func (a *Agent) PushContext(cx *ExecutionContext) error {
	if a.maxCall > 0 && len(a.stack) >= a.maxCall {
		return NewRangeErrorf("maximum call stack size exceeded")
	}
	a.stack = append(a.stack, cx)
	return nil
}

// PopContext removes the running execution context.
func (a *Agent) PopContext() {
	n := len(a.stack)
	a.stack[n-1] = nil
	a.stack = a.stack[:n-1]
}

// RunningContext returns the running execution context, or nil.
func (a *Agent) RunningContext() *ExecutionContext {
	if len(a.stack) == 0 {
		return nil
	}
	return a.stack[len(a.stack)-1]
}

// Depth returns the number of active execution contexts.
func (a *Agent) Depth() int { return len(a.stack) }
