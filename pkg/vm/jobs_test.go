package vm

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobQueue_FIFOIncludingNestedJobs(t *testing.T) {
	var q JobQueue
	var order []int
	q.Enqueue(func() error {
		order = append(order, 1)
		q.Enqueue(func() error { order = append(order, 3); return nil })
		return nil
	})
	q.Enqueue(func() error { order = append(order, 2); return nil })
	require.NoError(t, q.Drain())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Zero(t, q.Len())
}

func TestJobQueue_StopsAtFirstError(t *testing.T) {
	var buf bytes.Buffer
	q := JobQueue{logger: zerolog.New(&buf).Level(zerolog.DebugLevel)}
	boom := stderrors.New("boom")
	ran := 0
	q.Enqueue(func() error { ran++; return boom })
	q.Enqueue(func() error { ran++; return nil })

	assert.ErrorIs(t, q.Drain(), boom)
	assert.Equal(t, 1, ran)
	assert.Equal(t, 1, q.Len())
	assert.Contains(t, buf.String(), "job failed")

	require.NoError(t, q.Drain())
	assert.Equal(t, 2, ran)
}

func TestPromise_ThenReactionsRunAsJobs(t *testing.T) {
	r := newTestRealm(t)
	agent := r.Agent()
	p := NewPromise(r)
	var seen []string
	record := func(tag string) Value {
		return ObjectValue(NewNativeFunction(r, "", 1, func(_ Value, args []Value) (Value, error) {
			seen = append(seen, tag+":"+Arg(args, 0).String())
			return NewString(tag), nil
		}))
	}
	derived := p.Then(record("a"), Undefined)
	p.Resolve(IntegerValue(1))
	p.Resolve(IntegerValue(2))
	assert.Empty(t, seen, "reactions wait for the job queue")
	assert.Equal(t, PromiseFulfilled, p.State())

	require.NoError(t, agent.RunJobs())
	assert.Equal(t, []string{"a:1"}, seen)
	assert.Equal(t, PromiseFulfilled, derived.State())
	assert.Equal(t, "a", derived.Result().AsString())
}

func TestPromise_RejectionPassThroughAndCatch(t *testing.T) {
	r := newTestRealm(t)
	p := NewPromise(r)
	passed := p.Then(Undefined, Undefined)
	caught := passed.Then(Undefined, ObjectValue(NewNativeFunction(r, "", 1, func(_ Value, args []Value) (Value, error) {
		return NewString("recovered"), nil
	})))
	p.Reject(NewString("bad"))
	require.NoError(t, r.Agent().RunJobs())
	assert.Equal(t, PromiseRejected, passed.State())
	assert.Equal(t, "bad", passed.Result().AsString())
	assert.Equal(t, PromiseFulfilled, caught.State())
	assert.Equal(t, "recovered", caught.Result().AsString())
}

func TestPromise_AdoptsThenables(t *testing.T) {
	r := newTestRealm(t)
	inner := NewPromise(r)
	outer := NewPromise(r)
	outer.Resolve(ObjectValue(inner))
	inner.Resolve(NewString("value"))
	require.NoError(t, r.Agent().RunJobs())
	assert.Equal(t, PromiseFulfilled, outer.State())
	assert.Equal(t, "value", outer.Result().AsString())

	self := NewPromise(r)
	self.Resolve(ObjectValue(self))
	assert.Equal(t, PromiseRejected, self.State())
}

func TestPromise_HandlerErrorRejects(t *testing.T) {
	r := newTestRealm(t)
	p := NewPromise(r)
	derived := p.Then(ObjectValue(NewNativeFunction(r, "", 1, func(Value, []Value) (Value, error) {
		return Undefined, Throw(NewString("thrown"))
	})), Undefined)
	p.Resolve(Undefined)
	require.NoError(t, r.Agent().RunJobs())
	assert.Equal(t, PromiseRejected, derived.State())
	assert.Equal(t, "thrown", derived.Result().AsString())
}

func TestGenerator_States(t *testing.T) {
	r := newTestRealm(t)
	step := 0
	g := NewGenerator(r, nil, func(mode ResumeMode, sent Value) (Value, bool, error) {
		if mode == ResumeReturn {
			return sent, true, nil
		}
		step++
		if step < 3 {
			return IntegerValue(int64(step)), false, nil
		}
		return NewString("end"), true, nil
	})
	assert.Equal(t, GeneratorSuspendedStart, g.State())

	next := func() (Value, bool) {
		res, err := g.Next(Undefined)
		require.NoError(t, err)
		v, _ := GetV(res.AsObject(), StringKey("value"))
		done, _ := GetV(res.AsObject(), StringKey("done"))
		return v, done.AsBoolean()
	}
	v, done := next()
	assert.Equal(t, float64(1), v.AsNumber())
	assert.False(t, done)
	assert.Equal(t, GeneratorSuspendedYield, g.State())
	next()
	v, done = next()
	assert.Equal(t, "end", v.AsString())
	assert.True(t, done)
	assert.Equal(t, GeneratorCompleted, g.State())
	v, done = next()
	assert.True(t, v.IsUndefined())
	assert.True(t, done)
}

func TestGenerator_PrototypeMethods(t *testing.T) {
	r := newTestRealm(t)
	g := NewGenerator(r, nil, func(ResumeMode, Value) (Value, bool, error) {
		return Undefined, false, nil
	})
	ret, err := GetV(g, StringKey("return"))
	require.NoError(t, err)
	res, err := Call(ret, ObjectValue(g), []Value{NewString("early")})
	require.NoError(t, err)
	v, _ := GetV(res.AsObject(), StringKey("value"))
	assert.Equal(t, "early", v.AsString())
	assert.Equal(t, GeneratorCompleted, g.State())

	next, _ := GetV(g, StringKey("next"))
	_, err = Call(next, IntegerValue(1), nil)
	assert.Error(t, err)

	iter, _ := GetV(g, SymbolKey(SymIterator))
	self, err := Call(iter, ObjectValue(g), nil)
	require.NoError(t, err)
	assert.Equal(t, Object(g), self.AsObject())
}

func TestGenerator_RejectsReentry(t *testing.T) {
	r := newTestRealm(t)
	var g *GeneratorObject
	g = NewGenerator(r, nil, func(ResumeMode, Value) (Value, bool, error) {
		_, err := g.Next(Undefined)
		return Undefined, true, err
	})
	_, err := g.Next(Undefined)
	assert.Error(t, err)
	assert.Equal(t, GeneratorCompleted, g.State())
}

func TestAgent_CallDepthLimit(t *testing.T) {
	a := NewAgent(WithMaxCallDepth(2))
	r := a.NewRealm()
	require.NoError(t, a.PushContext(&ExecutionContext{Realm: r}))
	require.NoError(t, a.PushContext(&ExecutionContext{Realm: r}))
	assert.Error(t, a.PushContext(&ExecutionContext{Realm: r}))
	assert.Equal(t, 2, a.Depth())
	a.PopContext()
	assert.Equal(t, r, a.RunningContext().Realm)
}

func TestCompatibilityOptions(t *testing.T) {
	c, ok := ParseCompatibilityOption("function-prototype")
	require.True(t, ok)
	set := CompatibilitySet(0).With(c)
	assert.True(t, set.Has(CompatFunctionPrototype))
	assert.False(t, set.Has(CompatBlockFunctionDeclaration))
	assert.True(t, WebCompatibility().Has(CompatBlockFunctionDeclaration))
	_, ok = ParseCompatibilityOption("nope")
	assert.False(t, ok)
}
