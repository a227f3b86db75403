package vm

// ProxyObject forwards the fundamental operations to handler traps and
// checks each trap result against the target's actual state.
//
// Proxies over callable targets are created as callableProxy (and
// constructorProxy for constructors) so that IsCallable and IsConstructor
// reflect the target at creation time.
type ProxyObject struct {
	realm   *Realm
	target  Object
	handler Object
}

type callableProxy struct {
	*ProxyObject
}

type constructorProxy struct {
	callableProxy
}

// proxyBacked is implemented by every proxy variant.
type proxyBacked interface {
	proxy() *ProxyObject
}

func (p *ProxyObject) proxy() *ProxyObject { return p }

// NewProxy creates a proxy for target. The result is callable when target
// is, and a constructor when target is.
func NewProxy(realm *Realm, target, handler Object) (Object, error) {
	if target == nil || handler == nil {
		return nil, newTypeError("cannot create proxy with a non-object as target or handler")
	}
	if t, ok := target.(proxyBacked); ok && t.proxy().target == nil {
		return nil, newTypeError("cannot create proxy with a revoked proxy as target")
	}
	if h, ok := handler.(proxyBacked); ok && h.proxy().target == nil {
		return nil, newTypeError("cannot create proxy with a revoked proxy as handler")
	}
	p := &ProxyObject{realm: realm, target: target, handler: handler}
	tv := ObjectValue(target)
	switch {
	case IsConstructor(tv):
		return constructorProxy{callableProxy{p}}, nil
	case IsCallable(tv):
		return callableProxy{p}, nil
	}
	return p, nil
}

// NewRevocableProxy creates a proxy together with a native function that
// revokes it.
func NewRevocableProxy(realm *Realm, target, handler Object) (Object, *NativeFunction, error) {
	proxy, err := NewProxy(realm, target, handler)
	if err != nil {
		return nil, nil, err
	}
	p := proxy.(proxyBacked).proxy()
	revoke := NewNativeFunction(realm, "", 0, func(Value, []Value) (Value, error) {
		p.Revoke()
		return Undefined, nil
	})
	return proxy, revoke, nil
}

// Revoke detaches the proxy from its target and handler. Every later
// operation fails with a TypeError.
func (p *ProxyObject) Revoke() {
	p.target = nil
	p.handler = nil
}

// IsRevoked reports whether Revoke has been called.
func (p *ProxyObject) IsRevoked() bool { return p.handler == nil }

// Target returns the proxied object, nil once revoked.
func (p *ProxyObject) Target() Object { return p.target }

func (p *ProxyObject) Class() string {
	if p.target == nil {
		return "Proxy"
	}
	return p.target.Class()
}

// trap looks up the handler method for op. Handler and target are read
// before the lookup, which may run script that revokes the proxy. An
// undefined trap value means the operation forwards to the target.
func (p *ProxyObject) trap(op string) (trap Value, handler, target Object, err error) {
	handler, target = p.handler, p.target
	if handler == nil {
		return Undefined, nil, nil, newTypeError("cannot perform '%s' on a proxy that has been revoked", op)
	}
	trap, err = GetMethod(handler, StringKey(op))
	return trap, handler, target, err
}

func callTrap(handler Object, trap Value, args ...Value) (Value, error) {
	return Call(trap, ObjectValue(handler), args)
}

func (p *ProxyObject) GetPrototypeOf() (Object, error) {
	trap, handler, target, err := p.trap("getPrototypeOf")
	if err != nil {
		return nil, err
	}
	if trap.IsUndefined() {
		return target.GetPrototypeOf()
	}
	v, err := callTrap(handler, trap, ObjectValue(target))
	if err != nil {
		return nil, err
	}
	if !v.IsObject() && !v.IsNull() {
		return nil, newTypeError("'getPrototypeOf' on proxy: trap returned neither object nor null")
	}
	proto := v.AsObject()
	ext, err := target.IsExtensible()
	if err != nil || ext {
		return proto, err
	}
	targetProto, err := target.GetPrototypeOf()
	if err != nil {
		return nil, err
	}
	if proto != targetProto {
		return nil, newTypeError("'getPrototypeOf' on proxy: proxy target is non-extensible but the trap did not return its actual prototype")
	}
	return proto, nil
}

func (p *ProxyObject) SetPrototypeOf(proto Object) (bool, error) {
	trap, handler, target, err := p.trap("setPrototypeOf")
	if err != nil {
		return false, err
	}
	if trap.IsUndefined() {
		return target.SetPrototypeOf(proto)
	}
	v, err := callTrap(handler, trap, ObjectValue(target), ObjectValue(proto))
	if err != nil || !ToBoolean(v) {
		return false, err
	}
	ext, err := target.IsExtensible()
	if err != nil || ext {
		return err == nil, err
	}
	targetProto, err := target.GetPrototypeOf()
	if err != nil {
		return false, err
	}
	if proto != targetProto {
		return false, newTypeError("'setPrototypeOf' on proxy: trap returned truish for setting a new prototype on the non-extensible proxy target")
	}
	return true, nil
}

func (p *ProxyObject) IsExtensible() (bool, error) {
	trap, handler, target, err := p.trap("isExtensible")
	if err != nil {
		return false, err
	}
	if trap.IsUndefined() {
		return target.IsExtensible()
	}
	v, err := callTrap(handler, trap, ObjectValue(target))
	if err != nil {
		return false, err
	}
	result := ToBoolean(v)
	ext, err := target.IsExtensible()
	if err != nil {
		return false, err
	}
	if result != ext {
		return false, newTypeError("'isExtensible' on proxy: trap result does not reflect extensibility of proxy target (which is '%t')", ext)
	}
	return result, nil
}

func (p *ProxyObject) PreventExtensions() (bool, error) {
	trap, handler, target, err := p.trap("preventExtensions")
	if err != nil {
		return false, err
	}
	if trap.IsUndefined() {
		return target.PreventExtensions()
	}
	v, err := callTrap(handler, trap, ObjectValue(target))
	if err != nil {
		return false, err
	}
	result := ToBoolean(v)
	if result {
		ext, err := target.IsExtensible()
		if err != nil {
			return false, err
		}
		if ext {
			return false, newTypeError("'preventExtensions' on proxy: trap returned truish but the proxy target is extensible")
		}
	}
	return result, nil
}

func (p *ProxyObject) GetOwnProperty(key PropertyKey) (*Property, error) {
	trap, handler, target, err := p.trap("getOwnPropertyDescriptor")
	if err != nil {
		return nil, err
	}
	if trap.IsUndefined() {
		return target.GetOwnProperty(key)
	}
	v, err := callTrap(handler, trap, ObjectValue(target), key.ToValue())
	if err != nil {
		return nil, err
	}
	if !v.IsObject() && !v.IsUndefined() {
		return nil, newTypeError("'getOwnPropertyDescriptor' on proxy: trap returned neither object nor undefined for property '%s'", key)
	}
	targetDesc, err := target.GetOwnProperty(key)
	if err != nil {
		return nil, err
	}
	if v.IsUndefined() {
		if targetDesc == nil {
			return nil, nil
		}
		if !targetDesc.configurable {
			return nil, newTypeError("'getOwnPropertyDescriptor' on proxy: trap returned undefined for property '%s' which is non-configurable in the proxy target", key)
		}
		ext, err := target.IsExtensible()
		if err != nil {
			return nil, err
		}
		if !ext {
			return nil, newTypeError("'getOwnPropertyDescriptor' on proxy: trap returned undefined for property '%s' which exists in the non-extensible proxy target", key)
		}
		return nil, nil
	}
	ext, err := target.IsExtensible()
	if err != nil {
		return nil, err
	}
	desc, err := ToPropertyDescriptor(v)
	if err != nil {
		return nil, err
	}
	desc = desc.Complete()
	if !IsCompatiblePropertyDescriptor(ext, desc, targetDesc) {
		return nil, newTypeError("'getOwnPropertyDescriptor' on proxy: trap returned descriptor for property '%s' that is incompatible with the existing property in the proxy target", key)
	}
	if desc.Configurable == FlagFalse {
		if targetDesc == nil || targetDesc.configurable {
			return nil, newTypeError("'getOwnPropertyDescriptor' on proxy: trap reported non-configurability for property '%s' which is either non-existent or configurable in the proxy target", key)
		}
		if desc.Writable == FlagFalse && targetDesc.IsData() && targetDesc.writable {
			return nil, newTypeError("'getOwnPropertyDescriptor' on proxy: trap reported non-configurable and writable for property '%s' which is non-configurable, non-writable in the proxy target", key)
		}
	}
	return desc.toProperty(), nil
}

func (p *ProxyObject) DefineOwnProperty(key PropertyKey, desc PropertyDescriptor) (bool, error) {
	trap, handler, target, err := p.trap("defineProperty")
	if err != nil {
		return false, err
	}
	if trap.IsUndefined() {
		return target.DefineOwnProperty(key, desc)
	}
	v, err := callTrap(handler, trap, ObjectValue(target), key.ToValue(), FromPropertyDescriptor(p.realm, desc))
	if err != nil || !ToBoolean(v) {
		return false, err
	}
	targetDesc, err := target.GetOwnProperty(key)
	if err != nil {
		return false, err
	}
	ext, err := target.IsExtensible()
	if err != nil {
		return false, err
	}
	settingConfigFalse := desc.Configurable == FlagFalse
	if targetDesc == nil {
		if !ext {
			return false, newTypeError("'defineProperty' on proxy: trap returned truish for adding property '%s' to the non-extensible proxy target", key)
		}
		if settingConfigFalse {
			return false, newTypeError("'defineProperty' on proxy: trap returned truish for defining non-configurable property '%s' which is non-existent in the proxy target", key)
		}
		return true, nil
	}
	if !IsCompatiblePropertyDescriptor(ext, desc, targetDesc) {
		return false, newTypeError("'defineProperty' on proxy: trap returned truish for adding property '%s' that is incompatible with the existing property in the proxy target", key)
	}
	if settingConfigFalse && targetDesc.configurable {
		return false, newTypeError("'defineProperty' on proxy: trap returned truish for defining non-configurable property '%s' which is configurable in the proxy target", key)
	}
	if targetDesc.IsData() && !targetDesc.configurable && targetDesc.writable && desc.Writable == FlagFalse {
		return false, newTypeError("'defineProperty' on proxy: trap returned truish for defining non-configurable property '%s' which cannot be non-writable, unless there exists a corresponding non-configurable, non-writable own property of the target object", key)
	}
	return true, nil
}

func (p *ProxyObject) HasProperty(key PropertyKey) (bool, error) {
	trap, handler, target, err := p.trap("has")
	if err != nil {
		return false, err
	}
	if trap.IsUndefined() {
		return target.HasProperty(key)
	}
	v, err := callTrap(handler, trap, ObjectValue(target), key.ToValue())
	if err != nil {
		return false, err
	}
	if ToBoolean(v) {
		return true, nil
	}
	targetDesc, err := target.GetOwnProperty(key)
	if err != nil || targetDesc == nil {
		return false, err
	}
	if !targetDesc.configurable {
		return false, newTypeError("'has' on proxy: trap returned falsish for property '%s' which exists in the proxy target as non-configurable", key)
	}
	ext, err := target.IsExtensible()
	if err != nil {
		return false, err
	}
	if !ext {
		return false, newTypeError("'has' on proxy: trap returned falsish for property '%s' but the proxy target is not extensible", key)
	}
	return false, nil
}

func (p *ProxyObject) Get(key PropertyKey, receiver Value) (Value, error) {
	trap, handler, target, err := p.trap("get")
	if err != nil {
		return Undefined, err
	}
	if trap.IsUndefined() {
		return target.Get(key, receiver)
	}
	v, err := callTrap(handler, trap, ObjectValue(target), key.ToValue(), receiver)
	if err != nil {
		return Undefined, err
	}
	targetDesc, err := target.GetOwnProperty(key)
	if err != nil {
		return Undefined, err
	}
	if targetDesc != nil && !targetDesc.configurable {
		if targetDesc.IsData() && !targetDesc.writable && !SameValue(v, targetDesc.value) {
			return Undefined, newTypeError("'get' on proxy: property '%s' is a read-only and non-configurable data property on the proxy target but the proxy did not return its actual value (expected '%s' but got '%s')", key, targetDesc.value.Inspect(), v.Inspect())
		}
		if targetDesc.IsAccessor() && targetDesc.getter == nil && !v.IsUndefined() {
			return Undefined, newTypeError("'get' on proxy: property '%s' is a non-configurable accessor property on the proxy target and does not have a getter function, but the trap did not return 'undefined' (got '%s')", key, v.Inspect())
		}
	}
	return v, nil
}

func (p *ProxyObject) Set(key PropertyKey, value Value, receiver Value) (bool, error) {
	trap, handler, target, err := p.trap("set")
	if err != nil {
		return false, err
	}
	if trap.IsUndefined() {
		return target.Set(key, value, receiver)
	}
	v, err := callTrap(handler, trap, ObjectValue(target), key.ToValue(), value, receiver)
	if err != nil || !ToBoolean(v) {
		return false, err
	}
	targetDesc, err := target.GetOwnProperty(key)
	if err != nil {
		return false, err
	}
	if targetDesc != nil && !targetDesc.configurable {
		if targetDesc.IsData() && !targetDesc.writable && !SameValue(value, targetDesc.value) {
			return false, newTypeError("'set' on proxy: trap returned truish for property '%s' which exists in the proxy target as a non-configurable and non-writable data property with a different value", key)
		}
		if targetDesc.IsAccessor() && targetDesc.setter == nil {
			return false, newTypeError("'set' on proxy: trap returned truish for property '%s' which exists in the proxy target as a non-configurable and non-writable accessor property without a setter", key)
		}
	}
	return true, nil
}

func (p *ProxyObject) Delete(key PropertyKey) (bool, error) {
	trap, handler, target, err := p.trap("deleteProperty")
	if err != nil {
		return false, err
	}
	if trap.IsUndefined() {
		return target.Delete(key)
	}
	v, err := callTrap(handler, trap, ObjectValue(target), key.ToValue())
	if err != nil || !ToBoolean(v) {
		return false, err
	}
	targetDesc, err := target.GetOwnProperty(key)
	if err != nil || targetDesc == nil {
		return err == nil, err
	}
	if !targetDesc.configurable {
		return false, newTypeError("'deleteProperty' on proxy: trap returned truish for property '%s' which is non-configurable in the proxy target", key)
	}
	ext, err := target.IsExtensible()
	if err != nil {
		return false, err
	}
	if !ext {
		return false, newTypeError("'deleteProperty' on proxy: trap returned truish for property '%s' but the proxy target is non-extensible", key)
	}
	return true, nil
}

func (p *ProxyObject) OwnPropertyKeys() ([]PropertyKey, error) {
	trap, handler, target, err := p.trap("ownKeys")
	if err != nil {
		return nil, err
	}
	if trap.IsUndefined() {
		return target.OwnPropertyKeys()
	}
	v, err := callTrap(handler, trap, ObjectValue(target))
	if err != nil {
		return nil, err
	}
	list, err := CreateListFromArrayLike(v, true)
	if err != nil {
		return nil, err
	}
	keys := make([]PropertyKey, 0, len(list))
	unchecked := make(map[PropertyKey]struct{}, len(list))
	for _, item := range list {
		k, err := ToPropertyKey(item)
		if err != nil {
			return nil, err
		}
		if _, dup := unchecked[k]; dup {
			return nil, newTypeError("'ownKeys' on proxy: trap returned duplicate entries")
		}
		unchecked[k] = struct{}{}
		keys = append(keys, k)
	}
	ext, err := target.IsExtensible()
	if err != nil {
		return nil, err
	}
	targetKeys, err := target.OwnPropertyKeys()
	if err != nil {
		return nil, err
	}
	var configurable, nonConfigurable []PropertyKey
	for _, k := range targetKeys {
		desc, err := target.GetOwnProperty(k)
		if err != nil {
			return nil, err
		}
		if desc != nil && !desc.configurable {
			nonConfigurable = append(nonConfigurable, k)
		} else {
			configurable = append(configurable, k)
		}
	}
	if ext && len(nonConfigurable) == 0 {
		return keys, nil
	}
	for _, k := range nonConfigurable {
		if _, ok := unchecked[k]; !ok {
			return nil, newTypeError("'ownKeys' on proxy: trap result did not include '%s'", k)
		}
		delete(unchecked, k)
	}
	if ext {
		return keys, nil
	}
	for _, k := range configurable {
		if _, ok := unchecked[k]; !ok {
			return nil, newTypeError("'ownKeys' on proxy: trap result did not include '%s'", k)
		}
		delete(unchecked, k)
	}
	if len(unchecked) != 0 {
		return nil, newTypeError("'ownKeys' on proxy: trap returned extra keys but proxy target is non-extensible")
	}
	return keys, nil
}

func (p callableProxy) Call(this Value, args []Value) (Value, error) {
	trap, handler, target, err := p.trap("apply")
	if err != nil {
		return Undefined, err
	}
	if trap.IsUndefined() {
		return Call(ObjectValue(target), this, args)
	}
	argArray := CreateArrayFromList(p.realm, args)
	return callTrap(handler, trap, ObjectValue(target), this, ObjectValue(argArray))
}

func (p callableProxy) IsConstructor() bool { return false }

func (p constructorProxy) IsConstructor() bool { return true }

func (p constructorProxy) Construct(args []Value, newTarget Object) (Object, error) {
	trap, handler, target, err := p.trap("construct")
	if err != nil {
		return nil, err
	}
	if newTarget == nil {
		newTarget = p
	}
	if trap.IsUndefined() {
		return Construct(target, args, newTarget)
	}
	argArray := CreateArrayFromList(p.realm, args)
	v, err := callTrap(handler, trap, ObjectValue(target), ObjectValue(argArray), ObjectValue(newTarget))
	if err != nil {
		return nil, err
	}
	o := v.AsObject()
	if o == nil {
		return nil, newTypeError("'construct' on proxy: trap returned non-object ('%s')", v.Inspect())
	}
	return o, nil
}
