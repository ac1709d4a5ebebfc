package values

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// PropertyDescriptor records one own property of an Object: either a plain
// data slot, or an accessor pair. Only one of Value or (Getter, Setter) is
// meaningful at a time, selected by IsAccessor.
type PropertyDescriptor struct {
	Value        Value
	Getter       Value
	Setter       Value
	IsAccessor   bool
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// Object is the minimal property-table collaborator the executor requires
// from the object model: a reference-counted (here: GC-owned) record with a
// class tag, flags, a Prototype link and a property table. It backs
// the dispatch loop's GETPROP/PUTPROP/DELPROP/MPUTOBJ/INITGET/INITSET
// opcodes and nothing more; Get, Put, HasProperty and EnumeratorCreate
// follow the whole Prototype chain, but it is not a full ES5 object model
// (no built-in library).
type Object struct {
	Class      string // e.g. "Object", "Array", "Error", "Function"
	Extensible bool
	Prototype  *Object
	props      *swiss.Map[string, *PropertyDescriptor]
	length     int // only meaningful for Class == "Array"
}

var _ Value = (*Object)(nil)

// NewObject returns an empty, extensible object with the given prototype
// (may be nil).
func NewObject(class string, proto *Object) *Object {
	return &Object{
		Class:      class,
		Extensible: true,
		Prototype:  proto,
		props:      swiss.NewMap[string, *PropertyDescriptor](4),
	}
}

func (o *Object) String() string { return fmt.Sprintf("[object %s]", o.Class) }
func (o *Object) Type() string   { return "object" }

// getOwn looks up key as an own property, without walking the prototype
// chain.
func (o *Object) getOwn(key string) (*PropertyDescriptor, bool) {
	return o.props.Get(key)
}

// HasOwnProperty reports whether key is an own property, without walking
// the prototype chain. Environment records (package machine) use this to
// decide whether a name is already bound directly in an object
// environment before falling through to its parent.
func (o *Object) HasOwnProperty(key string) bool {
	_, ok := o.getOwn(key)
	return ok
}

// GetOwn reads an own property's value without walking the prototype
// chain, invoking an own accessor's getter if present. It reports found ==
// false when key is not an own property at all (as opposed to being an own
// property whose value happens to be undefined).
func (o *Object) GetOwn(c Caller, key string) (v Value, found bool, err error) {
	pd, ok := o.getOwn(key)
	if !ok {
		return nil, false, nil
	}
	if pd.IsAccessor {
		if pd.Getter == nil {
			return Undefined{}, true, nil
		}
		v, err = c.CallMethod(pd.Getter, o, nil)
		return v, true, err
	}
	return pd.Value, true, nil
}

// Get implements the `get(obj,key) → value|throw` contract, walking the
// prototype chain one level at a time in a loop until key is found or the
// chain ends.
func (o *Object) Get(c Caller, key string) (Value, error) {
	cur := o
	for cur != nil {
		if pd, ok := cur.getOwn(key); ok {
			if pd.IsAccessor {
				if pd.Getter == nil {
					return Undefined{}, nil
				}
				return c.CallMethod(pd.Getter, o, nil)
			}
			return pd.Value, nil
		}
		cur = cur.Prototype
	}
	return Undefined{}, nil
}

// Put implements `put(obj,key,value,strict) → bool|throw`.
func (o *Object) Put(c Caller, key string, v Value, strict bool) (bool, error) {
	if pd, ok := o.getOwn(key); ok {
		if pd.IsAccessor {
			if pd.Setter == nil {
				if strict {
					return false, typeError("cannot set property %q: no setter", key)
				}
				return false, nil
			}
			if _, err := c.CallMethod(pd.Setter, o, []Value{v}); err != nil {
				return false, err
			}
			return true, nil
		}
		if !pd.Writable {
			if strict {
				return false, typeError("cannot assign to read-only property %q", key)
			}
			return false, nil
		}
		pd.Value = v
		return true, nil
	}

	// walk prototype chain for an inherited accessor/non-writable property
	for proto := o.Prototype; proto != nil; proto = proto.Prototype {
		if pd, ok := proto.getOwn(key); ok {
			if pd.IsAccessor {
				if pd.Setter == nil {
					if strict {
						return false, typeError("cannot set property %q: no setter", key)
					}
					return false, nil
				}
				if _, err := c.CallMethod(pd.Setter, o, []Value{v}); err != nil {
					return false, err
				}
				return true, nil
			}
			if !pd.Writable {
				if strict {
					return false, typeError("cannot assign to read-only property %q", key)
				}
				return false, nil
			}
			break
		}
	}

	if !o.Extensible {
		if strict {
			return false, typeError("object is not extensible")
		}
		return false, nil
	}
	o.DefineDataProperty(key, v, true, true, true)
	return true, nil
}

// Delete implements `delete(obj,key,strict) → bool|throw`.
func (o *Object) Delete(key string, strict bool) (bool, error) {
	pd, ok := o.getOwn(key)
	if !ok {
		return true, nil
	}
	if !pd.Configurable {
		if strict {
			return false, typeError("property %q is not configurable", key)
		}
		return false, nil
	}
	o.props.Delete(key)
	return true, nil
}

// DefineDataProperty defines (or redefines) an own data property.
func (o *Object) DefineDataProperty(key string, v Value, writable, enumerable, configurable bool) {
	o.props.Put(key, &PropertyDescriptor{
		Value:        v,
		Writable:     writable,
		Enumerable:   enumerable,
		Configurable: configurable,
	})
}

// DefineAccessor defines (or redefines) an own accessor property, per the
// Object API's `define_accessor` contract, used by the
// INITGET/INITGETI/INITSET/INITSETI opcodes.
func (o *Object) DefineAccessor(key string, getter, setter Value, enumerable, configurable bool) {
	if existing, ok := o.getOwn(key); ok && existing.IsAccessor {
		if getter != nil {
			existing.Getter = getter
		}
		if setter != nil {
			existing.Setter = setter
		}
		return
	}
	o.props.Put(key, &PropertyDescriptor{
		IsAccessor:   true,
		Getter:       getter,
		Setter:       setter,
		Enumerable:   enumerable,
		Configurable: configurable,
	})
}

// HasProperty implements the `in` operator's object side.
func (o *Object) HasProperty(key string) bool {
	for cur := o; cur != nil; cur = cur.Prototype {
		if _, ok := cur.getOwn(key); ok {
			return true
		}
	}
	return false
}

// LengthSet implements `length_set`, used by MPUTARR and the Array `length`
// setter semantics.
func (o *Object) LengthSet(n int) {
	o.length = n
	o.DefineDataProperty("length", NewNumber(float64(n)), true, false, false)
}

// Length returns the cached array length (only meaningful for Class ==
// "Array").
func (o *Object) Length() int { return o.length }

// PropertyEnumerator walks own-and-inherited enumerable string keys: an
// object's own keys first, in the property table's iteration order (not
// insertion order), then its prototypes' keys, implementing `enumerator_create` /
// `enumerator_next` well enough to drive a for-in loop (INITENUM/NEXTENUM).
type PropertyEnumerator struct {
	keys []string
	idx  int
}

// EnumeratorCreate implements `enumerator_create(obj) → enumerator`.
func (o *Object) EnumeratorCreate() *PropertyEnumerator {
	seen := make(map[string]bool)
	var keys []string
	for cur := o; cur != nil; cur = cur.Prototype {
		cur.props.Iter(func(k string, pd *PropertyDescriptor) bool {
			if pd.Enumerable && !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
			return false
		})
	}
	return &PropertyEnumerator{keys: keys}
}

// EnumeratorNext implements `enumerator_next(enumerator) → key, ok`.
func (e *PropertyEnumerator) EnumeratorNext() (string, bool) {
	if e.idx >= len(e.keys) {
		return "", false
	}
	k := e.keys[e.idx]
	e.idx++
	return k, true
}
