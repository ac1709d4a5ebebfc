package machine

import "github.com/remoe/duktape/lang/values"

// Environment is a single link of a lexical/variable environment chain
// (GETVAR/PUTVAR/DECLVAR's "scope chain"). It is either declarative (its
// own name->binding table) or an object environment wrapping a
// script-visible Object (used for `with` statements and the global
// environment), mirroring ES5.1 §10.2's two environment-record kinds.
type Environment struct {
	Parent *Environment

	object *values.Object
	decls  map[string]*binding
}

type binding struct {
	value     values.Value
	mutable   bool
	deletable bool
}

func NewDeclarativeEnvironment(parent *Environment) *Environment {
	return &Environment{Parent: parent, decls: make(map[string]*binding)}
}

func NewObjectEnvironment(obj *values.Object, parent *Environment) *Environment {
	return &Environment{Parent: parent, object: obj}
}

// Declare implements DECLVAR: binds name in e's own record, optionally
// mutable (var/function declarations are mutable but undeletable; catch
// bindings are mutable and deletable only inside their catch block's own
// environment).
func (e *Environment) Declare(name string, mutable, deletable bool, initial values.Value) {
	if e.object != nil {
		e.object.DefineDataProperty(name, initial, mutable, true, deletable)
		return
	}
	e.decls[name] = &binding{value: initial, mutable: mutable, deletable: deletable}
}

func (e *Environment) hasOwnBinding(c values.Caller, name string) bool {
	if e.object != nil {
		return e.object.HasOwnProperty(name)
	}
	_, ok := e.decls[name]
	return ok
}

// GetVar implements GETVAR: walks env's parent chain to the first record
// binding name, and returns a ReferenceError if none does.
func GetVar(c values.Caller, env *Environment, name string) (values.Value, error) {
	for e := env; e != nil; e = e.Parent {
		if e.object != nil {
			if v, ok, err := e.object.GetOwn(c, name); ok {
				return v, err
			} else if err != nil {
				return nil, err
			}
			continue
		}
		if b, ok := e.decls[name]; ok {
			return b.value, nil
		}
	}
	return nil, values.NewError(values.ReferenceError, "%s is not defined", name)
}

// PutVar implements PUTVAR: assigns the first binding of name found
// walking env's parent chain; if none exists, a non-strict
// assignment creates an implicit global binding (ES5.1 §10.2.1.1.4) while
// a strict assignment raises ReferenceError.
func PutVar(c values.Caller, env *Environment, name string, v values.Value, strict bool) error {
	for e := env; e != nil; e = e.Parent {
		if e.object != nil {
			if e.object.HasOwnProperty(name) {
				_, err := e.object.Put(c, name, v, strict)
				return err
			}
			continue
		}
		if b, ok := e.decls[name]; ok {
			if !b.mutable {
				if strict {
					return values.NewError(values.TypeError, "assignment to constant variable %s", name)
				}
				return nil
			}
			b.value = v
			return nil
		}
	}
	if strict {
		return values.NewError(values.ReferenceError, "%s is not defined", name)
	}
	outermost(env).Declare(name, true, true, v)
	return nil
}

// DeclVar installs a var/function-declaration binding in env's own record
// (DECLVAR), overwriting any existing value only when
// funcDecl is true (function declarations always (re)bind; plain var
// declarations leave an existing binding's current value alone).
func DeclVar(env *Environment, name string, v values.Value, funcDecl bool) {
	if env.hasOwnBinding(nil, name) && !funcDecl {
		return
	}
	env.Declare(name, true, false, v)
}

// DelVar implements DELVAR: deletes name from the first record in which it
// is found, returning whether it was (or could be) deleted.
func DelVar(env *Environment, name string) (bool, error) {
	for e := env; e != nil; e = e.Parent {
		if e.object != nil {
			if e.object.HasOwnProperty(name) {
				return e.object.Delete(name, false)
			}
			continue
		}
		if b, ok := e.decls[name]; ok {
			if !b.deletable {
				return false, nil
			}
			delete(e.decls, name)
			return true, nil
		}
	}
	return true, nil
}

func outermost(env *Environment) *Environment {
	e := env
	for e.Parent != nil {
		e = e.Parent
	}
	return e
}
