// object.go
//
// Heap object model. Every VM value is a heap object with a stable identity
// and a GC generation stamp. The variant set is closed; operator dispatch in
// vm.go switches on the tag explicitly.
package m2v

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ObjectID is unique across the lifetime of a VM and monotonically
// increasing.
type ObjectID uint64

// ObjectType tags the active variant of an Object.
type ObjectType int

const (
	TInteger ObjectType = iota + 1
	TBoolean
	TFloat
	TString
	TArray
	TMap
	TNull
	TFunction
	TModule
)

var objectTypeNames = map[ObjectType]string{
	TInteger:  "Integer",
	TBoolean:  "Boolean",
	TFloat:    "Float",
	TString:   "String",
	TArray:    "Array",
	TMap:      "Map",
	TNull:     "Null",
	TFunction: "Function",
	TModule:   "Module",
}

func (t ObjectType) String() string {
	if s, ok := objectTypeNames[t]; ok {
		return s
	}
	return "Invalid"
}

// HostFunc is a callable hook into the host runtime. By convention the
// function reads its arguments off the top of the caller's stack and leaves
// its single return value there. The int result is the number of values
// left for the caller (1 in the common case).
type HostFunc func(vm *VM, cs *CallStack) (int, error)

// Function is the payload of a TFunction object: either a user function
// with a code range inside its owning module, or a host function.
type Function struct {
	Name     string
	Module   *Object // owning TModule object; nil for host functions
	Begin    int     // base offset into the module's instruction stream
	Length   int     // instruction count
	Variadic bool
	Captured []*Object // populated at closure creation, immutable after
	Host     HostFunc  // non-nil for host functions
}

// Module is the payload of a TModule object.
type Module struct {
	Exec  *ExecutionModule
	Vars  map[string]*Object // module-local variables
	Funcs []*Object          // TFunction objects, one per function-table entry
}

// Object is a VM heap value. The payload lives in Data:
//
//	TInteger  int64
//	TBoolean  bool
//	TFloat    float64
//	TString   string
//	TArray    []*Object
//	TMap      map[string]*Object
//	TNull     nil
//	TFunction *Function
//	TModule   *Module
type Object struct {
	id   ObjectID
	typ  ObjectType
	gen  uint64
	Data any
}

func (o *Object) ID() ObjectID          { return o.id }
func (o *Object) Type() ObjectType      { return o.typ }
func (o *Object) Generation() uint64    { return o.gen }
func (o *Object) Is(t ObjectType) bool  { return o.typ == t }
func (o *Object) Int() int64            { return o.Data.(int64) }
func (o *Object) Float() float64        { return o.Data.(float64) }
func (o *Object) Bool() bool            { return o.Data.(bool) }
func (o *Object) Str() string           { return o.Data.(string) }
func (o *Object) Elems() []*Object      { return o.Data.([]*Object) }
func (o *Object) Fields() map[string]*Object {
	return o.Data.(map[string]*Object)
}
func (o *Object) Fn() *Function  { return o.Data.(*Function) }
func (o *Object) Mod() *Module   { return o.Data.(*Module) }

// markGeneration stamps o and, for compound variants, its children.
// Equal-generation children are skipped, which both terminates recursion on
// cycles and makes marking idempotent within a cycle.
func (o *Object) markGeneration(gen uint64) {
	if o.gen == gen {
		return
	}
	o.gen = gen
	switch o.typ {
	case TArray:
		for _, e := range o.Elems() {
			e.markGeneration(gen)
		}
	case TMap:
		for _, v := range o.Fields() {
			v.markGeneration(gen)
		}
	case TFunction:
		f := o.Fn()
		for _, c := range f.Captured {
			c.markGeneration(gen)
		}
		if f.Module != nil {
			f.Module.markGeneration(gen)
		}
	case TModule:
		m := o.Mod()
		for _, v := range m.Vars {
			v.markGeneration(gen)
		}
		for _, f := range m.Funcs {
			f.markGeneration(gen)
		}
	}
}

// String renders a value for the REPL and diagnostics.
func (o *Object) String() string {
	switch o.typ {
	case TNull:
		return "null"
	case TBoolean:
		if o.Bool() {
			return "true"
		}
		return "false"
	case TInteger:
		return strconv.FormatInt(o.Int(), 10)
	case TFloat:
		return strconv.FormatFloat(o.Float(), 'g', -1, 64)
	case TString:
		return strconv.Quote(o.Str())
	case TArray:
		var b strings.Builder
		b.WriteByte('[')
		for i, e := range o.Elems() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.String())
		}
		b.WriteByte(']')
		return b.String()
	case TMap:
		fields := o.Fields()
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", k, fields[k].String())
		}
		b.WriteByte('}')
		return b.String()
	case TFunction:
		f := o.Fn()
		if f.Host != nil {
			return fmt.Sprintf("<host %s>", f.Name)
		}
		return fmt.Sprintf("<fn %s>", f.Name)
	case TModule:
		return fmt.Sprintf("<module %s>", o.Mod().Exec.Name)
	}
	return "<invalid>"
}
