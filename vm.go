// vm.go
//
// The virtual machine core: status machine, instruction dispatch, binary
// operators, module loading, and the exit path. A VM is single-threaded and
// cooperative; the main loop is the only mutator of the heap, the globals
// map, and the module registry. Multiple VMs in one process are independent.
package m2v

import (
	"fmt"
	"io"
)

// Version of the m2v engine.
const Version = "0.3.0"

// Status is the VM lifecycle state.
type Status int

const (
	StatusUninit Status = iota
	StatusInitialized
	StatusRunning
	StatusGC
	StatusExited
	StatusPanic
)

var statusNames = [...]string{"Uninit", "Initialized", "Running", "GC", "Exited", "Panic"}

func (s Status) String() string {
	if int(s) >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "Invalid"
}

// ModuleLoader resolves a module name for LOAD_MODULE. A name the loader
// cannot resolve is a module error (VM panic).
type ModuleLoader func(name string) (*ExecutionModule, error)

// gcInstructionInterval is the GC cadence of the main loop.
const gcInstructionInterval = 10_000_000

// vmError is the typed panic used for all bytecode-level failures (type,
// name, arity, module errors). It unwinds to ExecuteModule, which converts
// it into the Panic status. Panics are not catchable from bytecode.
type vmError struct {
	msg string
}

func (e *vmError) Error() string { return e.msg }

// VM is one virtual machine instance. All state is confined to the
// instance; no package-level mutability.
type VM struct {
	nextFreeID ObjectID
	status     Status
	generation uint64
	steps      uint64

	heap    map[ObjectID]*Object
	globals map[string]*Object
	modules map[string]*Object // TModule objects by module name
	frames  []*CallStack

	nullVal  *Object
	trueVal  *Object
	falseVal *Object

	exitStatus int64
	diagnostic string
	inHost     int

	// Loader is the optional host hook consulted by LOAD_MODULE.
	Loader ModuleLoader

	// Trace, when non-nil, receives one-line GC and panic diagnostics.
	Trace io.Writer
}

// New produces a fresh VM in the Initialized state with pre-allocated
// Null, True and False singletons.
func New() *VM {
	vm := &VM{
		nextFreeID: 1,
		heap:       make(map[ObjectID]*Object),
		globals:    make(map[string]*Object),
		modules:    make(map[string]*Object),
	}
	// The singletons live outside the sweepable heap.
	vm.nullVal = &Object{id: vm.takeID(), typ: TNull}
	vm.trueVal = &Object{id: vm.takeID(), typ: TBoolean, Data: true}
	vm.falseVal = &Object{id: vm.takeID(), typ: TBoolean, Data: false}
	vm.status = StatusInitialized
	return vm
}

func (vm *VM) takeID() ObjectID {
	id := vm.nextFreeID
	vm.nextFreeID++
	return id
}

// Null returns the VM's Null singleton.
func (vm *VM) Null() *Object { return vm.nullVal }

// True returns the VM's True singleton.
func (vm *VM) True() *Object { return vm.trueVal }

// False returns the VM's False singleton.
func (vm *VM) False() *Object { return vm.falseVal }

// BoolObject maps a Go bool onto the corresponding singleton.
func (vm *VM) BoolObject(b bool) *Object {
	if b {
		return vm.trueVal
	}
	return vm.falseVal
}

// Status reports the lifecycle state.
func (vm *VM) Status() Status { return vm.status }

// ExitStatus is the integer value of the last returned value, or 0.
func (vm *VM) ExitStatus() int64 { return vm.exitStatus }

// Diagnostic carries the panic message after a Panic transition.
func (vm *VM) Diagnostic() string { return vm.diagnostic }

// Generation is the current GC generation.
func (vm *VM) Generation() uint64 { return vm.generation }

// HeapSize is the number of sweepable heap objects.
func (vm *VM) HeapSize() int { return len(vm.heap) }

// ---- object constructors ---------------------------------------------------

func (vm *VM) register(o *Object) *Object {
	vm.heap[o.id] = o
	return o
}

// NewInteger allocates an Integer object.
func (vm *VM) NewInteger(v int64) *Object {
	return vm.register(&Object{id: vm.takeID(), typ: TInteger, Data: v})
}

// NewFloat allocates a Float object.
func (vm *VM) NewFloat(v float64) *Object {
	return vm.register(&Object{id: vm.takeID(), typ: TFloat, Data: v})
}

// NewString allocates a String object.
func (vm *VM) NewString(v string) *Object {
	return vm.register(&Object{id: vm.takeID(), typ: TString, Data: v})
}

// NewArray allocates an empty Array object.
func (vm *VM) NewArray() *Object {
	return vm.register(&Object{id: vm.takeID(), typ: TArray, Data: []*Object{}})
}

// NewArrayWith allocates an Array object holding elems.
func (vm *VM) NewArrayWith(elems []*Object) *Object {
	return vm.register(&Object{id: vm.takeID(), typ: TArray, Data: elems})
}

// NewMap allocates an empty Map object.
func (vm *VM) NewMap() *Object {
	return vm.register(&Object{id: vm.takeID(), typ: TMap, Data: map[string]*Object{}})
}

func (vm *VM) newFunction(f *Function) *Object {
	return vm.register(&Object{id: vm.takeID(), typ: TFunction, Data: f})
}

func (vm *VM) newModule(m *Module) *Object {
	return vm.register(&Object{id: vm.takeID(), typ: TModule, Data: m})
}

// ---- host surface ----------------------------------------------------------

// RegisterHost binds a host function into the VM globals under name.
func (vm *VM) RegisterHost(name string, fn HostFunc) {
	vm.globals[name] = vm.newFunction(&Function{Name: name, Host: fn})
}

// Global looks up a VM-wide variable.
func (vm *VM) Global(name string) (*Object, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

// SetGlobal binds a VM-wide variable.
func (vm *VM) SetGlobal(name string, v *Object) {
	vm.globals[name] = v
}

// ModuleObject returns the loaded TModule object for name.
func (vm *VM) ModuleObject(name string) (*Object, bool) {
	m, ok := vm.modules[name]
	return m, ok
}

// ---- panics ----------------------------------------------------------------

func (vm *VM) panicf(format string, args ...any) {
	panic(&vmError{msg: fmt.Sprintf(format, args...)})
}

func (vm *VM) tracef(format string, args ...any) {
	if vm.Trace != nil {
		fmt.Fprintf(vm.Trace, format+"\n", args...)
	}
}

// ---- module loading --------------------------------------------------------

// LoadModule installs m as a VM module object. For a given module name at
// most one Module value exists in the VM at any moment; reloading a name
// returns the existing object and no initializer. Otherwise a user function
// object with an empty captured list is created per function-table entry,
// the module variable map is seeded with those functions under their table
// names, and the initializer function (if the module declares one) is
// returned alongside the module.
func (vm *VM) LoadModule(m *ExecutionModule) (module *Object, initFn *Object) {
	if existing, ok := vm.modules[m.Name]; ok {
		return existing, nil
	}
	mod := &Module{Exec: m, Vars: make(map[string]*Object, len(m.Functions))}
	modObj := vm.newModule(mod)
	for i := range m.Functions {
		spec := &m.Functions[i]
		fnObj := vm.newFunction(&Function{
			Name:     spec.Name,
			Module:   modObj,
			Begin:    spec.Begin,
			Length:   spec.Length,
			Variadic: spec.Variadic,
		})
		mod.Funcs = append(mod.Funcs, fnObj)
		mod.Vars[spec.Name] = fnObj
	}
	vm.modules[m.Name] = modObj
	if m.Initializer >= 0 {
		if m.Initializer >= len(mod.Funcs) {
			vm.panicf("module %q: initializer index %d out of range", m.Name, m.Initializer)
		}
		initFn = mod.Funcs[m.Initializer]
	}
	return modObj, initFn
}

// ExecuteModule loads m, runs its initializer, then runs the entry function
// (when entryName is non-empty) with no arguments, blocking until exit or
// panic. It returns the exit status: the integer value of the last returned
// value when it is an Integer, else 0. Exit-status policy (such as treating
// non-zero as fatal) belongs to the host.
func (vm *VM) ExecuteModule(m *ExecutionModule, entryName string) (status int64, err error) {
	if vm.status != StatusInitialized && vm.status != StatusExited {
		return 0, fmt.Errorf("m2v: cannot execute in state %s", vm.status)
	}
	defer func() {
		if r := recover(); r != nil {
			ve, ok := r.(*vmError)
			if !ok {
				panic(r) // internal assertion, not a VM panic
			}
			vm.status = StatusPanic
			vm.diagnostic = ve.msg
			vm.tracef("vm panic: %s", ve.msg)
			status, err = 0, fmt.Errorf("m2v: %s", ve.msg)
		}
	}()

	modObj, initFn := vm.LoadModule(m)
	if initFn != nil {
		vm.pushFrame(initFn, nil)
		vm.status = StatusRunning
		vm.mainLoop()
	}
	if entryName != "" {
		entry, ok := modObj.Mod().Vars[entryName]
		if !ok || !entry.Is(TFunction) {
			vm.panicf("module %q has no function %q", m.Name, entryName)
		}
		vm.pushFrame(entry, nil)
		vm.status = StatusRunning
		vm.mainLoop()
	}
	vm.status = StatusExited
	return vm.exitStatus, nil
}

func (vm *VM) pushFrame(fnObj *Object, args []*Object) {
	f := fnObj.Fn()
	bottom := make([]*Object, 0, len(f.Captured)+len(args))
	bottom = append(bottom, f.Captured...)
	bottom = append(bottom, args...)
	vm.frames = append(vm.frames, newCallStack(fnObj, bottom))
}

func (vm *VM) activeFrame() *CallStack {
	if len(vm.frames) == 0 {
		panic("m2v: no active call stack")
	}
	return vm.frames[len(vm.frames)-1]
}

func (vm *VM) activeModule() *Module {
	return vm.activeFrame().fn.Fn().Module.Mod()
}

// ---- main loop -------------------------------------------------------------

// mainLoop fetches and executes one instruction per iteration. The
// instruction pointer of the executing frame advances after every
// instruction regardless of control flow; a frame pushed by CALL has not
// yet started its own instruction at that moment. Every
// gcInstructionInterval steps the loop pauses the mutator and collects.
// GC never runs inside a nested host call: hosts execute to completion
// within their instruction.
func (vm *VM) mainLoop() {
	for vm.status == StatusRunning {
		frame := vm.activeFrame()
		instruction := frame.fetch()
		vm.executeInstruction(instruction)
		if !frame.done {
			frame.moveNext()
		}
		vm.steps++
		if vm.steps%gcInstructionInterval == 0 && vm.status == StatusRunning {
			vm.status = StatusGC
			vm.CollectGarbage()
			vm.status = StatusRunning
		}
	}
}

func (vm *VM) executeInstruction(instruction Instruction) {
	cs := vm.activeFrame()
	switch instruction.Op {
	case OpNop, OpBeginFunction, OpEndFunction:

	case OpPopN:
		cs.PopN(int(instruction.A))

	case OpAdd, OpSub, OpMul, OpDiv, OpMod,
		OpEqual, OpInequal, OpGreater, OpLess, OpGreaterEq, OpLessEq,
		OpLogicalAnd, OpLogicalOr:
		op1 := cs.Get(int(instruction.A))
		op2 := cs.Get(int(instruction.B))
		cs.Push(vm.executeBinaryOperator(instruction.Op, op1, op2))

	case OpCall:
		vm.callFunction(cs, cs.Get(int(instruction.A)), int(instruction.B))

	case OpCallModuleFunc:
		mod := vm.activeModule()
		k := int(instruction.A)
		if k < 0 || k >= len(mod.Funcs) {
			vm.panicf("module function index %d out of range", k)
		}
		// Equivalent to pushing the k-th module function below the
		// arguments, then CALL on its index.
		fnObj := mod.Funcs[k]
		args := cs.TakeTop(int(instruction.B))
		cs.Push(fnObj)
		vm.invokeUserFunction(fnObj, args)

	case OpDup:
		cs.Dup(int(instruction.A))

	case OpRet:
		vm.returnFromFrame(cs, cs.Get(int(instruction.A)))

	case OpRetNull:
		vm.returnFromFrame(cs, vm.nullVal)

	case OpPushStr:
		cs.Push(vm.NewString(vm.stringLiteral(int(instruction.A))))

	case OpPushInt:
		cs.Push(vm.NewInteger(vm.integerLiteral(int(instruction.A))))

	case OpPushFlt:
		cs.Push(vm.NewFloat(vm.floatLiteral(int(instruction.A))))

	case OpPushNull:
		cs.Push(vm.nullVal)

	case OpPushTrue:
		cs.Push(vm.trueVal)

	case OpPushFalse:
		cs.Push(vm.falseVal)

	case OpPushArray:
		cs.Push(vm.NewArray())

	case OpPushObject:
		cs.Push(vm.NewMap())

	case OpCreateClosure:
		n := int(instruction.A)
		values := cs.TakeTop(n + 1)
		base := values[0]
		if !base.Is(TFunction) || base.Fn().Host != nil {
			vm.panicf("closure base is not a user function")
		}
		bf := base.Fn()
		captured := make([]*Object, n)
		copy(captured, values[1:])
		cs.Push(vm.newFunction(&Function{
			Name:     bf.Name,
			Module:   bf.Module,
			Begin:    bf.Begin,
			Length:   bf.Length,
			Variadic: bf.Variadic,
			Captured: captured,
		}))

	case OpGlobalGetVar:
		name := vm.variableName(cs, int(instruction.A))
		v, ok := vm.globals[name]
		if !ok {
			vm.panicf("unbound global variable %q", name)
		}
		cs.Push(v)

	case OpGlobalSetVar:
		name := vm.variableName(cs, int(instruction.A))
		vm.globals[name] = cs.Get(int(instruction.B))

	case OpModuleGetVar:
		name := vm.variableName(cs, int(instruction.A))
		v, ok := vm.activeModule().Vars[name]
		if !ok {
			vm.panicf("unbound module variable %q", name)
		}
		cs.Push(v)

	case OpModuleSetVar:
		name := vm.variableName(cs, int(instruction.A))
		vm.activeModule().Vars[name] = cs.Get(int(instruction.B))

	case OpLoadModule:
		nameObj := cs.Get(int(instruction.A))
		if !nameObj.Is(TString) {
			vm.panicf("module name is not a string, got %s", nameObj.Type())
		}
		vm.loadModuleInstruction(cs, nameObj.Str())

	case OpJmpTrue, OpJmpFalse:
		isTrue := vm.asBool(cs.Get(int(instruction.A)))
		if isTrue == (instruction.Op == OpJmpTrue) {
			cs.jmp(int(instruction.B))
		}

	default:
		panic(fmt.Sprintf("m2v: unknown opcode %d", instruction.Op))
	}
}

// loadModuleInstruction keeps both paths at a three-value stack effect: an
// already loaded name pushes the Module plus two Null markers; a fresh load
// pushes the Module, one Null marker, and then runs the initializer in a
// nested frame whose return value becomes the third slot.
func (vm *VM) loadModuleInstruction(cs *CallStack, name string) {
	if existing, ok := vm.modules[name]; ok {
		cs.Push(existing)
		cs.Push(vm.nullVal)
		cs.Push(vm.nullVal)
		return
	}
	if vm.Loader == nil {
		vm.panicf("module %q not found: no module loader installed", name)
	}
	exec, err := vm.Loader(name)
	if err != nil {
		vm.panicf("module %q not found: %v", name, err)
	}
	modObj, initFn := vm.LoadModule(exec)
	cs.Push(modObj)
	cs.Push(vm.nullVal)
	if initFn == nil {
		cs.Push(vm.nullVal)
		return
	}
	vm.pushFrame(initFn, nil)
}

func (vm *VM) returnFromFrame(cs *CallStack, value *Object) {
	cs.done = true
	vm.frames = vm.frames[:len(vm.frames)-1]
	if len(vm.frames) == 0 {
		if value.Is(TInteger) {
			vm.exitStatus = value.Int()
		} else {
			vm.exitStatus = 0
		}
		vm.status = StatusExited
		return
	}
	vm.activeFrame().Push(value)
}

// callFunction invokes fnObj with the top nargs values of cs as arguments.
// Host functions run synchronously against the caller's stack. For user
// functions the arguments are moved off the caller's stack into the new
// frame's bottom region; a variadic callee receives them wrapped in a fresh
// Array as a single-element args list.
func (vm *VM) callFunction(cs *CallStack, fnObj *Object, nargs int) {
	if !fnObj.Is(TFunction) {
		vm.panicf("callee is not a function, got %s", fnObj.Type())
	}
	f := fnObj.Fn()
	if f.Host != nil {
		vm.inHost++
		_, err := f.Host(vm, cs)
		vm.inHost--
		if err != nil {
			vm.panicf("host function %s: %v", f.Name, err)
		}
		return
	}
	vm.invokeUserFunction(fnObj, cs.TakeTop(nargs))
}

// invokeUserFunction pushes a frame for fnObj. A variadic callee receives
// the arguments wrapped in a fresh Array as a single-element args list.
func (vm *VM) invokeUserFunction(fnObj *Object, args []*Object) {
	f := fnObj.Fn()
	if f.Host != nil {
		vm.panicf("module function %s is a host function", f.Name)
	}
	if f.Variadic {
		args = []*Object{vm.NewArrayWith(args)}
	}
	bottom := make([]*Object, 0, len(f.Captured)+len(args))
	bottom = append(bottom, f.Captured...)
	bottom = append(bottom, args...)
	vm.frames = append(vm.frames, newCallStack(fnObj, bottom))
}

// ---- literal pools ---------------------------------------------------------

func (vm *VM) stringLiteral(idx int) string {
	pool := vm.activeModule().Exec.Strings
	if idx < 0 || idx >= len(pool) {
		panic(fmt.Sprintf("m2v: string literal index %d out of range", idx))
	}
	return pool[idx]
}

func (vm *VM) integerLiteral(idx int) int64 {
	pool := vm.activeModule().Exec.Integers
	if idx < 0 || idx >= len(pool) {
		panic(fmt.Sprintf("m2v: integer literal index %d out of range", idx))
	}
	return pool[idx]
}

func (vm *VM) floatLiteral(idx int) float64 {
	pool := vm.activeModule().Exec.Floats
	if idx < 0 || idx >= len(pool) {
		panic(fmt.Sprintf("m2v: float literal index %d out of range", idx))
	}
	return pool[idx]
}

func (vm *VM) variableName(cs *CallStack, idx int) string {
	nameObj := cs.Get(idx)
	if !nameObj.Is(TString) {
		vm.panicf("variable name is not a string, got %s", nameObj.Type())
	}
	return nameObj.Str()
}

// ---- coercions and operators -----------------------------------------------

// asBool is false for Null, Integer 0, Float 0 and the False singleton;
// true for everything else, including empty strings and containers.
func (vm *VM) asBool(obj *Object) bool {
	switch obj.typ {
	case TNull:
		return false
	case TInteger:
		return obj.Int() != 0
	case TFloat:
		return obj.Float() != 0
	case TBoolean:
		return obj.Bool()
	}
	return true
}

func (o *Object) isNumeric() bool { return o.typ == TInteger || o.typ == TFloat }

func (o *Object) asFloat() float64 {
	if o.typ == TInteger {
		return float64(o.Int())
	}
	return o.Float()
}

func intArith(op Opcode, a, b int64) int64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	case OpMod:
		return a % b
	}
	panic("m2v: not an arithmetic opcode")
}

func floatArith(op Opcode, a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	}
	panic("m2v: not an arithmetic opcode")
}

func compareResult(op Opcode, c int) bool {
	switch op {
	case OpGreater:
		return c > 0
	case OpGreaterEq:
		return c >= 0
	case OpLess:
		return c < 0
	case OpLessEq:
		return c <= 0
	}
	panic("m2v: not a comparison opcode")
}

func (vm *VM) executeBinaryOperator(op Opcode, op1, op2 *Object) *Object {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		if !op1.isNumeric() || !op2.isNumeric() {
			vm.panicf("%s on non-numeric operands (%s, %s)", op, op1.Type(), op2.Type())
		}
		if op == OpMod && (op1.typ == TFloat || op2.typ == TFloat) {
			vm.panicf("MOD on float operand")
		}
		if op1.typ == TInteger && op2.typ == TInteger {
			if (op == OpDiv || op == OpMod) && op2.Int() == 0 {
				vm.panicf("integer division by zero")
			}
			return vm.NewInteger(intArith(op, op1.Int(), op2.Int()))
		}
		return vm.NewFloat(floatArith(op, op1.asFloat(), op2.asFloat()))

	case OpLogicalAnd:
		return vm.BoolObject(vm.asBool(op1) && vm.asBool(op2))

	case OpLogicalOr:
		return vm.BoolObject(vm.asBool(op1) || vm.asBool(op2))

	case OpEqual:
		return vm.BoolObject(vm.objectsEqual(op1, op2))

	case OpInequal:
		return vm.BoolObject(!vm.objectsEqual(op1, op2))

	case OpGreater, OpGreaterEq, OpLess, OpLessEq:
		if !op1.isNumeric() || !op2.isNumeric() {
			vm.panicf("%s on non-numeric operands (%s, %s)", op, op1.Type(), op2.Type())
		}
		var c int
		if op1.typ == TInteger && op2.typ == TInteger {
			a, b := op1.Int(), op2.Int()
			switch {
			case a < b:
				c = -1
			case a > b:
				c = 1
			}
		} else {
			a, b := op1.asFloat(), op2.asFloat()
			switch {
			case a < b:
				c = -1
			case a > b:
				c = 1
			}
		}
		return vm.BoolObject(compareResult(op, c))
	}
	panic(fmt.Sprintf("m2v: %s is not a binary operator", op))
}

// objectsEqual implements EQUAL: different variants compare unequal; numeric
// variants compare by value within the same variant; strings compare by
// bytes; booleans by singleton identity; everything else by object identity.
func (vm *VM) objectsEqual(op1, op2 *Object) bool {
	if op1.typ != op2.typ {
		return false
	}
	switch op1.typ {
	case TInteger:
		return op1.Int() == op2.Int()
	case TFloat:
		return op1.Float() == op2.Float()
	case TString:
		return op1.id == op2.id || op1.Str() == op2.Str()
	case TBoolean:
		return op1.id == op2.id
	default:
		return op1.id == op2.id
	}
}
