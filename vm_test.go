package m2v

import (
	"errors"
	"strings"
	"testing"
)

// --- helpers ---------------------------------------------------------------

func runModule(t *testing.T, m *ExecutionModule) (*VM, int64) {
	t.Helper()
	vm := New()
	status, err := vm.ExecuteModule(m, "")
	if err != nil {
		t.Fatalf("ExecuteModule(%s): %v", m.Name, err)
	}
	return vm, status
}

func wantExit(t *testing.T, m *ExecutionModule, exit int64) *VM {
	t.Helper()
	vm, status := runModule(t, m)
	if status != exit {
		t.Fatalf("module %s: want exit %d, got %d", m.Name, exit, status)
	}
	if vm.Status() != StatusExited {
		t.Fatalf("module %s: want status Exited, got %s", m.Name, vm.Status())
	}
	return vm
}

func wantPanic(t *testing.T, m *ExecutionModule, substr string) *VM {
	t.Helper()
	vm := New()
	_, err := vm.ExecuteModule(m, "")
	if err == nil {
		t.Fatalf("module %s: want panic containing %q, got clean exit", m.Name, substr)
	}
	if vm.Status() != StatusPanic {
		t.Fatalf("module %s: want status Panic, got %s", m.Name, vm.Status())
	}
	if !strings.Contains(vm.Diagnostic(), substr) {
		t.Fatalf("module %s: want diagnostic containing %q, got %q", m.Name, substr, vm.Diagnostic())
	}
	return vm
}

// initOnly builds a module whose only function is the initializer.
func initOnly(name string, code []Instruction) *ExecutionModule {
	m := NewExecutionModule(name)
	m.Functions = []FunctionSpec{{Name: initializerName, Begin: 0, Length: len(code)}}
	m.Initializer = 0
	m.Code = code
	return m
}

// --- end-to-end scenarios --------------------------------------------------

func TestIdentity42(t *testing.T) {
	m := initOnly("s1", []Instruction{
		ins(OpPushInt, 0, 0),
		ins(OpRet, 0, 0),
	})
	m.Integers = []int64{42}
	wantExit(t, m, 42)
}

func TestAddition(t *testing.T) {
	m := initOnly("s2", []Instruction{
		ins(OpPushInt, 0, 0),
		ins(OpPushInt, 1, 0),
		ins(OpAdd, 0, 1),
		ins(OpRet, 2, 0),
	})
	m.Integers = []int64{2, 3}
	wantExit(t, m, 5)
}

func TestConditionalJump(t *testing.T) {
	m := initOnly("s3", []Instruction{
		ins(OpPushFalse, 0, 0),
		ins(OpJmpFalse, 0, 2),
		ins(OpPushInt, 0, 0),
		ins(OpRet, 1, 0),
		ins(OpPushInt, 1, 0),
		ins(OpRet, 1, 0),
	})
	m.Integers = []int64{7, 9}
	wantExit(t, m, 9)
}

func TestJmpTrueTaken(t *testing.T) {
	m := initOnly("jtrue", []Instruction{
		ins(OpPushTrue, 0, 0),
		ins(OpJmpTrue, 0, 2),
		ins(OpPushInt, 0, 0),
		ins(OpRet, 1, 0),
		ins(OpPushInt, 1, 0),
		ins(OpRet, 1, 0),
	})
	m.Integers = []int64{7, 9}
	wantExit(t, m, 9)
}

func TestBackwardJumpLoop(t *testing.T) {
	// A counting loop through a module variable: POPN resets the frame
	// depth every iteration so the slot indices stay stable, and the
	// backward jump rides a truthy string slot.
	m := initOnly("backjmp", []Instruction{
		ins(OpPushStr, 0, 0),       // 0: s0 = "i"
		ins(OpPushInt, 0, 0),       // 1: s1 = 0
		ins(OpModuleSetVar, 0, 1),  // 2: i = 0
		ins(OpPopN, 1, 0),          // 3: keep only s0
		ins(OpModuleGetVar, 0, 0),  // 4: s1 = i        <- loop head
		ins(OpPushInt, 1, 0),       // 5: s2 = 1
		ins(OpAdd, 1, 2),           // 6: s3 = i + 1
		ins(OpModuleSetVar, 0, 3),  // 7: i = i + 1
		ins(OpPushInt, 2, 0),       // 8: s4 = 3
		ins(OpLess, 3, 4),          // 9: s5 = i+1 < 3
		ins(OpJmpFalse, 5, 2),      // 10: done -> 13
		ins(OpPopN, 5, 0),          // 11: back to s0 only
		ins(OpJmpTrue, 0, -9),      // 12: s0 truthy -> loop head
		ins(OpModuleGetVar, 0, 0),  // 13: s6 = i
		ins(OpRet, 6, 0),           // 14
	})
	m.Strings = []string{"i"}
	m.Integers = []int64{0, 1, 3}
	wantExit(t, m, 3)
}

// --- addressing ------------------------------------------------------------

func TestBottomRegionAddressing(t *testing.T) {
	// f(a, b) returns b via the bottom region; args occupy -1, -2 in order.
	m := NewExecutionModule("bottom")
	m.Integers = []int64{8, 9}
	m.Strings = []string{"f"}
	m.Functions = []FunctionSpec{
		{Name: "f", Begin: 0, Length: 2},
		{Name: initializerName, Begin: 2, Length: 7},
	}
	m.Initializer = 1
	m.Code = []Instruction{
		// f:
		ins(OpBeginFunction, 0, 0),
		ins(OpRet, -2, 0),
		// init:
		ins(OpPushStr, 0, 0),      // s0 = "f"
		ins(OpModuleGetVar, 0, 0), // s1 = f
		ins(OpPushInt, 0, 0),      // s2 = 8
		ins(OpPushInt, 1, 0),      // s3 = 9
		ins(OpCall, 1, 2),         // args popped, result at s2
		ins(OpRet, 2, 0),
		ins(OpEndFunction, 0, 0),
	}
	// Exit 9 proves both that CALL consumed exactly the two arguments (the
	// result landed at slot 2) and that -2 addressed the second argument.
	wantExit(t, m, 9)
}

func TestVariadicWrapsArguments(t *testing.T) {
	// S4 at the bytecode level: variadic f receives its three arguments
	// wrapped into one Array in a single bottom slot; a host extracts the
	// first element.
	m := NewExecutionModule("variadic")
	m.Integers = []int64{8, 9, 10}
	m.Strings = []string{"first"}
	m.Functions = []FunctionSpec{
		{Name: "f", Begin: 0, Length: 1, Variadic: true},
		{Name: initializerName, Begin: 1, Length: 8},
	}
	m.Initializer = 1
	m.Code = []Instruction{
		// f: returns the wrapped argument array
		ins(OpRet, -1, 0),
		// init:
		ins(OpPushStr, 0, 0),         // s0 "first"
		ins(OpGlobalGetVar, 0, 0),    // s1 host
		ins(OpPushInt, 0, 0),         // s2 8
		ins(OpPushInt, 1, 0),         // s3 9
		ins(OpPushInt, 2, 0),         // s4 10
		ins(OpCallModuleFunc, 0, 3),  // args popped; residue s2, array s3
		ins(OpCall, 1, 1),            // host pops the array, pushes s3
		ins(OpRet, 3, 0),
	}
	vm := New()
	vm.RegisterHost("first", func(vm *VM, cs *CallStack) (int, error) {
		arr := cs.Pop()
		if !arr.Is(TArray) {
			t.Fatalf("variadic callee did not receive an array, got %s", arr.Type())
		}
		if len(arr.Elems()) != 3 {
			t.Fatalf("wrapped array: want 3 elements, got %d", len(arr.Elems()))
		}
		cs.Push(arr.Elems()[0])
		return 1, nil
	})
	status, err := vm.ExecuteModule(m, "")
	if err != nil {
		t.Fatalf("ExecuteModule: %v", err)
	}
	if status != 8 {
		t.Fatalf("want exit 8, got %d", status)
	}
}

// --- operators and coercions -----------------------------------------------

func TestBinaryOperatorTable(t *testing.T) {
	cases := []struct {
		name string
		op   Opcode
		ints []int64
		exit int64
	}{
		{"sub", OpSub, []int64{10, 3}, 7},
		{"mul", OpMul, []int64{6, 7}, 42},
		{"div", OpDiv, []int64{45, 6}, 7},
		{"mod", OpMod, []int64{45, 6}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := initOnly("op_"+tc.name, []Instruction{
				ins(OpPushInt, 0, 0),
				ins(OpPushInt, 1, 0),
				ins(tc.op, 0, 1),
				ins(OpRet, 2, 0),
			})
			m.Integers = tc.ints
			wantExit(t, m, tc.exit)
		})
	}
}

func TestComparisonsPushSingletons(t *testing.T) {
	// 3 < 5, branch on the result.
	m := initOnly("cmp", []Instruction{
		ins(OpPushInt, 0, 0),
		ins(OpPushInt, 1, 0),
		ins(OpLess, 0, 1),
		ins(OpJmpTrue, 2, 2),
		ins(OpPushInt, 0, 0),
		ins(OpRet, 3, 0),
		ins(OpPushInt, 1, 0),
		ins(OpRet, 3, 0),
	})
	m.Integers = []int64{3, 5}
	wantExit(t, m, 5)
}

func TestMixedNumericArithmetic(t *testing.T) {
	// Integer + Float yields Float, so the exit status falls back to 0.
	m := initOnly("mixed", []Instruction{
		ins(OpPushInt, 0, 0),
		ins(OpPushFlt, 0, 0),
		ins(OpAdd, 0, 1),
		ins(OpRet, 2, 0),
	})
	m.Integers = []int64{2}
	m.Floats = []float64{0.5}
	wantExit(t, m, 0)
}

func TestEqualDistinguishesVariants(t *testing.T) {
	// Integer 1 and Float 1.0 are different variants: unequal.
	m := initOnly("eqvar", []Instruction{
		ins(OpPushInt, 0, 0),
		ins(OpPushFlt, 0, 0),
		ins(OpEqual, 0, 1),
		ins(OpJmpFalse, 2, 2),
		ins(OpPushInt, 1, 0),
		ins(OpRet, 3, 0),
		ins(OpPushInt, 2, 0),
		ins(OpRet, 3, 0),
	})
	m.Integers = []int64{1, 7, 9}
	m.Floats = []float64{1.0}
	wantExit(t, m, 9)
}

func TestStringEqualityByBytes(t *testing.T) {
	m := initOnly("eqstr", []Instruction{
		ins(OpPushStr, 0, 0),
		ins(OpPushStr, 1, 0),
		ins(OpEqual, 0, 1),
		ins(OpJmpTrue, 2, 2),
		ins(OpPushInt, 0, 0),
		ins(OpRet, 3, 0),
		ins(OpPushInt, 1, 0),
		ins(OpRet, 3, 0),
	})
	m.Strings = []string{"hello", "hello"}
	m.Integers = []int64{0, 1}
	wantExit(t, m, 1)
}

func TestAsBoolCoercions(t *testing.T) {
	// Empty string coerces to true; Integer 0 and Float 0 to false.
	cases := []struct {
		name string
		push Instruction
		exit int64
	}{
		{"empty-string-true", ins(OpPushStr, 0, 0), 1},
		{"zero-int-false", ins(OpPushInt, 0, 0), 2},
		{"zero-float-false", ins(OpPushFlt, 0, 0), 2},
		{"null-false", ins(OpPushNull, 0, 0), 2},
		{"array-true", ins(OpPushArray, 0, 0), 1},
		{"map-true", ins(OpPushObject, 0, 0), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := initOnly("coerce_"+tc.name, []Instruction{
				tc.push,
				ins(OpJmpTrue, 0, 2),
				ins(OpPushInt, 2, 0), // false path -> 2
				ins(OpRet, 1, 0),
				ins(OpPushInt, 1, 0), // true path -> 1
				ins(OpRet, 1, 0),
			})
			m.Strings = []string{""}
			m.Integers = []int64{0, 1, 2}
			m.Floats = []float64{0}
			wantExit(t, m, tc.exit)
		})
	}
}

func TestLogicalOperatorsCoerce(t *testing.T) {
	// LAND of Integer 1 and empty Array is True.
	m := initOnly("land", []Instruction{
		ins(OpPushInt, 0, 0),
		ins(OpPushArray, 0, 0),
		ins(OpLogicalAnd, 0, 1),
		ins(OpJmpTrue, 2, 2),
		ins(OpPushInt, 1, 0),
		ins(OpRet, 3, 0),
		ins(OpPushInt, 0, 0),
		ins(OpRet, 3, 0),
	})
	m.Integers = []int64{1, 0}
	wantExit(t, m, 1)
}

// --- panics ----------------------------------------------------------------

func TestTypeErrorPanics(t *testing.T) {
	m := initOnly("typeerr", []Instruction{
		ins(OpPushInt, 0, 0),
		ins(OpPushStr, 0, 0),
		ins(OpAdd, 0, 1),
		ins(OpRet, 2, 0),
	})
	m.Integers = []int64{1}
	m.Strings = []string{"x"}
	wantPanic(t, m, "non-numeric")
}

func TestModOnFloatPanics(t *testing.T) {
	m := initOnly("modflt", []Instruction{
		ins(OpPushInt, 0, 0),
		ins(OpPushFlt, 0, 0),
		ins(OpMod, 0, 1),
		ins(OpRet, 2, 0),
	})
	m.Integers = []int64{5}
	m.Floats = []float64{2}
	wantPanic(t, m, "MOD")
}

func TestUnboundGlobalPanics(t *testing.T) {
	m := initOnly("unbound", []Instruction{
		ins(OpPushStr, 0, 0),
		ins(OpGlobalGetVar, 0, 0),
		ins(OpRet, 1, 0),
	})
	m.Strings = []string{"missing"}
	wantPanic(t, m, "unbound global")
}

func TestCalleeNotFunctionPanics(t *testing.T) {
	m := initOnly("badcall", []Instruction{
		ins(OpPushInt, 0, 0),
		ins(OpCall, 0, 0),
		ins(OpRetNull, 0, 0),
	})
	m.Integers = []int64{1}
	wantPanic(t, m, "not a function")
}

func TestMissingModulePanics(t *testing.T) {
	m := initOnly("noloader", []Instruction{
		ins(OpPushStr, 0, 0),
		ins(OpLoadModule, 0, 0),
		ins(OpRetNull, 0, 0),
	})
	m.Strings = []string{"nope"}
	wantPanic(t, m, "not found")
}

func TestPanickedVMRejectsExecution(t *testing.T) {
	m := initOnly("sticky", []Instruction{
		ins(OpPushStr, 0, 0),
		ins(OpGlobalGetVar, 0, 0),
		ins(OpRet, 1, 0),
	})
	m.Strings = []string{"missing"}
	vm := wantPanic(t, m, "unbound")
	if _, err := vm.ExecuteModule(m, ""); err == nil {
		t.Fatal("want error executing on a panicked VM")
	}
}

// --- globals, module vars, setvar is copying --------------------------------

func TestGlobalSetAndGet(t *testing.T) {
	m := initOnly("globals", []Instruction{
		ins(OpPushStr, 0, 0),      // s0 name
		ins(OpPushInt, 0, 0),      // s1 = 42
		ins(OpGlobalSetVar, 0, 1), // copying: no pop
		ins(OpGlobalGetVar, 0, 0), // s2 = 42
		ins(OpEqual, 1, 2),        // s3: the set did not consume s1
		ins(OpJmpTrue, 3, 2),
		ins(OpPushInt, 1, 0),
		ins(OpRet, 4, 0),
		ins(OpRet, 2, 0),
	})
	m.Strings = []string{"answer"}
	m.Integers = []int64{42, 0}
	vm := wantExit(t, m, 42)
	v, ok := vm.Global("answer")
	if !ok || !v.Is(TInteger) || v.Int() != 42 {
		t.Fatalf("global answer: want Integer 42, got %v", v)
	}
}

func TestModuleVarSetAndGet(t *testing.T) {
	m := initOnly("modvars", []Instruction{
		ins(OpPushStr, 0, 0),
		ins(OpPushInt, 0, 0),
		ins(OpModuleSetVar, 0, 1),
		ins(OpModuleGetVar, 0, 0),
		ins(OpRet, 2, 0),
	})
	m.Strings = []string{"x"}
	m.Integers = []int64{7}
	wantExit(t, m, 7)
}

func TestModuleVarsSeededWithFunctions(t *testing.T) {
	m := NewExecutionModule("seeded")
	m.Strings = []string{"g"}
	m.Integers = []int64{11}
	m.Functions = []FunctionSpec{
		{Name: "g", Begin: 0, Length: 2},
		{Name: initializerName, Begin: 2, Length: 4},
	}
	m.Initializer = 1
	m.Code = []Instruction{
		ins(OpPushInt, 0, 0),
		ins(OpRet, 0, 0),
		// init: fetch g as a value and call it
		ins(OpPushStr, 0, 0),
		ins(OpModuleGetVar, 0, 0),
		ins(OpCall, 1, 0),
		ins(OpRet, 2, 0),
	}
	wantExit(t, m, 11)
}

// --- closures ---------------------------------------------------------------

func TestCreateClosureCapturesValues(t *testing.T) {
	m := NewExecutionModule("closure")
	m.Strings = []string{"g"}
	m.Integers = []int64{42}
	m.Functions = []FunctionSpec{
		{Name: "g", Begin: 0, Length: 1},
		{Name: initializerName, Begin: 1, Length: 6},
	}
	m.Initializer = 1
	m.Code = []Instruction{
		// g: returns its first captured value
		ins(OpRet, -1, 0),
		// init:
		ins(OpPushStr, 0, 0),       // s0 "g"
		ins(OpModuleGetVar, 0, 0),  // s1 base g
		ins(OpPushInt, 0, 0),       // s2 42
		ins(OpCreateClosure, 1, 0), // consume base+capture, closure at s1
		ins(OpCall, 1, 0),          // s2 = g() = 42
		ins(OpRet, 2, 0),
	}
	wantExit(t, m, 42)
}

func TestClosureSharesCode(t *testing.T) {
	m := NewExecutionModule("closure2")
	m.Strings = []string{"g"}
	m.Integers = []int64{1, 2}
	m.Functions = []FunctionSpec{
		{Name: "g", Begin: 0, Length: 1},
		{Name: initializerName, Begin: 1, Length: 11},
	}
	m.Initializer = 1
	m.Code = []Instruction{
		ins(OpRet, -1, 0),
		// init: two closures over different values
		ins(OpPushStr, 0, 0),       // s0
		ins(OpModuleGetVar, 0, 0),  // s1 base
		ins(OpPushInt, 0, 0),       // s2 = 1
		ins(OpCreateClosure, 1, 0), // s1 -> closure1... stack: s0, c1
		ins(OpModuleGetVar, 0, 0),  // s2 base again
		ins(OpPushInt, 1, 0),       // s3 = 2
		ins(OpCreateClosure, 1, 0), // s2 -> closure2
		ins(OpCall, 1, 0),          // s3 = c1() = 1
		ins(OpCall, 2, 0),          // s4 = c2() = 2
		ins(OpAdd, 3, 4),           // s5 = 3
		ins(OpRet, 5, 0),
	}
	wantExit(t, m, 3)
}

// --- stack discipline -------------------------------------------------------

func TestPopNConservation(t *testing.T) {
	cs := &CallStack{}
	vm := New()
	for round := 0; round < 50; round++ {
		n := (round*7)%13 + 1
		before := cs.Depth()
		for i := 0; i < n; i++ {
			cs.Push(vm.NewInteger(int64(i)))
		}
		cs.PopN(n)
		if cs.Depth() != before {
			t.Fatalf("round %d: depth %d after push/pop of %d, want %d", round, cs.Depth(), n, before)
		}
	}
}

func TestPopNInstruction(t *testing.T) {
	m := initOnly("popn", []Instruction{
		ins(OpPushInt, 0, 0),
		ins(OpPushInt, 1, 0),
		ins(OpPushInt, 1, 0),
		ins(OpPopN, 2, 0),
		ins(OpRet, 0, 0),
	})
	m.Integers = []int64{42, 1}
	wantExit(t, m, 42)
}

func TestDupCopiesSlot(t *testing.T) {
	m := initOnly("dup", []Instruction{
		ins(OpPushInt, 0, 0),
		ins(OpPushInt, 1, 0),
		ins(OpDup, 0, 0),
		ins(OpRet, 2, 0),
	})
	m.Integers = []int64{42, 7}
	wantExit(t, m, 42)
}

// --- host functions ---------------------------------------------------------

func TestHostFunctionCall(t *testing.T) {
	m := initOnly("host", []Instruction{
		ins(OpPushStr, 0, 0),
		ins(OpGlobalGetVar, 0, 0), // s1 = host fn
		ins(OpPushInt, 0, 0),      // s2 = 40
		ins(OpCall, 1, 1),         // host pops arg, pushes arg+2 at s2
		ins(OpRet, 2, 0),
	})
	m.Strings = []string{"plus2"}
	m.Integers = []int64{40}
	vm := New()
	vm.RegisterHost("plus2", func(vm *VM, cs *CallStack) (int, error) {
		v := cs.Pop()
		cs.Push(vm.NewInteger(v.Int() + 2))
		return 1, nil
	})
	status, err := vm.ExecuteModule(m, "")
	if err != nil {
		t.Fatalf("ExecuteModule: %v", err)
	}
	if status != 42 {
		t.Fatalf("want exit 42, got %d", status)
	}
}

func TestHostErrorBecomesPanic(t *testing.T) {
	m := initOnly("hosterr", []Instruction{
		ins(OpPushStr, 0, 0),
		ins(OpGlobalGetVar, 0, 0),
		ins(OpCall, 1, 0),
		ins(OpRetNull, 0, 0),
	})
	m.Strings = []string{"boom"}
	vm := New()
	vm.RegisterHost("boom", func(vm *VM, cs *CallStack) (int, error) {
		return 0, errTest
	})
	_, err := vm.ExecuteModule(m, "")
	if err == nil || vm.Status() != StatusPanic {
		t.Fatalf("want host error panic, got err=%v status=%s", err, vm.Status())
	}
}

var errTest = errors.New("synthetic failure")

// --- module loading ---------------------------------------------------------

func libModule() *ExecutionModule {
	lib := NewExecutionModule("lib")
	lib.Integers = []int64{7}
	lib.Strings = []string{"seven"}
	lib.Functions = []FunctionSpec{{Name: initializerName, Begin: 0, Length: 4}}
	lib.Initializer = 0
	lib.Code = []Instruction{
		ins(OpPushStr, 0, 0),
		ins(OpPushInt, 0, 0),
		ins(OpModuleSetVar, 0, 1),
		ins(OpRet, 1, 0),
	}
	return lib
}

func TestLoadModuleRunsInitializer(t *testing.T) {
	m := initOnly("main", []Instruction{
		ins(OpPushStr, 0, 0),
		ins(OpLoadModule, 0, 0),
		// s1 module, s2 marker, s3 = lib initializer's return value
		ins(OpRet, 3, 0),
	})
	m.Strings = []string{"lib"}
	loaderCalls := 0
	vm := New()
	vm.Loader = func(name string) (*ExecutionModule, error) {
		loaderCalls++
		return libModule(), nil
	}
	status, err := vm.ExecuteModule(m, "")
	if err != nil {
		t.Fatalf("ExecuteModule: %v", err)
	}
	if status != 7 {
		t.Fatalf("want lib initializer value 7, got %d", status)
	}
	if loaderCalls != 1 {
		t.Fatalf("want 1 loader call, got %d", loaderCalls)
	}
	libObj, ok := vm.ModuleObject("lib")
	if !ok {
		t.Fatal("lib module not registered")
	}
	v, ok := libObj.Mod().Vars["seven"]
	if !ok || v.Int() != 7 {
		t.Fatalf("lib module var seven: want 7, got %v", v)
	}
}

func TestLoadModuleSingleton(t *testing.T) {
	m := initOnly("main2", []Instruction{
		ins(OpPushStr, 0, 0),
		ins(OpLoadModule, 0, 0), // s1 mod, s2 null, s3 init value
		ins(OpLoadModule, 0, 0), // s4 existing mod, s5 null, s6 null
		ins(OpEqual, 1, 4),      // s7: same module object
		ins(OpJmpTrue, 7, 2),
		ins(OpPushInt, 0, 0),
		ins(OpRet, 8, 0),
		ins(OpPushInt, 1, 0),
		ins(OpRet, 8, 0),
	})
	m.Strings = []string{"lib"}
	m.Integers = []int64{0, 1}
	loaderCalls := 0
	vm := New()
	vm.Loader = func(name string) (*ExecutionModule, error) {
		loaderCalls++
		return libModule(), nil
	}
	status, err := vm.ExecuteModule(m, "")
	if err != nil {
		t.Fatalf("ExecuteModule: %v", err)
	}
	if status != 1 {
		t.Fatal("second load did not return the existing module object")
	}
	if loaderCalls != 1 {
		t.Fatalf("want 1 loader call, got %d", loaderCalls)
	}
}

// --- entry function ---------------------------------------------------------

func TestExecuteModuleEntryName(t *testing.T) {
	m := NewExecutionModule("entry")
	m.Integers = []int64{5, 37}
	m.Functions = []FunctionSpec{
		{Name: "main", Begin: 0, Length: 2},
		{Name: initializerName, Begin: 2, Length: 1},
	}
	m.Initializer = 1
	m.Code = []Instruction{
		ins(OpPushInt, 1, 0),
		ins(OpRet, 0, 0),
		ins(OpRetNull, 0, 0),
	}
	vm := New()
	status, err := vm.ExecuteModule(m, "main")
	if err != nil {
		t.Fatalf("ExecuteModule: %v", err)
	}
	if status != 37 {
		t.Fatalf("want entry exit 37, got %d", status)
	}
}

func TestExecuteModuleMissingEntryPanics(t *testing.T) {
	m := initOnly("noentry", []Instruction{ins(OpRetNull, 0, 0)})
	vm := New()
	if _, err := vm.ExecuteModule(m, "absent"); err == nil {
		t.Fatal("want panic for missing entry function")
	}
}
