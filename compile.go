// compile.go
//
// Lowering from the s-expression form tree to an ExecutionModule.
//
// The emitter keeps a static model of the frame: every expression leaves its
// result on top of the value stack and returns the result's slot index.
// Intermediate values (variable-name strings, callee residues, argument
// copies) stay on the stack below the result; statement sequences reclaim
// them with POPN when no binding was introduced. Because the language has no
// loop form, per-frame stack growth is bounded by the program text.
package m2v

import (
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"
)

// CompileError is a lowering failure with a 1-based source position.
type CompileError struct {
	Pos lexer.Position
	Msg string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

const initializerName = "__init__"

var binaryOps = map[string]Opcode{
	"+":  OpAdd,
	"-":  OpSub,
	"*":  OpMul,
	"/":  OpDiv,
	"%":  OpMod,
	"==": OpEqual,
	"!=": OpInequal,
	">":  OpGreater,
	"<":  OpLess,
	">=": OpGreaterEq,
	"<=": OpLessEq,
	"&&": OpLogicalAnd,
	"||": OpLogicalOr,
}

// Lexed but without a bytecode form.
var lexOnlyOps = map[string]bool{
	"<<": true, ">>": true, "^": true, "|": true, "~": true, "&": true,
}

var specialForms = map[string]bool{
	"let": true, "def": true, "fn": true, "if": true, "do": true,
	"global": true, "global!": true, "import": true,
	"true": true, "false": true, "null": true,
}

// CompileSource parses src and lowers it to an ExecutionModule named
// moduleName. Top-level forms become the module initializer; defs become
// function-table entries.
func CompileSource(moduleName, src string) (mod *ExecutionModule, err error) {
	file, perr := parseSource(moduleName, src)
	if perr != nil {
		return nil, perr
	}
	defer func() {
		if r := recover(); r != nil {
			ce, ok := r.(*CompileError)
			if !ok {
				panic(r)
			}
			mod, err = nil, ce
		}
	}()
	c := &compiler{
		mod:        NewExecutionModule(moduleName),
		strIdx:     map[string]int{},
		intIdx:     map[int64]int{},
		fltIdx:     map[float64]int{},
		defs:       map[string]int{},
		moduleVars: map[string]bool{},
		bodies:     map[int][]Instruction{},
	}
	c.compileModule(file.Forms)
	return c.mod, nil
}

type compiler struct {
	mod         *ExecutionModule
	strIdx      map[string]int
	intIdx      map[int64]int
	fltIdx      map[float64]int
	defs        map[string]int  // top-level def name -> function table index
	moduleVars  map[string]bool // top-level let names
	bodies      map[int][]Instruction
	lambdaCount int
}

func fail(pos lexer.Position, format string, args ...any) {
	panic(&CompileError{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (c *compiler) compileModule(forms []*form) {
	// Signatures first so bodies can reference each other and module vars.
	var initForms []*form
	type pendingDef struct {
		idx  int
		f    *form
	}
	var defs []pendingDef
	for _, f := range forms {
		if name, ok := defHead(f); ok {
			if _, dup := c.defs[name]; dup {
				fail(f.Pos, "duplicate definition of %q", name)
			}
			_, variadic := defParams(f)
			idx := c.addFunction(name, variadic)
			c.defs[name] = idx
			defs = append(defs, pendingDef{idx: idx, f: f})
			continue
		}
		if name, ok := letHead(f); ok {
			c.moduleVars[name] = true
		}
		initForms = append(initForms, f)
	}

	for _, d := range defs {
		params, _ := defParams(d.f)
		fc := &funcCompiler{
			c:      c,
			locals: map[string]int{},
			params: params,
		}
		c.bodies[d.idx] = fc.finishBody(d.f.List.Items[3:])
	}

	initIdx := c.addFunction(initializerName, false)
	fc := &funcCompiler{
		c:      c,
		isInit: true,
		locals: map[string]int{},
		params: map[string]int{},
	}
	c.bodies[initIdx] = fc.finishBody(initForms)
	c.mod.Initializer = initIdx

	// Layout: concatenate bodies in table order.
	for i := range c.mod.Functions {
		body := c.bodies[i]
		c.mod.Functions[i].Begin = len(c.mod.Code)
		c.mod.Functions[i].Length = len(body)
		c.mod.Code = append(c.mod.Code, body...)
	}
}

func defHead(f *form) (string, bool) {
	if f.List == nil || len(f.List.Items) == 0 {
		return "", false
	}
	head := f.List.Items[0]
	if head.Sym == nil || *head.Sym != "def" {
		return "", false
	}
	if len(f.List.Items) < 3 {
		fail(f.Pos, "def needs a name, a parameter list and a body")
	}
	name := f.List.Items[1]
	if name.Sym == nil {
		fail(name.Pos, "def name must be an identifier")
	}
	return *name.Sym, true
}

func letHead(f *form) (string, bool) {
	if f.List == nil || len(f.List.Items) != 3 {
		return "", false
	}
	head := f.List.Items[0]
	if head.Sym == nil || *head.Sym != "let" {
		return "", false
	}
	name := f.List.Items[1]
	if name.Sym == nil {
		fail(name.Pos, "let name must be an identifier")
	}
	return *name.Sym, true
}

// defParams parses a def's parameter list into name -> argument position.
// A sole `...rest` parameter marks the function variadic; the wrapped
// argument array arrives as the single argument.
func defParams(f *form) (map[string]int, bool) {
	return parseParams(f.List.Items[2])
}

func parseParams(f *form) (map[string]int, bool) {
	if f.List == nil {
		fail(f.Pos, "parameter list must be parenthesised")
	}
	params := map[string]int{}
	variadic := false
	for i, p := range f.List.Items {
		switch {
		case p.Rest != nil:
			if len(f.List.Items) != 1 {
				fail(p.Pos, "a variadic parameter must be the only parameter")
			}
			params[*p.Rest] = 0
			variadic = true
		case p.Sym != nil:
			params[*p.Sym] = i
		default:
			fail(p.Pos, "parameter must be an identifier")
		}
	}
	return params, variadic
}

// ---- literal interning -----------------------------------------------------

func (c *compiler) internString(s string) int {
	if idx, ok := c.strIdx[s]; ok {
		return idx
	}
	idx := len(c.mod.Strings)
	c.mod.Strings = append(c.mod.Strings, s)
	c.strIdx[s] = idx
	return idx
}

func (c *compiler) internInt(v int64) int {
	if idx, ok := c.intIdx[v]; ok {
		return idx
	}
	idx := len(c.mod.Integers)
	c.mod.Integers = append(c.mod.Integers, v)
	c.intIdx[v] = idx
	return idx
}

func (c *compiler) internFloat(v float64) int {
	if idx, ok := c.fltIdx[v]; ok {
		return idx
	}
	idx := len(c.mod.Floats)
	c.mod.Floats = append(c.mod.Floats, v)
	c.fltIdx[v] = idx
	return idx
}

func (c *compiler) addFunction(name string, variadic bool) int {
	idx := len(c.mod.Functions)
	c.mod.Functions = append(c.mod.Functions, FunctionSpec{Name: name, Variadic: variadic})
	return idx
}

// ---- per-function emitter --------------------------------------------------

type funcCompiler struct {
	c         *compiler
	parent    *funcCompiler
	isInit    bool
	code      []Instruction
	depth     int
	locals    map[string]int // let-bound name -> value stack slot
	params    map[string]int // param name -> argument position
	capNames  []string
	capMap    map[string]int // captured name -> bottom position
}

func (fc *funcCompiler) emit(op Opcode, a, b int) int {
	if a < -32768 || a > 32767 || b < -32768 || b > 32767 {
		panic(&CompileError{Msg: fmt.Sprintf("operand out of 16-bit range for %s", op)})
	}
	fc.code = append(fc.code, ins(op, int16(a), int16(b)))
	return len(fc.code) - 1
}

// lookupFrame resolves name within this frame: a local's stack slot, or a
// negative bottom index for captured variables and arguments.
func (fc *funcCompiler) lookupFrame(name string) (int, bool) {
	if idx, ok := fc.locals[name]; ok {
		return idx, true
	}
	if pos, ok := fc.capMap[name]; ok {
		return -(pos + 1), true
	}
	if p, ok := fc.params[name]; ok {
		return -(len(fc.capNames) + p + 1), true
	}
	return 0, false
}

func (fc *funcCompiler) finishBody(forms []*form) []Instruction {
	fc.emit(OpBeginFunction, 0, 0)
	r := fc.compileBody(forms)
	if r < 0 {
		fc.emit(OpRetNull, 0, 0)
	} else {
		fc.emit(OpRet, r, 0)
	}
	fc.emit(OpEndFunction, 0, 0)
	return fc.code
}

// compileBody compiles a statement sequence and returns the slot of the last
// statement's value, or -1 for an empty body. Non-final statements that bind
// nothing have their stack cost reclaimed with POPN.
func (fc *funcCompiler) compileBody(forms []*form) int {
	result := -1
	for i, f := range forms {
		mark := fc.depth
		localsBefore := len(fc.locals)
		varsBefore := len(fc.c.moduleVars)
		result = fc.compileExpr(f)
		last := i == len(forms)-1
		bound := len(fc.locals) != localsBefore || len(fc.c.moduleVars) != varsBefore
		if !last && !bound && fc.depth > mark {
			fc.emit(OpPopN, fc.depth-mark, 0)
			fc.depth = mark
			result = -1
		}
	}
	return result
}

// pushString pushes a string literal and returns its slot.
func (fc *funcCompiler) pushString(s string) int {
	fc.emit(OpPushStr, fc.c.internString(s), 0)
	fc.depth++
	return fc.depth - 1
}

// compileExpr lowers one expression. The result is on top of the stack; the
// returned value is its slot index.
func (fc *funcCompiler) compileExpr(f *form) int {
	switch {
	case f.Int != nil:
		v, err := parseIntegerLiteral(*f.Int)
		if err != nil {
			fail(f.Pos, "%v", err)
		}
		fc.emit(OpPushInt, fc.c.internInt(v), 0)
		fc.depth++
		return fc.depth - 1

	case f.Float != nil:
		fc.emit(OpPushFlt, fc.c.internFloat(*f.Float), 0)
		fc.depth++
		return fc.depth - 1

	case f.Str != nil:
		return fc.pushString(*f.Str)

	case f.Rest != nil:
		fail(f.Pos, "unexpected ... outside a parameter list")

	case f.Sym != nil:
		return fc.compileSym(f)

	case f.List != nil:
		return fc.compileList(f)
	}
	fail(f.Pos, "empty form")
	return -1
}

func (fc *funcCompiler) compileSym(f *form) int {
	name := *f.Sym
	switch name {
	case "true":
		fc.emit(OpPushTrue, 0, 0)
		fc.depth++
		return fc.depth - 1
	case "false":
		fc.emit(OpPushFalse, 0, 0)
		fc.depth++
		return fc.depth - 1
	case "null":
		fc.emit(OpPushNull, 0, 0)
		fc.depth++
		return fc.depth - 1
	}
	if idx, ok := fc.lookupFrame(name); ok {
		fc.emit(OpDup, idx, 0)
		fc.depth++
		return fc.depth - 1
	}
	if _, ok := fc.c.defs[name]; ok {
		return fc.emitVarGet(OpModuleGetVar, name)
	}
	if fc.c.moduleVars[name] {
		return fc.emitVarGet(OpModuleGetVar, name)
	}
	return fc.emitVarGet(OpGlobalGetVar, name)
}

func (fc *funcCompiler) emitVarGet(op Opcode, name string) int {
	s := fc.pushString(name)
	fc.emit(op, s, 0)
	fc.depth++
	return fc.depth - 1
}

func (fc *funcCompiler) compileList(f *form) int {
	items := f.List.Items
	if len(items) == 0 {
		fail(f.Pos, "empty call form")
	}
	head := items[0]
	if head.Sym != nil {
		name := *head.Sym
		if lexOnlyOps[name] {
			fail(head.Pos, "operator %q has no bytecode form", name)
		}
		if op, ok := binaryOps[name]; ok {
			if len(items) != 3 {
				fail(f.Pos, "%s expects exactly two operands", name)
			}
			a := fc.compileExpr(items[1])
			b := fc.compileExpr(items[2])
			fc.emit(op, a, b)
			fc.depth++
			return fc.depth - 1
		}
		switch name {
		case "let":
			return fc.compileLet(f)
		case "def":
			fail(f.Pos, "def is only allowed at module top level")
		case "fn":
			return fc.compileLambda(f)
		case "if":
			return fc.compileIf(f)
		case "do":
			if len(items) == 1 {
				fail(f.Pos, "empty do form")
			}
			r := fc.compileBody(items[1:])
			if r < 0 {
				fc.emit(OpPushNull, 0, 0)
				fc.depth++
				r = fc.depth - 1
			}
			return r
		case "global":
			if len(items) != 2 || items[1].Sym == nil {
				fail(f.Pos, "global expects an identifier")
			}
			return fc.emitVarGet(OpGlobalGetVar, *items[1].Sym)
		case "global!":
			if len(items) != 3 || items[1].Sym == nil {
				fail(f.Pos, "global! expects an identifier and a value")
			}
			s := fc.pushString(*items[1].Sym)
			r := fc.compileExpr(items[2])
			fc.emit(OpGlobalSetVar, s, r)
			return r
		case "import":
			if len(items) != 2 || items[1].Str == nil {
				fail(f.Pos, "import expects a module name string")
			}
			s := fc.pushString(*items[1].Str)
			fc.emit(OpLoadModule, s, 0)
			fc.depth += 3 // module and two markers
			fc.emit(OpDup, s+1, 0)
			fc.depth++
			return fc.depth - 1
		}
		// Direct call of a known module function, unless shadowed.
		if k, ok := fc.c.defs[name]; ok {
			if _, shadowed := fc.lookupFrame(name); !shadowed {
				n := len(items) - 1
				argIdx := make([]int, 0, n)
				for _, arg := range items[1:] {
					argIdx = append(argIdx, fc.compileExpr(arg))
				}
				for _, idx := range argIdx {
					fc.emit(OpDup, idx, 0)
					fc.depth++
				}
				fc.emit(OpCallModuleFunc, k, n)
				fc.depth += 2 - n // args consumed; residue + result pushed
				return fc.depth - 1
			}
		}
	}

	// General call: evaluate callee, arguments, then copy the arguments to
	// the top so CALL sees them contiguously.
	callee := fc.compileExpr(head)
	n := len(items) - 1
	argIdx := make([]int, 0, n)
	for _, arg := range items[1:] {
		argIdx = append(argIdx, fc.compileExpr(arg))
	}
	for _, idx := range argIdx {
		fc.emit(OpDup, idx, 0)
		fc.depth++
	}
	fc.emit(OpCall, callee, n)
	fc.depth += 1 - n
	return fc.depth - 1
}

func (fc *funcCompiler) compileLet(f *form) int {
	items := f.List.Items
	if len(items) != 3 || items[1].Sym == nil {
		fail(f.Pos, "let expects an identifier and a value")
	}
	name := *items[1].Sym
	if fc.isInit {
		s := fc.pushString(name)
		r := fc.compileExpr(items[2])
		fc.emit(OpModuleSetVar, s, r)
		fc.c.moduleVars[name] = true
		return r
	}
	r := fc.compileExpr(items[2])
	fc.locals[name] = r
	return r
}

func (fc *funcCompiler) compileIf(f *form) int {
	items := f.List.Items
	if len(items) != 3 && len(items) != 4 {
		fail(f.Pos, "if expects a condition, a then-form and an optional else-form")
	}
	ci := fc.compileExpr(items[1])
	fc.emit(OpPushTrue, 0, 0) // marker for the unconditional jump
	ti := fc.depth
	fc.depth++
	armDepth := fc.depth

	thenSeg, rT, dT := fc.compileDetached(items[2], armDepth)
	var elseSeg []Instruction
	var rE, dE int
	if len(items) == 4 {
		elseSeg, rE, dE = fc.compileDetached(items[3], armDepth)
	} else {
		elseSeg, rE, dE = []Instruction{ins(OpPushNull, 0, 0)}, armDepth, armDepth + 1
	}
	maxDepth := dT
	if dE > maxDepth {
		maxDepth = dE
	}

	jfPos := fc.emit(OpJmpFalse, ci, 0)
	fc.code = append(fc.code, thenSeg...)
	for d := dT; d < maxDepth; d++ {
		fc.emit(OpPushNull, 0, 0)
	}
	fc.emit(OpDup, rT, 0)
	jtPos := fc.emit(OpJmpTrue, ti, 0)
	elseStart := len(fc.code)
	fc.code = append(fc.code, elseSeg...)
	for d := dE; d < maxDepth; d++ {
		fc.emit(OpPushNull, 0, 0)
	}
	fc.emit(OpDup, rE, 0)
	end := len(fc.code)

	fc.patchOffset(jfPos, elseStart-jfPos-1)
	fc.patchOffset(jtPos, end-jtPos-1)
	fc.depth = maxDepth + 1
	return fc.depth - 1
}

func (fc *funcCompiler) patchOffset(pos, offset int) {
	if offset < -32768 || offset > 32767 {
		panic(&CompileError{Msg: "jump offset out of 16-bit range"})
	}
	fc.code[pos].B = int16(offset)
}

// compileDetached compiles one expression into a detached segment starting
// at the given stack depth. Locals bound inside the segment stay scoped to
// it.
func (fc *funcCompiler) compileDetached(f *form, startDepth int) (seg []Instruction, result, depth int) {
	savedCode, savedDepth := fc.code, fc.depth
	savedLocals := make(map[string]int, len(fc.locals))
	for k, v := range fc.locals {
		savedLocals[k] = v
	}
	fc.code, fc.depth = nil, startDepth
	result = fc.compileExpr(f)
	seg, depth = fc.code, fc.depth
	fc.code, fc.depth, fc.locals = savedCode, savedDepth, savedLocals
	return seg, result, depth
}

func (fc *funcCompiler) compileLambda(f *form) int {
	items := f.List.Items
	if len(items) < 3 {
		fail(f.Pos, "fn expects a parameter list and a body")
	}
	params, variadic := parseParams(items[1])

	// Capture analysis: free variables of the body that this frame (or its
	// chain, transitively captured) can provide.
	bound := map[string]bool{}
	for p := range params {
		bound[p] = true
	}
	var free []string
	freeVars(items[2:], bound, map[string]bool{}, &free)
	var capNames []string
	for _, name := range free {
		if _, ok := fc.lookupFrame(name); ok {
			capNames = append(capNames, name)
		}
	}

	name := fmt.Sprintf("lambda$%d", fc.c.lambdaCount)
	fc.c.lambdaCount++
	idx := fc.c.addFunction(name, variadic)

	capMap := map[string]int{}
	for i, n := range capNames {
		capMap[n] = i
	}
	child := &funcCompiler{
		c:        fc.c,
		parent:   fc,
		locals:   map[string]int{},
		params:   params,
		capNames: capNames,
		capMap:   capMap,
	}
	fc.c.bodies[idx] = child.finishBody(items[2:])

	// Creation site: base function, then the captured values, then the
	// closure instruction consuming both.
	fc.emitVarGet(OpModuleGetVar, name)
	for _, n := range capNames {
		src, _ := fc.lookupFrame(n)
		fc.emit(OpDup, src, 0)
		fc.depth++
	}
	fc.emit(OpCreateClosure, len(capNames), 0)
	fc.depth -= len(capNames) // base and captures consumed, closure pushed
	return fc.depth - 1
}

// freeVars appends, in first-occurrence order, every identifier referenced
// by forms that is not locally bound. let bindings thread through the
// sequence; fn parameters bind only inside their body.
func freeVars(forms []*form, bound map[string]bool, seen map[string]bool, out *[]string) {
	for _, f := range forms {
		freeVarsForm(f, bound, seen, out)
	}
}

func freeVarsForm(f *form, bound map[string]bool, seen map[string]bool, out *[]string) {
	switch {
	case f.Sym != nil:
		name := *f.Sym
		if specialForms[name] || binaryOps[name] != 0 || lexOnlyOps[name] {
			return
		}
		if !bound[name] && !seen[name] {
			seen[name] = true
			*out = append(*out, name)
		}
	case f.List != nil:
		items := f.List.Items
		if len(items) == 0 {
			return
		}
		head := items[0]
		if head.Sym != nil {
			switch *head.Sym {
			case "let":
				if len(items) == 3 && items[1].Sym != nil {
					freeVarsForm(items[2], bound, seen, out)
					bound[*items[1].Sym] = true
					return
				}
			case "fn":
				if len(items) >= 3 {
					inner := map[string]bool{}
					for k := range bound {
						inner[k] = true
					}
					if items[1].List != nil {
						for _, p := range items[1].List.Items {
							if p.Sym != nil {
								inner[*p.Sym] = true
							}
							if p.Rest != nil {
								inner[*p.Rest] = true
							}
						}
					}
					freeVars(items[2:], inner, seen, out)
					return
				}
			case "global", "import":
				return
			case "global!":
				if len(items) == 3 {
					freeVarsForm(items[2], bound, seen, out)
					return
				}
			}
		}
		for _, item := range items {
			freeVarsForm(item, bound, seen, out)
		}
	}
}
