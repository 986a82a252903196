// callstack.go
package m2v

import "fmt"

// CallStack is one activation of a function. The bottom region holds the
// function's captured variables followed by its arguments and is addressed
// by strictly negative indices (-k is the k-th bottom slot); nonnegative
// indices address the value stack. Frames carry no link field: ordering is
// owned by the VM's frame list.
type CallStack struct {
	fn     *Object // TFunction
	ip     int     // instruction pointer, relative to the function's base
	stack  []*Object
	bottom []*Object // captured ++ args
	done   bool      // set when the frame has returned
}

func newCallStack(fn *Object, bottom []*Object) *CallStack {
	return &CallStack{fn: fn, bottom: bottom}
}

// Fn returns the executing function object.
func (cs *CallStack) Fn() *Object { return cs.fn }

// Depth returns the value-stack length.
func (cs *CallStack) Depth() int { return len(cs.stack) }

// Get resolves a signed frame index.
func (cs *CallStack) Get(index int) *Object {
	if index >= 0 {
		if index >= len(cs.stack) {
			panic(fmt.Sprintf("m2v: stack index %d out of range (depth %d)", index, len(cs.stack)))
		}
		return cs.stack[index]
	}
	n := -index - 1
	if n >= len(cs.bottom) {
		panic(fmt.Sprintf("m2v: bottom index %d out of range (%d slots)", index, len(cs.bottom)))
	}
	return cs.bottom[n]
}

// Push appends a value to the value stack.
func (cs *CallStack) Push(obj *Object) {
	cs.stack = append(cs.stack, obj)
}

// Pop removes and returns the top value.
func (cs *CallStack) Pop() *Object {
	if len(cs.stack) == 0 {
		panic("m2v: pop from empty stack")
	}
	top := cs.stack[len(cs.stack)-1]
	cs.stack[len(cs.stack)-1] = nil
	cs.stack = cs.stack[:len(cs.stack)-1]
	return top
}

// PopN drops the top n values.
func (cs *CallStack) PopN(n int) {
	if n < 0 || n > len(cs.stack) {
		panic(fmt.Sprintf("m2v: popn %d with depth %d", n, len(cs.stack)))
	}
	for i := len(cs.stack) - n; i < len(cs.stack); i++ {
		cs.stack[i] = nil
	}
	cs.stack = cs.stack[:len(cs.stack)-n]
}

// Dup pushes a copy of the value at index.
func (cs *CallStack) Dup(index int) {
	cs.Push(cs.Get(index))
}

// Top returns the top value without popping it.
func (cs *CallStack) Top() *Object {
	if len(cs.stack) == 0 {
		panic("m2v: top of empty stack")
	}
	return cs.stack[len(cs.stack)-1]
}

// TakeTop removes the top n values and returns them in push order.
func (cs *CallStack) TakeTop(n int) []*Object {
	if n < 0 || n > len(cs.stack) {
		panic(fmt.Sprintf("m2v: take %d with depth %d", n, len(cs.stack)))
	}
	out := make([]*Object, n)
	copy(out, cs.stack[len(cs.stack)-n:])
	cs.PopN(n)
	return out
}

func (cs *CallStack) fetch() Instruction {
	fn := cs.fn.Fn()
	if cs.ip < 0 || cs.ip >= fn.Length {
		panic(fmt.Sprintf("m2v: instruction pointer %d out of range in %s", cs.ip, fn.Name))
	}
	return fn.Module.Mod().Exec.Code[fn.Begin+cs.ip]
}

func (cs *CallStack) moveNext() {
	cs.ip++
}

// jmp moves the instruction pointer by a signed offset. The subsequent
// moveNext contributes one more step, so the landing site must stay inside
// [-1, length).
func (cs *CallStack) jmp(offset int) {
	next := cs.ip + offset
	if next < -1 || next >= cs.fn.Fn().Length {
		panic(fmt.Sprintf("m2v: jump to %d out of range in %s", next, cs.fn.Fn().Name))
	}
	cs.ip = next
}

func (cs *CallStack) markObjects(gen uint64) {
	for _, v := range cs.stack {
		v.markGeneration(gen)
	}
	for _, v := range cs.bottom {
		v.markGeneration(gen)
	}
	cs.fn.markGeneration(gen)
}
