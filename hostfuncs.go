// hostfuncs.go
//
// Standard host functions. Each reads its arguments off the top of the
// caller's stack and leaves its single return value there.
package m2v

import (
	"fmt"
	"io"
)

// RegisterStdlib binds the standard host functions into vm's globals.
// Printed output goes to out.
func RegisterStdlib(vm *VM, out io.Writer) {
	vm.RegisterHost("print", func(vm *VM, cs *CallStack) (int, error) {
		v := cs.Pop()
		if v.Is(TString) {
			fmt.Fprintln(out, v.Str())
		} else {
			fmt.Fprintln(out, v.String())
		}
		cs.Push(vm.Null())
		return 1, nil
	})

	vm.RegisterHost("nth", func(vm *VM, cs *CallStack) (int, error) {
		idx := cs.Pop()
		arr := cs.Pop()
		if !arr.Is(TArray) {
			return 0, fmt.Errorf("nth expects an array, got %s", arr.Type())
		}
		if !idx.Is(TInteger) {
			return 0, fmt.Errorf("nth expects an integer index, got %s", idx.Type())
		}
		elems := arr.Elems()
		i := idx.Int()
		if i < 0 || i >= int64(len(elems)) {
			return 0, fmt.Errorf("nth index %d out of range (%d elements)", i, len(elems))
		}
		cs.Push(elems[i])
		return 1, nil
	})

	vm.RegisterHost("len", func(vm *VM, cs *CallStack) (int, error) {
		v := cs.Pop()
		switch v.Type() {
		case TArray:
			cs.Push(vm.NewInteger(int64(len(v.Elems()))))
		case TMap:
			cs.Push(vm.NewInteger(int64(len(v.Fields()))))
		case TString:
			cs.Push(vm.NewInteger(int64(len(v.Str()))))
		default:
			return 0, fmt.Errorf("len expects array, map or string, got %s", v.Type())
		}
		return 1, nil
	})

	vm.RegisterHost("push", func(vm *VM, cs *CallStack) (int, error) {
		val := cs.Pop()
		arr := cs.Pop()
		if !arr.Is(TArray) {
			return 0, fmt.Errorf("push expects an array, got %s", arr.Type())
		}
		arr.Data = append(arr.Elems(), val)
		cs.Push(arr)
		return 1, nil
	})

	vm.RegisterHost("put", func(vm *VM, cs *CallStack) (int, error) {
		val := cs.Pop()
		key := cs.Pop()
		obj := cs.Pop()
		if !obj.Is(TMap) {
			return 0, fmt.Errorf("put expects a map, got %s", obj.Type())
		}
		if !key.Is(TString) {
			return 0, fmt.Errorf("put expects a string key, got %s", key.Type())
		}
		obj.Fields()[key.Str()] = val
		cs.Push(obj)
		return 1, nil
	})

	vm.RegisterHost("get", func(vm *VM, cs *CallStack) (int, error) {
		key := cs.Pop()
		obj := cs.Pop()
		if !obj.Is(TMap) {
			return 0, fmt.Errorf("get expects a map, got %s", obj.Type())
		}
		if !key.Is(TString) {
			return 0, fmt.Errorf("get expects a string key, got %s", key.Type())
		}
		if v, ok := obj.Fields()[key.Str()]; ok {
			cs.Push(v)
		} else {
			cs.Push(vm.Null())
		}
		return 1, nil
	})

	vm.RegisterHost("str", func(vm *VM, cs *CallStack) (int, error) {
		v := cs.Pop()
		if v.Is(TString) {
			cs.Push(v)
		} else {
			cs.Push(vm.NewString(v.String()))
		}
		return 1, nil
	})
}
