// gc.go
//
// Mark-by-generation garbage collection: stop-the-world, no incrementality.
// A cycle bumps the generation, stamps everything reachable from the roots
// (globals, module registry, and every frame's slots plus its function),
// then sweeps objects whose stamp lags. An object survives a cycle iff its
// stamp equals the cycle's target generation at sweep time.
package m2v

// CollectGarbage runs one full mark/sweep cycle.
func (vm *VM) CollectGarbage() {
	vm.generation++
	gen := vm.generation

	for _, v := range vm.globals {
		v.markGeneration(gen)
	}
	for _, m := range vm.modules {
		m.markGeneration(gen)
	}
	for _, frame := range vm.frames {
		frame.markObjects(gen)
	}

	swept := 0
	for id, obj := range vm.heap {
		if obj.gen != gen {
			delete(vm.heap, id)
			swept++
		}
	}
	vm.tracef("gc: generation %d, swept %d, live %d", gen, swept, len(vm.heap))
}
