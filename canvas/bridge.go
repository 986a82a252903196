// bridge.go
//
// Host-function bridge: exposes the viewport to scripts. Every drawing call
// runs inside its own commit so script mutations share the interactive
// undo/redo history.
package canvas

import (
	"fmt"

	m2v "github.com/m2v/m2v"
	"github.com/m2v/m2v/h2g"
)

func popInt(cs *m2v.CallStack, what string) (int64, error) {
	v := cs.Pop()
	if !v.Is(m2v.TInteger) {
		return 0, fmt.Errorf("%s must be an integer, got %s", what, v.Type())
	}
	return v.Int(), nil
}

func popCoord(cs *m2v.CallStack, what string) (h2g.Scalar, error) {
	v, err := popInt(cs, what)
	if err != nil {
		return 0, err
	}
	return h2g.Scalar(v), nil
}

// Bind registers the canvas host functions into vm against vp.
func Bind(vm *m2v.VM, vp *Viewport) {
	vm.RegisterHost("canvas_layer", func(vm *m2v.VM, cs *m2v.CallStack) (int, error) {
		name := cs.Pop()
		if !name.Is(m2v.TString) {
			return 0, fmt.Errorf("layer name must be a string, got %s", name.Type())
		}
		if id, ok := vp.FindLayer(name.Str()); ok {
			cs.Push(vm.NewInteger(int64(id)))
			return 1, nil
		}
		cs.Push(vm.NewInteger(int64(vp.CreateLayer(name.Str()))))
		return 1, nil
	})

	addShape := func(vm *m2v.VM, cs *m2v.CallStack, layer int64, shape h2g.Shape) {
		commit := vp.BeginTransaction()
		cmd := NewAddObject(vp, LayerID(layer), shape)
		commit.Push(cmd)
		vp.Submit(commit)
		cs.Push(vm.NewInteger(int64(cmd.(*addObjectCommand).ObjectID())))
	}

	vm.RegisterHost("canvas_segment", func(vm *m2v.VM, cs *m2v.CallStack) (int, error) {
		y2, err := popCoord(cs, "y2")
		if err != nil {
			return 0, err
		}
		x2, err := popCoord(cs, "x2")
		if err != nil {
			return 0, err
		}
		y1, err := popCoord(cs, "y1")
		if err != nil {
			return 0, err
		}
		x1, err := popCoord(cs, "x1")
		if err != nil {
			return 0, err
		}
		layer, err := popInt(cs, "layer")
		if err != nil {
			return 0, err
		}
		addShape(vm, cs, layer, h2g.SegmentShape(h2g.Segment{A: h2g.Pt(x1, y1), B: h2g.Pt(x2, y2)}))
		return 1, nil
	})

	vm.RegisterHost("canvas_circle", func(vm *m2v.VM, cs *m2v.CallStack) (int, error) {
		r, err := popCoord(cs, "radius")
		if err != nil {
			return 0, err
		}
		cy, err := popCoord(cs, "cy")
		if err != nil {
			return 0, err
		}
		cx, err := popCoord(cs, "cx")
		if err != nil {
			return 0, err
		}
		layer, err := popInt(cs, "layer")
		if err != nil {
			return 0, err
		}
		addShape(vm, cs, layer, h2g.CircleShape(h2g.Circle{Center: h2g.Pt(cx, cy), Radius: r}))
		return 1, nil
	})

	vm.RegisterHost("canvas_polygon", func(vm *m2v.VM, cs *m2v.CallStack) (int, error) {
		coords := cs.Pop()
		if !coords.Is(m2v.TArray) {
			return 0, fmt.Errorf("polygon coordinates must be an array, got %s", coords.Type())
		}
		layer, err := popInt(cs, "layer")
		if err != nil {
			return 0, err
		}
		elems := coords.Elems()
		if len(elems) < 6 || len(elems)%2 != 0 {
			return 0, fmt.Errorf("polygon needs an even number of at least 6 coordinates, got %d", len(elems))
		}
		pts := make([]h2g.Point, 0, len(elems)/2)
		for i := 0; i < len(elems); i += 2 {
			if !elems[i].Is(m2v.TInteger) || !elems[i+1].Is(m2v.TInteger) {
				return 0, fmt.Errorf("polygon coordinates must be integers")
			}
			pts = append(pts, h2g.Pt(h2g.Scalar(elems[i].Int()), h2g.Scalar(elems[i+1].Int())))
		}
		addShape(vm, cs, layer, h2g.PolygonShape(h2g.Polygon{Points: pts}))
		return 1, nil
	})

	vm.RegisterHost("canvas_select", func(vm *m2v.VM, cs *m2v.CallStack) (int, error) {
		y2, err := popCoord(cs, "y2")
		if err != nil {
			return 0, err
		}
		x2, err := popCoord(cs, "x2")
		if err != nil {
			return 0, err
		}
		y1, err := popCoord(cs, "y1")
		if err != nil {
			return 0, err
		}
		x1, err := popCoord(cs, "x1")
		if err != nil {
			return 0, err
		}
		vp.OnSelect(h2g.Pt(x1, y1), h2g.Pt(x2, y2))
		cs.Push(vm.NewInteger(int64(len(vp.Selected()))))
		return 1, nil
	})

	vm.RegisterHost("canvas_delete", func(vm *m2v.VM, cs *m2v.CallStack) (int, error) {
		cs.Push(vm.NewInteger(int64(vp.OnDelete())))
		return 1, nil
	})

	vm.RegisterHost("canvas_distance", func(vm *m2v.VM, cs *m2v.CallStack) (int, error) {
		id2, err := popInt(cs, "object id")
		if err != nil {
			return 0, err
		}
		id1, err := popInt(cs, "object id")
		if err != nil {
			return 0, err
		}
		o1, ok := vp.Object(GObjectID(id1))
		if !ok {
			return 0, fmt.Errorf("no object %d", id1)
		}
		o2, ok := vp.Object(GObjectID(id2))
		if !ok {
			return 0, fmt.Errorf("no object %d", id2)
		}
		cs.Push(vm.NewFloat(h2g.Distance(o1.Shape, o2.Shape).D))
		return 1, nil
	})

	vm.RegisterHost("canvas_undo", func(vm *m2v.VM, cs *m2v.CallStack) (int, error) {
		cs.Push(vm.BoolObject(vp.Undo()))
		return 1, nil
	})

	vm.RegisterHost("canvas_redo", func(vm *m2v.VM, cs *m2v.CallStack) (int, error) {
		cs.Push(vm.BoolObject(vp.Redo()))
		return 1, nil
	})
}
