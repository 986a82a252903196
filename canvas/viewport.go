// viewport.go
//
// Package canvas is the viewport collaborator: named layers with z-order,
// an object store of shapes, drag-box selection backed by the geometry
// kernel, and a transaction/commit layer with undo and redo. Rendering and
// the browser embedding stay outside; this is the command and selection
// model only.
package canvas

import (
	"sort"

	"github.com/m2v/m2v/h2g"
)

// LayerID identifies a canvas layer.
type LayerID uint64

// GObjectID identifies a canvas object.
type GObjectID uint64

// GObject is one drawable object: a stable identity and its shape.
type GObject struct {
	ID    GObjectID
	Shape h2g.Shape
}

// Layer is a named object container; stacking order lives in the viewport.
type Layer struct {
	ID      LayerID
	Name    string
	objects map[GObjectID]*GObject
}

func (l *Layer) add(obj *GObject)    { l.objects[obj.ID] = obj }
func (l *Layer) remove(id GObjectID) { delete(l.objects, id) }

// Has reports membership of the object.
func (l *Layer) Has(id GObjectID) bool {
	_, ok := l.objects[id]
	return ok
}

// Len is the number of objects on the layer.
func (l *Layer) Len() int { return len(l.objects) }

// View is the viewport transform state driven by UI events.
type View struct {
	ScaleX, ScaleY float64
	DX, DY         float64
	RotateDeg      float64
	Width, Height  int
}

func defaultView() View { return View{ScaleX: 1, ScaleY: 1} }

// Viewport owns layers, objects, the selection, the view transform, and the
// undo/redo lists of submitted commits.
type Viewport struct {
	freeLayerID  LayerID
	freeObjectID GObjectID
	layers       map[LayerID]*Layer
	layerStack   []LayerID
	objects      map[GObjectID]*GObject
	selection    map[GObjectID]bool
	view         View
	undoList     []*Commit
	redoList     []*Commit
}

// NewViewport returns an empty viewport with an identity view.
func NewViewport() *Viewport {
	return &Viewport{
		freeLayerID:  1,
		freeObjectID: 1,
		layers:       map[LayerID]*Layer{},
		objects:      map[GObjectID]*GObject{},
		selection:    map[GObjectID]bool{},
		view:         defaultView(),
	}
}

// View returns the current transform state.
func (vp *Viewport) View() View { return vp.view }

// CreateLayer appends a named layer on top of the stack.
func (vp *Viewport) CreateLayer(name string) LayerID {
	id := vp.freeLayerID
	vp.freeLayerID++
	vp.layers[id] = &Layer{ID: id, Name: name, objects: map[GObjectID]*GObject{}}
	vp.layerStack = append(vp.layerStack, id)
	return id
}

// FindLayer resolves a layer by name.
func (vp *Viewport) FindLayer(name string) (LayerID, bool) {
	for _, id := range vp.layerStack {
		if vp.layers[id].Name == name {
			return id, true
		}
	}
	return 0, false
}

// Layer returns the layer by id.
func (vp *Viewport) Layer(id LayerID) (*Layer, bool) {
	l, ok := vp.layers[id]
	return l, ok
}

// LayerZIndex is the stacking position of the layer.
func (vp *Viewport) LayerZIndex(id LayerID) (int, bool) {
	for i, lid := range vp.layerStack {
		if lid == id {
			return i, true
		}
	}
	return 0, false
}

// Object returns the object by id.
func (vp *Viewport) Object(id GObjectID) (*GObject, bool) {
	o, ok := vp.objects[id]
	return o, ok
}

// ObjectCount is the number of live objects.
func (vp *Viewport) ObjectCount() int { return len(vp.objects) }

func (vp *Viewport) createObject(shape h2g.Shape) *GObject {
	id := vp.freeObjectID
	vp.freeObjectID++
	obj := &GObject{ID: id, Shape: shape}
	vp.objects[id] = obj
	return obj
}

func (vp *Viewport) restoreObject(obj *GObject) {
	vp.objects[obj.ID] = obj
}

func (vp *Viewport) deleteObject(id GObjectID) {
	delete(vp.objects, id)
	delete(vp.selection, id)
}

// layersOf collects the layers holding the object.
func (vp *Viewport) layersOf(id GObjectID) []LayerID {
	var out []LayerID
	for _, lid := range vp.layerStack {
		if vp.layers[lid].Has(id) {
			out = append(out, lid)
		}
	}
	return out
}

// ---- view events -----------------------------------------------------------

func (vp *Viewport) OnScale(scaleX, scaleY float64) {
	vp.view.ScaleX *= scaleX
	vp.view.ScaleY *= scaleY
}

func (vp *Viewport) OnTranslate(deltaX, deltaY float64) {
	vp.view.DX += deltaX
	vp.view.DY += deltaY
}

func (vp *Viewport) OnRotate(degreeCClockwise float64) {
	vp.view.RotateDeg += degreeCClockwise
}

func (vp *Viewport) OnReset() {
	w, h := vp.view.Width, vp.view.Height
	vp.view = defaultView()
	vp.view.Width, vp.view.Height = w, h
}

func (vp *Viewport) OnResize(viewportXSize, viewportYSize int) {
	vp.view.Width, vp.view.Height = viewportXSize, viewportYSize
}

// OnSelect replaces the selection with every object whose shape touches the
// drag box.
func (vp *Viewport) OnSelect(from, to h2g.Point) {
	minX, maxX := from.X, to.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := from.Y, to.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	box := h2g.PolygonShape(h2g.Polygon{Points: []h2g.Point{
		h2g.Pt(minX, minY), h2g.Pt(maxX, minY), h2g.Pt(maxX, maxY), h2g.Pt(minX, maxY),
	}})
	vp.selection = map[GObjectID]bool{}
	for id, obj := range vp.objects {
		if h2g.Distance(box, obj.Shape).D == 0 {
			vp.selection[id] = true
		}
	}
}

// Selected returns the selected object ids in ascending order.
func (vp *Viewport) Selected() []GObjectID {
	out := make([]GObjectID, 0, len(vp.selection))
	for id := range vp.selection {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OnDelete removes the selected objects inside one commit.
func (vp *Viewport) OnDelete() int {
	ids := vp.Selected()
	if len(ids) == 0 {
		return 0
	}
	commit := vp.BeginTransaction()
	for _, id := range ids {
		commit.Push(NewRemoveObject(vp, id))
	}
	vp.Submit(commit)
	return len(ids)
}
