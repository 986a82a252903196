// commit.go
//
// Command-pattern transactions. A Commit is an ordered command list built
// between BeginTransaction and Submit (or Abort); submitted commits feed
// the undo list, Undo/Redo replay them.
package canvas

import "github.com/m2v/m2v/h2g"

// Command is one reversible viewport mutation.
type Command interface {
	Execute()
	Undo()
}

// Commit is an ordered command list bound to a viewport.
type Commit struct {
	vp        *Viewport
	commands  []Command
	submitted bool
}

// Done reports whether the commit has been submitted.
func (c *Commit) Done() bool { return c.submitted }

// Push appends a command; only unsubmitted commits accept commands.
func (c *Commit) Push(cmd Command) {
	if c.submitted {
		panic("canvas: push on a submitted commit")
	}
	c.commands = append(c.commands, cmd)
}

// BeginTransaction opens an empty commit.
func (vp *Viewport) BeginTransaction() *Commit {
	return &Commit{vp: vp}
}

// Submit executes the commit's commands in order, marks it done, and
// appends it to the undo list. Submitting clears the redo list.
func (vp *Viewport) Submit(c *Commit) {
	if c.submitted {
		return
	}
	for _, cmd := range c.commands {
		cmd.Execute()
	}
	c.submitted = true
	vp.undoList = append(vp.undoList, c)
	vp.redoList = nil
}

// Abort drops an unsubmitted commit.
func (vp *Viewport) Abort(c *Commit) {
	c.commands = nil
}

// Undo reverses the most recent commit.
func (vp *Viewport) Undo() bool {
	if len(vp.undoList) == 0 {
		return false
	}
	c := vp.undoList[len(vp.undoList)-1]
	vp.undoList = vp.undoList[:len(vp.undoList)-1]
	for i := len(c.commands) - 1; i >= 0; i-- {
		c.commands[i].Undo()
	}
	vp.redoList = append(vp.redoList, c)
	return true
}

// Redo replays the most recently undone commit.
func (vp *Viewport) Redo() bool {
	if len(vp.redoList) == 0 {
		return false
	}
	c := vp.redoList[len(vp.redoList)-1]
	vp.redoList = vp.redoList[:len(vp.redoList)-1]
	for _, cmd := range c.commands {
		cmd.Execute()
	}
	vp.undoList = append(vp.undoList, c)
	return true
}

// ---- concrete commands -----------------------------------------------------

type addObjectCommand struct {
	vp    *Viewport
	layer LayerID
	shape h2g.Shape
	obj   *GObject
}

// NewAddObject creates the object on first Execute and re-adds the same
// object on redo, keeping its identity stable across undo cycles.
func NewAddObject(vp *Viewport, layer LayerID, shape h2g.Shape) Command {
	return &addObjectCommand{vp: vp, layer: layer, shape: shape}
}

// ObjectID of the created object; 0 before the first Execute.
func (c *addObjectCommand) ObjectID() GObjectID {
	if c.obj == nil {
		return 0
	}
	return c.obj.ID
}

func (c *addObjectCommand) Execute() {
	if c.obj == nil {
		c.obj = c.vp.createObject(c.shape)
	} else {
		c.vp.restoreObject(c.obj)
	}
	if l, ok := c.vp.layers[c.layer]; ok {
		l.add(c.obj)
	}
}

func (c *addObjectCommand) Undo() {
	if c.obj == nil {
		return
	}
	if l, ok := c.vp.layers[c.layer]; ok {
		l.remove(c.obj.ID)
	}
	c.vp.deleteObject(c.obj.ID)
}

type removeObjectCommand struct {
	vp     *Viewport
	id     GObjectID
	obj    *GObject
	layers []LayerID
}

// NewRemoveObject removes an object from every layer; Undo restores it.
func NewRemoveObject(vp *Viewport, id GObjectID) Command {
	return &removeObjectCommand{vp: vp, id: id}
}

func (c *removeObjectCommand) Execute() {
	obj, ok := c.vp.objects[c.id]
	if !ok {
		return
	}
	c.obj = obj
	c.layers = c.vp.layersOf(c.id)
	for _, lid := range c.layers {
		c.vp.layers[lid].remove(c.id)
	}
	c.vp.deleteObject(c.id)
}

func (c *removeObjectCommand) Undo() {
	if c.obj == nil {
		return
	}
	c.vp.restoreObject(c.obj)
	for _, lid := range c.layers {
		if l, ok := c.vp.layers[lid]; ok {
			l.add(c.obj)
		}
	}
}
