// execmodule.go
package m2v

// FunctionSpec is one function-table entry of an ExecutionModule. Begin and
// Length delimit the function's slice of the module instruction stream.
type FunctionSpec struct {
	Name     string
	Begin    int
	Length   int
	Variadic bool
}

// ExecutionModule is an immutable compiled unit: literal pools, function
// table, optional initializer, and a flat instruction stream shared by
// reference with every VM that loads it.
type ExecutionModule struct {
	Name        string
	Strings     []string
	Integers    []int64
	Floats      []float64
	Functions   []FunctionSpec
	Initializer int // function-table index, -1 for none
	Code        []Instruction
}

// NewExecutionModule returns an empty module with no initializer.
func NewExecutionModule(name string) *ExecutionModule {
	return &ExecutionModule{Name: name, Initializer: -1}
}

// FunctionIndex returns the table index of the named function.
func (m *ExecutionModule) FunctionIndex(name string) (int, bool) {
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// Equal reports deep equality, the codec round-trip contract.
func (m *ExecutionModule) Equal(o *ExecutionModule) bool {
	if m.Name != o.Name || m.Initializer != o.Initializer {
		return false
	}
	if len(m.Strings) != len(o.Strings) || len(m.Integers) != len(o.Integers) ||
		len(m.Floats) != len(o.Floats) || len(m.Functions) != len(o.Functions) ||
		len(m.Code) != len(o.Code) {
		return false
	}
	for i := range m.Strings {
		if m.Strings[i] != o.Strings[i] {
			return false
		}
	}
	for i := range m.Integers {
		if m.Integers[i] != o.Integers[i] {
			return false
		}
	}
	for i := range m.Floats {
		if m.Floats[i] != o.Floats[i] {
			return false
		}
	}
	for i := range m.Functions {
		if m.Functions[i] != o.Functions[i] {
			return false
		}
	}
	for i := range m.Code {
		if m.Code[i] != o.Code[i] {
			return false
		}
	}
	return true
}
