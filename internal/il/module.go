package il

// Global is a module-level variable declaration.
type Global struct {
	Name string
	Type Type
}

// Module is the top-level compilation unit: a named function map, a
// global variable map, an export list and an optional entry point.
type Module struct {
	Name      string
	Functions map[string]*Function
	Globals   map[string]*Global
	Exports   []string
	EntryFunc string // "" if none declared
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{
		Name:      name,
		Functions: make(map[string]*Function),
		Globals:   make(map[string]*Global),
	}
}

// AddFunction registers fn in the module.
func (m *Module) AddFunction(fn *Function) { m.Functions[fn.Name] = fn }

// AddGlobal registers a global variable.
func (m *Module) AddGlobal(g *Global) { m.Globals[g.Name] = g }

// FunctionNames returns every function name, in map iteration order is
// not guaranteed; callers that need determinism should sort.
func (m *Module) FunctionNames() []string {
	names := make([]string, 0, len(m.Functions))
	for n := range m.Functions {
		names = append(names, n)
	}
	return names
}
