package metadata

// ModuleDef describes one business module and its built-in system fields.
// Tenant-defined custom fields are layered on top at fetch time.
type ModuleDef struct {
	Name         string            `json:"name"`  // stable key, e.g. "leads"
	Label        string            `json:"label"` // display name
	SystemFields []FieldDescriptor `json:"systemFields"`
}

// Registry stores module definitions. Populated once at startup from the
// built-in schema; safe for concurrent reads after that.
type Registry struct {
	modules map[string]ModuleDef
	names   []string // registration order, for stable listing
}

func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]ModuleDef),
	}
}

func (r *Registry) Register(def ModuleDef) {
	if _, exists := r.modules[def.Name]; !exists {
		r.names = append(r.names, def.Name)
	}
	r.modules[def.Name] = def
}

func (r *Registry) Get(name string) (ModuleDef, bool) {
	d, ok := r.modules[name]
	return d, ok
}

func (r *Registry) List() []ModuleDef {
	list := make([]ModuleDef, 0, len(r.names))
	for _, name := range r.names {
		list = append(list, r.modules[name])
	}
	return list
}

// SystemFields returns a copy of the module's system fields, or nil for an
// unknown module. The copy keeps callers from mutating registry state.
func (r *Registry) SystemFields(name string) []FieldDescriptor {
	def, ok := r.modules[name]
	if !ok {
		return nil
	}
	return append([]FieldDescriptor(nil), def.SystemFields...)
}
