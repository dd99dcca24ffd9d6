package metadata

// ViewType scopes a layout to one presentation surface.
type ViewType string

const (
	ViewDetail ViewType = "detail"
	ViewEdit   ViewType = "edit"
	ViewCreate ViewType = "create"
	ViewList   ViewType = "list"
	ViewKanban ViewType = "kanban"
)

// LayoutSection groups fields under a titled block.
type LayoutSection struct {
	Title   string   `json:"title"`
	Fields  []string `json:"fields"` // apiNames, encounter order is meaningful
	Columns int      `json:"columns,omitempty"`
}

// Layout orders and groups a module's custom fields for one view type.
// System fields always precede custom fields regardless of layout.
type Layout struct {
	Module   string          `json:"module"`
	ViewType ViewType        `json:"viewType"`
	Sections []LayoutSection `json:"sections"`
}

// FlattenFields returns the apiNames of all sections in encounter order,
// de-duplicated.
func (l Layout) FlattenFields() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, section := range l.Sections {
		for _, name := range section.Fields {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
