package metadata

import "sort"

// ResolveOrder merges system fields, custom fields and an optional layout
// into a single deterministic ordered list.
//
// Without a layout (or with an empty one), system and custom fields are
// sorted together by SortOrder. The sort must be stable: ties keep their
// prior relative order, which determines the user-visible tab order.
//
// With a layout, three tiers apply in order:
//  1. system fields, by SortOrder (layouts never reorder system fields);
//  2. custom fields listed in the layout, in first-occurrence order across
//     the flattened sections;
//  3. custom fields missing from every section, appended by SortOrder —
//     a field absent from the layout is never silently dropped.
func ResolveOrder(system, custom []FieldDescriptor, layout *Layout) []FieldDescriptor {
	if layout == nil || len(layout.Sections) == 0 {
		merged := make([]FieldDescriptor, 0, len(system)+len(custom))
		merged = append(merged, system...)
		merged = append(merged, custom...)
		sortBySortOrder(merged)
		return merged
	}

	out := make([]FieldDescriptor, 0, len(system)+len(custom))

	tier1 := append([]FieldDescriptor(nil), system...)
	sortBySortOrder(tier1)
	out = append(out, tier1...)

	byName := make(map[string]FieldDescriptor, len(custom))
	for _, f := range custom {
		byName[f.APIName] = f
	}

	placed := make(map[string]struct{}, len(custom))
	for _, name := range layout.FlattenFields() {
		f, ok := byName[name]
		if !ok {
			// Layout may reference fields that were since deleted; skip.
			continue
		}
		out = append(out, f)
		placed[f.APIName] = struct{}{}
	}

	var orphans []FieldDescriptor
	for _, f := range custom {
		if _, ok := placed[f.APIName]; !ok {
			orphans = append(orphans, f)
		}
	}
	sortBySortOrder(orphans)
	return append(out, orphans...)
}

func sortBySortOrder(fields []FieldDescriptor) {
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].SortOrder < fields[j].SortOrder
	})
}
