package doctree

import "strings"

// resolve computes Resolved for every node in one pre-order pass, so a
// parent is always final before any of its children is computed.
func (t *Tree) resolve() {
	root := t.Root
	root.Resolved = cloneMap(root.Own)
	if t.opts.DefaultTemplate != "" && !hasTemplate(root.Resolved) {
		root.Resolved[TemplateKey] = t.opts.DefaultTemplate
	}

	var visit func(parent *Node)
	visit = func(parent *Node) {
		for _, child := range parent.Children {
			child.Resolved = Merge(parent.Resolved, child.Own, t.opts.DeepMerge)
			visit(child)
		}
	}
	visit(root)
}

// Merge returns a new map holding parent overridden by child. With deep set,
// keys whose values are mappings on both sides are merged recursively;
// otherwise the child's value replaces the parent's wholesale. Neither input
// is modified and the result shares no maps or slices with them.
func Merge(parent, child map[string]any, deep bool) map[string]any {
	out := cloneMap(parent)
	for k, v := range child {
		if deep {
			pm, pok := out[k].(map[string]any)
			cm, cok := v.(map[string]any)
			if pok && cok {
				out[k] = Merge(pm, cm, true)
				continue
			}
		}
		out[k] = cloneValue(v)
	}
	return out
}

func hasTemplate(m map[string]any) bool {
	s, ok := m[TemplateKey].(string)
	return ok && strings.TrimSpace(s) != ""
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []byte:
		return append([]byte(nil), t...)
	default:
		return v
	}
}
