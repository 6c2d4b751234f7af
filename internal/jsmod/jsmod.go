// Package jsmod loads visual module files into an embedded JS runtime
// and reads their declared metadata: name, category and the method
// table with option schemas. This is the projector-side half of the
// introspection protocol.
package jsmod

import (
	"fmt"
	"os"
	"strings"

	"github.com/dop251/goja"

	"github.com/example/vjdeck/internal/document"
)

// Info is everything introspection learns about one module.
type Info struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	Category string               `json:"category,omitempty"`
	Methods  []document.MethodDef `json:"methods,omitempty"`
}

// exportBinding is where the rewritten default export lands.
const exportBinding = "__vjdeckExport"

// IntrospectFile evaluates a module file and reads its statics. A file
// that fails to parse or exports nothing usable returns an error; the
// caller reports it as a load failure, it never tears down the runtime.
func IntrospectFile(path, id string) (Info, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}
	return Introspect(string(src), id)
}

// Introspect evaluates module source in a fresh runtime. Each module
// gets its own runtime so a broken file cannot poison the next one.
func Introspect(src, id string) (Info, error) {
	vm := goja.New()
	if _, err := vm.RunString(rewriteModuleSource(src)); err != nil {
		return Info{}, fmt.Errorf("evaluate module %s: %w", id, err)
	}
	exported := vm.Get(exportBinding)
	if exported == nil || goja.IsUndefined(exported) || goja.IsNull(exported) {
		return Info{}, fmt.Errorf("module %s has no default export", id)
	}
	obj := exported.ToObject(vm)

	info := Info{ID: id, Name: id}
	if v := obj.Get("name"); v != nil && !goja.IsUndefined(v) {
		if s := v.String(); s != "" {
			info.Name = s
		}
	}
	if v := obj.Get("category"); v != nil && !goja.IsUndefined(v) {
		info.Category = v.String()
	}
	info.Methods = parseMethods(obj.Get("methods"))
	return info, nil
}

// rewriteModuleSource turns the ES-module default export into a plain
// binding the runtime can evaluate. Named exports are dropped; modules
// declare everything through the default-exported class.
func rewriteModuleSource(src string) string {
	return strings.Replace(src, "export default", "var "+exportBinding+" =", 1)
}

func parseMethods(v goja.Value) []document.MethodDef {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	raw, ok := v.Export().([]any)
	if !ok {
		return nil
	}
	var defs []document.MethodDef
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		if name == "" {
			continue
		}
		def := document.MethodDef{Name: name}
		if b, ok := m["executeOnLoad"].(bool); ok {
			def.ExecuteOnLoad = b
		}
		if opts, ok := m["options"].([]any); ok {
			def.Options = parseOptions(opts)
		}
		defs = append(defs, def)
	}
	return defs
}

func parseOptions(raw []any) []document.OptionSchema {
	var out []document.OptionSchema
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		if name == "" {
			continue
		}
		schema := document.OptionSchema{Name: name}
		if t, ok := m["type"].(string); ok {
			schema.Type = t
		}
		// Numbers export as int64 or float64 depending on the literal;
		// store them uniformly so option clamping sees one type.
		if f, ok := toFloat(m["defaultVal"]); ok {
			schema.DefaultVal = f
		} else {
			schema.DefaultVal = m["defaultVal"]
		}
		if f, ok := toFloat(m["min"]); ok {
			schema.Min = &f
		}
		if f, ok := toFloat(m["max"]); ok {
			schema.Max = &f
		}
		if vals, ok := m["values"].([]any); ok {
			schema.Values = vals
		}
		out = append(out, schema)
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	}
	return 0, false
}
