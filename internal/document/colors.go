package document

import (
	"regexp"
	"strings"
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-f]{6}$`)

// NormalizeUserColors lowercases, validates and dedups a palette.
// Only full #rrggbb values survive; order of first occurrence is kept.
func NormalizeUserColors(colors []string) []string {
	out := make([]string, 0, len(colors))
	seen := map[string]bool{}
	for _, c := range colors {
		c = strings.ToLower(strings.TrimSpace(c))
		if !hexColorRe.MatchString(c) || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// SetUserColors replaces the palette and syncs it into every option
// that randomizes from user colors, so stored RandomValues never drift
// from the palette they were drawn from.
func (d *Document) SetUserColors(colors []string) {
	palette := NormalizeUserColors(colors)
	d.Config.UserColors = palette
	for _, set := range d.Sets {
		for _, t := range set.Tracks {
			for _, data := range t.ModulesData {
				syncPaletteInto(data, palette)
			}
		}
	}
}

func syncPaletteInto(data *InstanceData, palette []string) {
	if data == nil {
		return
	}
	syncPaletteMethods(data.Constructor, palette)
	for _, methods := range data.Methods {
		syncPaletteMethods(methods, palette)
	}
}

func syncPaletteMethods(methods []MethodConfig, palette []string) {
	for mi := range methods {
		for oi := range methods[mi].Options {
			opt := &methods[mi].Options[oi]
			if opt.RandomizeFromUserColors {
				opt.RandomValues = append([]string(nil), palette...)
			}
		}
	}
}
