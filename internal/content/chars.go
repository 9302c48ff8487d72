package content

import (
	"sort"
	"unicode/utf16"
)

// Char is one UTF-16 code unit of block text together with its annotations.
// Editing operations decode a block into chars, mutate them and encode the
// result back into ranges.
type Char struct {
	Unit   uint16
	Styles map[string]struct{}
	Entity int // -1 when the char carries no entity
}

// HasStyle reports whether the char carries style.
func (c Char) HasStyle(style string) bool {
	_, ok := c.Styles[style]
	return ok
}

// NewChars converts text into chars carrying styles and entity.
func NewChars(text string, styles map[string]struct{}, entity int) []Char {
	units := utf16.Encode([]rune(text))
	out := make([]Char, len(units))
	for i, unit := range units {
		set := make(map[string]struct{}, len(styles))
		for style := range styles {
			set[style] = struct{}{}
		}
		out[i] = Char{Unit: unit, Styles: set, Entity: entity}
	}
	return out
}

// Chars decodes the block text and ranges.
func (b Block) Chars() []Char {
	out := NewChars(b.Text, nil, -1)
	for _, rng := range b.InlineStyleRanges {
		for i := rng.Offset; i < rng.Offset+rng.Length && i < len(out); i++ {
			if i < 0 {
				continue
			}
			out[i].Styles[rng.Style] = struct{}{}
		}
	}
	for _, rng := range b.EntityRanges {
		for i := rng.Offset; i < rng.Offset+rng.Length && i < len(out); i++ {
			if i < 0 {
				continue
			}
			out[i].Entity = rng.Key
		}
	}
	return out
}

// WithChars returns a copy of the block whose text and ranges are rebuilt
// from chars. Key, type, depth and data are kept.
func (b Block) WithChars(chars []Char) Block {
	out := b.Clone()
	units := make([]uint16, len(chars))
	for i, c := range chars {
		units[i] = c.Unit
	}
	out.Text = string(utf16.Decode(units))
	out.InlineStyleRanges = encodeStyles(chars)
	out.EntityRanges = encodeEntities(chars)
	return out
}

func encodeStyles(chars []Char) []InlineStyleRange {
	styleSet := map[string]struct{}{}
	for _, c := range chars {
		for style := range c.Styles {
			styleSet[style] = struct{}{}
		}
	}
	styles := make([]string, 0, len(styleSet))
	for style := range styleSet {
		styles = append(styles, style)
	}
	sort.Strings(styles)

	out := []InlineStyleRange{}
	for _, style := range styles {
		start := -1
		for i := 0; i <= len(chars); i++ {
			has := i < len(chars) && chars[i].HasStyle(style)
			switch {
			case has && start < 0:
				start = i
			case !has && start >= 0:
				out = append(out, InlineStyleRange{Style: style, Offset: start, Length: i - start})
				start = -1
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

func encodeEntities(chars []Char) []EntityRange {
	out := []EntityRange{}
	start := -1
	current := -1
	for i := 0; i <= len(chars); i++ {
		key := -1
		if i < len(chars) {
			key = chars[i].Entity
		}
		if key == current {
			continue
		}
		if current >= 0 {
			out = append(out, EntityRange{Key: current, Offset: start, Length: i - start})
		}
		current = key
		start = i
	}
	return out
}
