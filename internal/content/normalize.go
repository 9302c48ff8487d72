package content

import "strconv"

var knownBlockTypes = map[string]struct{}{
	TypeUnstyled:      {},
	TypeHeaderOne:     {},
	TypeHeaderTwo:     {},
	TypeHeaderThree:   {},
	TypeHeaderFour:    {},
	TypeHeaderFive:    {},
	TypeHeaderSix:     {},
	TypeBlockquote:    {},
	TypeUnorderedList: {},
	TypeOrderedList:   {},
	TypeCodeBlock:     {},
	"atomic":          {},
}

// IsBlockType reports whether t is a block type the editor knows.
func IsBlockType(t string) bool {
	_, ok := knownBlockTypes[t]
	return ok
}

// Normalize repairs a tree so every consumer can rely on its shape. A tree
// without blocks becomes an empty document.
func Normalize(r Raw) Raw {
	if len(r.Blocks) == 0 {
		return Empty()
	}

	out := Raw{
		Blocks:    make([]Block, 0, len(r.Blocks)),
		EntityMap: make(map[string]Entity, len(r.EntityMap)),
	}
	for key, entity := range r.EntityMap {
		if entity.Data == nil {
			entity.Data = map[string]any{}
		}
		if entity.Mutability == "" {
			entity.Mutability = Mutable
		}
		out.EntityMap[key] = entity
	}

	seen := make(map[string]struct{}, len(r.Blocks))
	for _, block := range r.Blocks {
		block = block.Clone()
		if block.Key == "" {
			block.Key = NewKey()
		}
		for {
			if _, dup := seen[block.Key]; !dup {
				break
			}
			block.Key = NewKey()
		}
		seen[block.Key] = struct{}{}

		if block.Type == "" {
			block.Type = TypeUnstyled
		}
		if block.Depth < 0 {
			block.Depth = 0
		}

		length := block.Len()
		styles := make([]InlineStyleRange, 0, len(block.InlineStyleRanges))
		for _, rng := range block.InlineStyleRanges {
			if rng.Style == "" || !inBounds(rng.Offset, rng.Length, length) {
				continue
			}
			styles = append(styles, rng)
		}
		block.InlineStyleRanges = styles

		entities := make([]EntityRange, 0, len(block.EntityRanges))
		for _, rng := range block.EntityRanges {
			if !inBounds(rng.Offset, rng.Length, length) {
				continue
			}
			if _, ok := out.EntityMap[strconv.Itoa(rng.Key)]; !ok {
				continue
			}
			entities = append(entities, rng)
		}
		block.EntityRanges = entities

		out.Blocks = append(out.Blocks, block)
	}
	return out
}

func inBounds(offset, length, total int) bool {
	return offset >= 0 && length > 0 && offset+length <= total
}
