package content

import (
	"sort"
	"strconv"
	"strings"
)

// MentionID returns the mentioned field id when entity is a mention.
func MentionID(entity Entity) (string, bool) {
	if entity.Type != EntityMention {
		return "", false
	}
	id, ok := entity.Data["id"].(string)
	return id, ok && id != ""
}

// Substitute renders a flashcard side: mentions of fields present in values
// are replaced by the field content. A mention spanning its whole block is
// replaced by the value blocks; an inline mention is replaced by the value
// plain text carrying the mention's inline styles.
func Substitute(template Raw, values map[string]Raw) Raw {
	tpl := Normalize(template)
	out := Raw{
		Blocks:    make([]Block, 0, len(tpl.Blocks)),
		EntityMap: make(map[string]Entity, len(tpl.EntityMap)),
	}
	for key, entity := range tpl.EntityMap {
		out.EntityMap[key] = entity
	}

	for _, block := range tpl.Blocks {
		mentions := resolvedMentions(block, tpl.EntityMap, values)
		if len(mentions) == 0 {
			out.Blocks = append(out.Blocks, block)
			continue
		}

		if len(mentions) == 1 && mentions[0].Offset == 0 && mentions[0].Length == block.Len() {
			value := Normalize(values[mentions[0].id])
			out.Blocks = append(out.Blocks, adoptBlocks(&out, value)...)
			continue
		}

		chars := block.Chars()
		// Replace from the end so earlier offsets stay valid.
		for i := len(mentions) - 1; i >= 0; i-- {
			m := mentions[i]
			styles := chars[m.Offset].Styles
			text := strings.ReplaceAll(values[m.id].PlainText(), "\n", " ")
			replacement := NewChars(text, styles, -1)
			tail := append([]Char{}, chars[m.Offset+m.Length:]...)
			chars = append(append(chars[:m.Offset], replacement...), tail...)
		}
		out.Blocks = append(out.Blocks, block.WithChars(chars))
	}

	return Normalize(out)
}

type resolvedMention struct {
	EntityRange
	id string
}

func resolvedMentions(block Block, entities map[string]Entity, values map[string]Raw) []resolvedMention {
	var out []resolvedMention
	for _, rng := range block.EntityRanges {
		id, ok := MentionID(entities[strconv.Itoa(rng.Key)])
		if !ok {
			continue
		}
		if _, ok := values[id]; !ok {
			continue
		}
		out = append(out, resolvedMention{EntityRange: rng, id: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// adoptBlocks copies value blocks into out with fresh keys, moving their
// entities into out's entity map.
func adoptBlocks(out *Raw, value Raw) []Block {
	remap := make(map[int]int, len(value.EntityMap))
	keys := make([]string, 0, len(value.EntityMap))
	for key := range value.EntityMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		old, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		next := out.NextEntityKey()
		out.EntityMap[strconv.Itoa(next)] = value.EntityMap[key]
		remap[old] = next
	}

	blocks := make([]Block, 0, len(value.Blocks))
	for _, block := range value.Blocks {
		block = block.Clone()
		block.Key = NewKey()
		ranges := make([]EntityRange, 0, len(block.EntityRanges))
		for _, rng := range block.EntityRanges {
			if mapped, ok := remap[rng.Key]; ok {
				rng.Key = mapped
				ranges = append(ranges, rng)
			}
		}
		block.EntityRanges = ranges
		blocks = append(blocks, block)
	}
	return blocks
}
