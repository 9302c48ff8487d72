// Package content implements the raw rich-text content tree exchanged with the
// editor and the API: ordered blocks with inline style and entity ranges plus
// an entity map.
package content

import (
	"encoding/json"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Block types understood by the editor toolbar and the HTML renderer.
const (
	TypeUnstyled      = "unstyled"
	TypeHeaderOne     = "header-one"
	TypeHeaderTwo     = "header-two"
	TypeHeaderThree   = "header-three"
	TypeHeaderFour    = "header-four"
	TypeHeaderFive    = "header-five"
	TypeHeaderSix     = "header-six"
	TypeBlockquote    = "blockquote"
	TypeUnorderedList = "unordered-list-item"
	TypeOrderedList   = "ordered-list-item"
	TypeCodeBlock     = "code-block"
)

// Inline styles.
const (
	StyleBold          = "BOLD"
	StyleItalic        = "ITALIC"
	StyleUnderline     = "UNDERLINE"
	StyleStrikethrough = "STRIKETHROUGH"
	StyleCode          = "CODE"
)

// Entity types and mutability.
const (
	EntityMention = "MENTION"

	Mutable   = "MUTABLE"
	Immutable = "IMMUTABLE"
	Segmented = "SEGMENTED"
)

// AlignmentDataKey is the block data key holding the block text alignment.
const AlignmentDataKey = "textAlignment"

// Raw is the serializable content tree.
type Raw struct {
	Blocks    []Block           `json:"blocks"`
	EntityMap map[string]Entity `json:"entityMap"`
}

// Block is one paragraph-level node of the tree. Offsets in ranges count
// UTF-16 code units of Text.
type Block struct {
	Key               string             `json:"key"`
	Type              string             `json:"type"`
	Text              string             `json:"text"`
	Depth             int                `json:"depth"`
	InlineStyleRanges []InlineStyleRange `json:"inlineStyleRanges"`
	EntityRanges      []EntityRange      `json:"entityRanges"`
	Data              map[string]any     `json:"data"`
}

type InlineStyleRange struct {
	Style  string `json:"style"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

type EntityRange struct {
	Key    int `json:"key"`
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// Entity is an annotated span target, e.g. a mention of a note field.
type Entity struct {
	Type       string         `json:"type"`
	Mutability string         `json:"mutability"`
	Data       map[string]any `json:"data"`
}

const keyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewKey returns a random five character block key.
func NewKey() string {
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteByte(keyAlphabet[rand.IntN(len(keyAlphabet))])
	}
	return b.String()
}

// NewBlock returns an empty block of the given type.
func NewBlock(blockType string) Block {
	return Block{
		Key:               NewKey(),
		Type:              blockType,
		InlineStyleRanges: []InlineStyleRange{},
		EntityRanges:      []EntityRange{},
		Data:              map[string]any{},
	}
}

// Empty returns a new empty document.
func Empty() Raw {
	return Raw{
		Blocks:    []Block{NewBlock(TypeUnstyled)},
		EntityMap: map[string]Entity{},
	}
}

// Parse decodes a serialized tree. Malformed input, null and trees without
// blocks produce an empty document.
func Parse(data []byte) Raw {
	var raw Raw
	if len(data) == 0 {
		return Empty()
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Empty()
	}
	return Normalize(raw)
}

// Marshal serializes the tree.
func (r Raw) Marshal() ([]byte, error) {
	return json.Marshal(Normalize(r))
}

// Clone returns a deep copy of the tree.
func (r Raw) Clone() Raw {
	out := Raw{
		Blocks:    make([]Block, len(r.Blocks)),
		EntityMap: make(map[string]Entity, len(r.EntityMap)),
	}
	for i, block := range r.Blocks {
		out.Blocks[i] = block.Clone()
	}
	for key, entity := range r.EntityMap {
		out.EntityMap[key] = Entity{
			Type:       entity.Type,
			Mutability: entity.Mutability,
			Data:       cloneMap(entity.Data),
		}
	}
	return out
}

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	out := b
	out.InlineStyleRanges = append([]InlineStyleRange{}, b.InlineStyleRanges...)
	out.EntityRanges = append([]EntityRange{}, b.EntityRanges...)
	out.Data = cloneMap(b.Data)
	return out
}

// Len returns the block text length in UTF-16 code units.
func (b Block) Len() int {
	return len(utf16.Encode([]rune(b.Text)))
}

// Alignment returns the block alignment stored in block data, or "".
func (b Block) Alignment() string {
	value, _ := b.Data[AlignmentDataKey].(string)
	return value
}

// BlockByKey returns the index of the block with the given key, or -1.
func (r Raw) BlockByKey(key string) int {
	for i, block := range r.Blocks {
		if block.Key == key {
			return i
		}
	}
	return -1
}

// PlainText joins block texts with newlines.
func (r Raw) PlainText() string {
	parts := make([]string, len(r.Blocks))
	for i, block := range r.Blocks {
		parts[i] = block.Text
	}
	return strings.Join(parts, "\n")
}

// IsEmpty reports whether no block carries text.
func (r Raw) IsEmpty() bool {
	for _, block := range r.Blocks {
		if block.Text != "" {
			return false
		}
	}
	return true
}

// NextEntityKey returns the smallest unused numeric entity key.
func (r Raw) NextEntityKey() int {
	next := 0
	for key := range r.EntityMap {
		if n, err := strconv.Atoi(key); err == nil && n >= next {
			next = n + 1
		}
	}
	return next
}

// Equal reports whether two trees serialize identically once normalized.
func Equal(a, b Raw) bool {
	left, errA := a.Marshal()
	right, errB := b.Marshal()
	if errA != nil || errB != nil {
		return false
	}
	return string(left) == string(right)
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
