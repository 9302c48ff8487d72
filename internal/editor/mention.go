package editor

import (
	"fmt"
	"strconv"

	"cramkle/app/internal/content"
)

// Mention is a decorated mention span found in the content.
type Mention struct {
	BlockKey string
	Offset   int
	Length   int
	ID       string
	Name     string
}

// InsertMention replaces the selection with the name of the mentionable id,
// annotated with an immutable mention entity.
func (s *Surface) InsertMention(id string) error {
	var target *Mentionable
	for i := range s.mentions {
		if s.mentions[i].ID == id {
			target = &s.mentions[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: %s", ErrUnknownMention, id)
	}

	styles := s.stylesAtCaret()
	s.deleteSelection()

	key := s.raw.NextEntityKey()
	s.raw.EntityMap[strconv.Itoa(key)] = content.Entity{
		Type:       content.EntityMention,
		Mutability: content.Immutable,
		Data:       map[string]any{"id": target.ID, "name": target.Name},
	}
	s.insertChars(content.NewChars(target.Name, styles, key))
	s.emit()
	return nil
}

// Mentions lists every mention span in document order.
func (s *Surface) Mentions() []Mention {
	return FindMentions(s.raw)
}

// FindMentions decorates raw: it returns the span of every mention entity.
func FindMentions(raw content.Raw) []Mention {
	var out []Mention
	for _, block := range raw.Blocks {
		for _, rng := range block.EntityRanges {
			entity := raw.EntityMap[strconv.Itoa(rng.Key)]
			id, ok := content.MentionID(entity)
			if !ok {
				continue
			}
			name, _ := entity.Data["name"].(string)
			out = append(out, Mention{
				BlockKey: block.Key,
				Offset:   rng.Offset,
				Length:   rng.Length,
				ID:       id,
				Name:     name,
			})
		}
	}
	return out
}
