package editor

import (
	"fmt"
	"sort"

	"cramkle/app/internal/content"
)

// ToggleInlineStyle removes style from the selection when every selected
// char carries it and adds it otherwise. On a caret it toggles the style
// the next inserted text receives.
func (s *Surface) ToggleInlineStyle(style string) error {
	if !isInlineStyle(style) {
		return fmt.Errorf("%w: %s", ErrUnknownStyle, style)
	}

	if s.sel.Collapsed() {
		next := map[string]struct{}{}
		for current := range s.stylesAtCaret() {
			next[current] = struct{}{}
		}
		if _, ok := next[style]; ok {
			delete(next, style)
		} else {
			next[style] = struct{}{}
		}
		s.override = next
		s.emit()
		return nil
	}

	start, end := s.bounds()
	remove := s.selectionHasStyle(start, end, style)
	for i := start.block; i <= end.block; i++ {
		block := s.raw.Blocks[i]
		chars := block.Chars()
		from, to := 0, len(chars)
		if i == start.block {
			from = start.offset
		}
		if i == end.block {
			to = end.offset
		}
		for j := from; j < to; j++ {
			if remove {
				delete(chars[j].Styles, style)
			} else {
				chars[j].Styles[style] = struct{}{}
			}
		}
		s.raw.Blocks[i] = block.WithChars(chars)
	}
	s.emit()
	return nil
}

func (s *Surface) selectionHasStyle(start, end position, style string) bool {
	for i := start.block; i <= end.block; i++ {
		chars := s.raw.Blocks[i].Chars()
		from, to := 0, len(chars)
		if i == start.block {
			from = start.offset
		}
		if i == end.block {
			to = end.offset
		}
		for j := from; j < to; j++ {
			if !chars[j].HasStyle(style) {
				return false
			}
		}
	}
	return true
}

// CurrentInlineStyles returns the styles active at the caret, sorted.
func (s *Surface) CurrentInlineStyles() []string {
	var styles map[string]struct{}
	if s.sel.Collapsed() {
		styles = s.stylesAtCaret()
	} else {
		start, _ := s.bounds()
		chars := s.raw.Blocks[start.block].Chars()
		if start.offset < len(chars) {
			styles = chars[start.offset].Styles
		}
	}
	out := make([]string, 0, len(styles))
	for style := range styles {
		out = append(out, style)
	}
	sort.Strings(out)
	return out
}

// ToggleBlockType sets blockType on every selected block, or resets them to
// unstyled when the block under the selection start already has it.
func (s *Surface) ToggleBlockType(blockType string) error {
	if !content.IsBlockType(blockType) {
		return fmt.Errorf("%w: %s", ErrUnknownBlockType, blockType)
	}
	start, end := s.bounds()
	target := blockType
	if s.raw.Blocks[start.block].Type == blockType {
		target = content.TypeUnstyled
	}
	for i := start.block; i <= end.block; i++ {
		s.raw.Blocks[i].Type = target
		if target != content.TypeUnorderedList && target != content.TypeOrderedList {
			s.raw.Blocks[i].Depth = 0
		}
	}
	s.emit()
	return nil
}

// CurrentBlockType returns the type of the block under the selection start.
func (s *Surface) CurrentBlockType() string {
	start, _ := s.bounds()
	return s.raw.Blocks[start.block].Type
}

// ToggleAlignment stores a in the data of every selected block. Toggling the
// alignment already active on the start block unsets it.
func (s *Surface) ToggleAlignment(a Alignment) error {
	if !isAlignment(a) {
		return fmt.Errorf("%w: %s", ErrUnknownAlignment, a)
	}
	unset := s.CurrentAlignment() == a
	start, end := s.bounds()
	for i := start.block; i <= end.block; i++ {
		data := s.raw.Blocks[i].Clone().Data
		if unset {
			delete(data, content.AlignmentDataKey)
		} else {
			data[content.AlignmentDataKey] = string(a)
		}
		s.raw.Blocks[i].Data = data
	}
	s.emit()
	return nil
}

// CurrentAlignment returns the alignment of the block under the selection
// start, or "" when unset.
func (s *Surface) CurrentAlignment() Alignment {
	start, _ := s.bounds()
	return Alignment(s.raw.Blocks[start.block].Alignment())
}
