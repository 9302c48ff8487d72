// Package autosave turns the change stream of an editor surface into
// debounced persistence requests and tracks the visible save outcome.
package autosave

import (
	"fmt"
	"time"
)

// Slot is the kind of content a target points at.
type Slot string

const (
	SlotFieldValue    Slot = "field-value"
	SlotTemplateFront Slot = "template-front"
	SlotTemplateBack  Slot = "template-back"
)

const (
	FieldValueDelay = 500 * time.Millisecond
	TemplateDelay   = 2000 * time.Millisecond
	SavedDisplay    = 2000 * time.Millisecond
)

func (s Slot) Valid() bool {
	switch s {
	case SlotFieldValue, SlotTemplateFront, SlotTemplateBack:
		return true
	}
	return false
}

// Target identifies the content being autosaved.
type Target struct {
	ID   string
	Slot Slot
}

func FieldValue(id string) Target { return Target{ID: id, Slot: SlotFieldValue} }

func TemplateFront(id string) Target { return Target{ID: id, Slot: SlotTemplateFront} }

func TemplateBack(id string) Target { return Target{ID: id, Slot: SlotTemplateBack} }

func (t Target) String() string {
	return fmt.Sprintf("%s/%s", t.Slot, t.ID)
}

// DefaultDelay is the debounce delay used for the slot.
func (t Target) DefaultDelay() time.Duration {
	if t.Slot == SlotFieldValue {
		return FieldValueDelay
	}
	return TemplateDelay
}

// Label names the target in user-facing messages.
func (t Target) Label() string {
	if t.Slot == SlotFieldValue {
		return "field"
	}
	return "template"
}
