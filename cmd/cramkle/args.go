package main

import (
	"context"
	"errors"
	"fmt"

	"cramkle/app/internal/autosave"
	"cramkle/app/internal/workspace"
)

type pageKind int

const (
	notePage pageKind = iota
	modelPage
)

type pageArgs struct {
	kind       pageKind
	id         string
	templateID string
	// slot is the field name of a note page or the side of a model page.
	slot string
}

func parseArgs(args []string) (pageArgs, error) {
	if len(args) < 2 {
		return pageArgs{}, errors.New("missing page and id")
	}
	switch args[0] {
	case "note":
		if len(args) > 3 {
			return pageArgs{}, errors.New("too many arguments")
		}
		page := pageArgs{kind: notePage, id: args[1]}
		if len(args) == 3 {
			page.slot = args[2]
		}
		return page, nil
	case "model":
		page := pageArgs{kind: modelPage, id: args[1], slot: "front"}
		rest := args[2:]
		if len(rest) > 0 && isSide(rest[len(rest)-1]) {
			page.slot = rest[len(rest)-1]
			rest = rest[:len(rest)-1]
		}
		switch len(rest) {
		case 0:
		case 1:
			page.templateID = rest[0]
		default:
			return pageArgs{}, errors.New("too many arguments")
		}
		return page, nil
	}
	return pageArgs{}, fmt.Errorf("unknown page %q", args[0])
}

func (p pageArgs) open(ctx context.Context, client workspace.Client, opts ...autosave.Option) (*workspace.Workspace, error) {
	if p.kind == modelPage {
		return workspace.OpenModel(ctx, client, p.id, p.templateID, opts...)
	}
	return workspace.OpenNote(ctx, client, p.id, opts...)
}

func isSide(value string) bool {
	return value == "front" || value == "back"
}
