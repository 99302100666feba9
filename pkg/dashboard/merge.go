package dashboard

import (
	"errors"
	"fmt"
)

var ErrUnknownMergeStrategy = errors.New("unknown merge strategy")

type MergeStrategy string

const (
	// MergeAppend keeps a's panels and appends b's below them.
	MergeAppend MergeStrategy = "append"
	// MergeReplace drops a's panels in favour of b's.
	MergeReplace MergeStrategy = "replace"
	// MergeByTitle replaces a's panels with b's panels of the same title, in
	// a's grid slot, and appends the rest of b.
	MergeByTitle MergeStrategy = "merge"
)

// ParseMergeStrategy validates a strategy name.
func ParseMergeStrategy(s string) (MergeStrategy, error) {
	switch st := MergeStrategy(s); st {
	case MergeAppend, MergeReplace, MergeByTitle:
		return st, nil
	}
	return "", fmt.Errorf("%w %q: use append, replace or merge", ErrUnknownMergeStrategy, s)
}

// Merge combines two dashboards into a new one; neither input is modified.
// Dashboard level fields come from a. Variables are unioned by name with b
// winning. Panel ids are made unique afterwards and the fix-ups are returned
// as warnings.
func Merge(a, b *Dashboard, strategy MergeStrategy) (*Dashboard, []string, error) {
	if _, err := ParseMergeStrategy(string(strategy)); err != nil {
		return nil, nil, err
	}
	if a == nil || b == nil {
		return nil, nil, errors.New("merge needs two dashboards")
	}

	out := a.Clone()
	incoming := clonePanels(b.Panels)

	switch strategy {
	case MergeAppend:
		out.Panels = appendBelow(out.Panels, incoming)
	case MergeReplace:
		out.Panels = incoming
	case MergeByTitle:
		byTitle := map[string]*Panel{}
		for _, p := range incoming {
			if _, ok := byTitle[p.Title]; !ok {
				byTitle[p.Title] = p
			}
		}
		used := map[*Panel]bool{}
		for i, p := range out.Panels {
			if match, ok := byTitle[p.Title]; ok && !used[match] {
				match.GridPos = p.GridPos
				out.Panels[i] = match
				used[match] = true
			}
		}
		var rest []*Panel
		for _, p := range incoming {
			if !used[p] {
				rest = append(rest, p)
			}
		}
		out.Panels = appendBelow(out.Panels, rest)
	}

	for _, v := range b.Templating {
		out.AddVariable(v.Clone())
	}

	return out, fixPanelIDs(out), nil
}

// appendBelow shifts extra down past the bottom of base so the two groups keep
// their own layout without overlapping.
func appendBelow(base, extra []*Panel) []*Panel {
	if len(extra) == 0 {
		return base
	}
	offset := 0
	for _, p := range base {
		if b := p.GridPos.Bottom(); b > offset {
			offset = b
		}
	}
	top := extra[0].GridPos.Y
	for _, p := range extra {
		if p.GridPos.Y < top {
			top = p.GridPos.Y
		}
	}
	for _, p := range extra {
		p.GridPos.Y += offset - top
	}
	return append(base, extra...)
}
