// Package entry defines launchable candidates and the priority rules used
// when several sources produce the same identifier.
package entry

import (
	"fmt"
	"strings"
)

// Kind tags the source an entry came from. The numeric order is the
// deduplication priority: lower values win.
type Kind int

const (
	KindStatic Kind = iota
	KindHistory
	KindDesktop
	KindBin
	KindScript
)

// Kinds lists every source kind in priority order.
var Kinds = []Kind{KindStatic, KindHistory, KindDesktop, KindBin, KindScript}

func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindHistory:
		return "history"
	case KindDesktop:
		return "desktop"
	case KindBin:
		return "bin"
	case KindScript:
		return "script"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Priority returns the rank used for deduplication and tie breaking.
func (k Kind) Priority() int { return int(k) }

// ParseKind accepts the names used in configuration files.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static", "custom", "items":
		return KindStatic, nil
	case "history":
		return KindHistory, nil
	case "desktop", "apps", "applications":
		return KindDesktop, nil
	case "bin", "path":
		return KindBin, nil
	case "script", "scripts":
		return KindScript, nil
	default:
		return 0, fmt.Errorf("unknown source kind %q (expected static, history, desktop, bin, or scripts)", s)
	}
}

// Entry is one launchable candidate. Everything but Score is fixed once the
// producing source returns it.
type Entry struct {
	ID        string
	Name      string
	Command   string
	Icon      string
	Terminal  bool
	Group     string
	Kind      Kind
	Container string
	Env       map[string]string

	// Seq is the position of the entry within its source batch.
	Seq int
	// Uses is the recorded launch count; only history entries carry one.
	Uses int

	Score int
}

// Title is the label shown to the user.
func (e Entry) Title() string {
	if e.Container != "" {
		return e.Name + " (" + e.Container + ")"
	}
	return e.Name
}

// Less orders entries by source priority, then discovery order.
func Less(a, b *Entry) bool {
	if a.Kind != b.Kind {
		return a.Kind.Priority() < b.Kind.Priority()
	}
	return a.Seq < b.Seq
}
