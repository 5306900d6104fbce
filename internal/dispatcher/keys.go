package dispatcher

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// KeyBindings maps a key chord such as "c" or "shift+d" to a command name.
type KeyBindings map[string]string

// DefaultKeyBindings is the review keyboard layout.
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		"arrowright":   ":MARKER:NEXT_MARKER:",
		"arrowleft":    ":MARKER:PREVIOUS_MARKER:",
		"arrowdown":    ":MARKER:NEXT_SWIMLANE:",
		"arrowup":      ":MARKER:PREVIOUS_SWIMLANE:",
		"z":            ":MARKER:CONFIRM:",
		"x":            ":MARKER:REJECT:",
		"c":            ":MARKER:RESET_STATUS:",
		"q":            ":MARKER:SET_START:",
		"w":            ":MARKER:SET_END:",
		"s":            ":MARKER:SPLIT:",
		"d":            ":MARKER:DUPLICATE:",
		"delete":       ":MARKER:DELETE:",
		"shift+delete": ":MARKER:DELETE_REJECTED:",
		"b":            ":SHOT:ADD:",
		"shift+b":      ":SHOT:REMOVE:",
		"m":            ":DERIVE:MATERIALIZE:",
		"p":            ":SLOTS:SUGGEST:",
	}
}

// NormalizeKey lowercases a chord and orders its modifiers, so "Shift+Ctrl+K"
// and "ctrl+shift+k" match the same binding.
func NormalizeKey(key string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(key)), "+")
	if len(parts) <= 1 {
		return strings.Join(parts, "")
	}
	mods, last := parts[:len(parts)-1], parts[len(parts)-1]
	for i := range mods {
		mods[i] = strings.TrimSpace(mods[i])
	}
	sort.Strings(mods)
	return strings.Join(append(mods, strings.TrimSpace(last)), "+")
}

// Merge returns a copy of k with overrides applied. An empty command unbinds the key.
func (k KeyBindings) Merge(overrides map[string]string) KeyBindings {
	out := make(KeyBindings, len(k)+len(overrides))
	for key, cmd := range k {
		out[NormalizeKey(key)] = cmd
	}
	for key, cmd := range overrides {
		if cmd == "" {
			delete(out, NormalizeKey(key))
			continue
		}
		out[NormalizeKey(key)] = cmd
	}
	return out
}

// Lookup returns the command bound to key.
func (k KeyBindings) Lookup(key string) (string, bool) {
	cmd, ok := k[NormalizeKey(key)]
	return cmd, ok
}

// DispatchKey resolves key through the bindings and dispatches the bound command.
func (d *Dispatcher) DispatchKey(bindings KeyBindings, key string, e Event) (any, error) {
	cmd, ok := bindings.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("no binding for key: %s", key)
	}
	e.Command = cmd
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return d.Dispatch(e)
}
