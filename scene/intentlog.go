package scene

import "time"

// IntentEntry is one advisory decision-log record: which event fired, who
// scored what, why a gate denied an agent. Purely observational; nothing in
// the engine reads it back.
type IntentEntry struct {
	At      time.Time
	Action  string
	Details map[string]any
}

// intentLog is a bounded ring of decision records owned by one engine
// instance.
type intentLog struct {
	limit   int
	entries []IntentEntry
}

func newIntentLog(limit int) *intentLog {
	return &intentLog{limit: limit}
}

func (l *intentLog) add(action string, details map[string]any) {
	l.entries = append(l.entries, IntentEntry{
		At:      time.Now(),
		Action:  action,
		Details: details,
	})
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
}

func (l *intentLog) snapshot() []IntentEntry {
	out := make([]IntentEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *intentLog) clear() {
	l.entries = nil
}
