package changelog

import (
	"time"

	"ledgerbridge/internal/core"
)

// RetentionWindow is how long change records are kept.
const RetentionWindow = 24 * time.Hour

// Curate drops records older than the retention window. If that would empty
// a non-empty log, the newest record is kept so a subscriber polling the feed
// always sees something once the class has changed.
func Curate(changed []core.ChangeRecord, now time.Time) []core.ChangeRecord {
	if len(changed) == 0 {
		return []core.ChangeRecord{}
	}

	cutoff := now.Add(-RetentionWindow).Unix()
	kept := make([]core.ChangeRecord, 0, len(changed))
	for _, rec := range changed {
		if rec.Meta.Timestamp > cutoff {
			kept = append(kept, rec)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, changed[0])
	}
	return kept
}
