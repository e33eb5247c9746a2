// Package syncer reconciles the local vault with the newest remote backup
// and keeps the remote up to date while records change.
package syncer

// Action is what a reconciliation run decided to do.
type Action int

const (
	// ActionNothingToSync: no remote backup and nothing stored locally yet.
	ActionNothingToSync Action = iota
	// ActionNone: local and remote carry the same timestamp.
	ActionNone
	ActionUpload
	ActionDownload
)

func (a Action) String() string {
	switch a {
	case ActionNothingToSync:
		return "nothing-to-sync"
	case ActionNone:
		return "in-sync"
	case ActionUpload:
		return "upload"
	case ActionDownload:
		return "download"
	}
	return "unknown"
}

// Decide compares the last local change with the newest remote backup
// (nil when the remote has none). Both are epoch milliseconds.
func Decide(localTs int64, cloudTs *int64) Action {
	if cloudTs == nil {
		if localTs != 0 {
			return ActionUpload
		}
		return ActionNothingToSync
	}
	switch {
	case localTs > *cloudTs:
		return ActionUpload
	case *cloudTs > localTs:
		return ActionDownload
	default:
		return ActionNone
	}
}

// Outcome is the result of a reconciliation run. Err is nil on success.
type Outcome struct {
	Action Action
	Err    error
}

func (o Outcome) OK() bool { return o.Err == nil }
