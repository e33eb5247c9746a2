package remote

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
)

// BackupDir is the remote directory holding backups.
const BackupDir = "backup"

var backupNameRe = regexp.MustCompile(`^backup_(\d+)\.json$`)

// BackupName returns the remote path of the backup taken at ts (epoch millis).
func BackupName(ts int64) string {
	return fmt.Sprintf("%s/backup_%d.json", BackupDir, ts)
}

// ParseBackupName extracts the timestamp from a backup file name or path.
func ParseBackupName(name string) (int64, bool) {
	m := backupNameRe.FindStringSubmatch(path.Base(name))
	if m == nil {
		return 0, false
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// latestOf picks the newest backup among names, ignoring anything that is
// not a backup file. It returns nil if there is none.
func latestOf(names []string) *BackupRef {
	var best *BackupRef
	for _, n := range names {
		ts, ok := ParseBackupName(n)
		if !ok {
			continue
		}
		if best == nil || ts > best.Timestamp {
			best = &BackupRef{Path: BackupDir + "/" + path.Base(n), Timestamp: ts}
		}
	}
	return best
}
