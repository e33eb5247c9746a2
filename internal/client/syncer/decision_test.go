package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ts(v int64) *int64 { return &v }

func TestDecide(t *testing.T) {
	const t1, t2 = int64(500), int64(1000)

	tests := []struct {
		name  string
		local int64
		cloud *int64
		want  Action
	}{
		{"no cloud, nothing local", 0, nil, ActionNothingToSync},
		{"no cloud, local data", t2, nil, ActionUpload},
		{"no cloud, local t1", t1, nil, ActionUpload},
		{"local newer", t2, ts(t1), ActionUpload},
		{"cloud newer", t1, ts(t2), ActionDownload},
		{"cloud exists, never synced locally", 0, ts(t1), ActionDownload},
		{"cloud at zero, local data", t1, ts(0), ActionUpload},
		{"both zero", 0, ts(0), ActionNone},
		{"equal t1", t1, ts(t1), ActionNone},
		{"equal t2", t2, ts(t2), ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.local, tt.cloud))
		})
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "upload", ActionUpload.String())
	assert.Equal(t, "download", ActionDownload.String())
	assert.Equal(t, "in-sync", ActionNone.String())
	assert.Equal(t, "nothing-to-sync", ActionNothingToSync.String())
	assert.Equal(t, "unknown", Action(42).String())
	assert.True(t, Outcome{Action: ActionNone}.OK())
}
