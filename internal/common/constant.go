package common

// DecryptionFailedMarker replaces a field value that could not be decrypted.
// It is for display only and must never be written back to storage.
const DecryptionFailedMarker = "decryption failed"

// SyncMetadataID is the fixed primary key of the sync metadata row.
const SyncMetadataID = "singleton"

// Sync status tags stored in sync_metadata.sync_status.
const (
	SyncStatusIdle       = "idle"
	SyncStatusPending    = "Pending"
	SyncStatusUploaded   = "Uploaded"
	SyncStatusDownloaded = "Downloaded"
	SyncStatusSuccess    = "Success"
)
