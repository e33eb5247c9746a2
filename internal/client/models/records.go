package models

// RecycleBinEntry is the soft-delete snapshot of a credential.
type RecycleBinEntry struct {
	ID          int64
	OriginalID  int64
	DeletedTime int64
	// LoginDataJSON is the JSON of the stored (encrypted) record.
	LoginDataJSON string
	DeleteReason  string
}

// OperationType tags a password history entry.
type OperationType string

const (
	OperationGenerate OperationType = "GENERATE"
	OperationCreate   OperationType = "CREATE"
	OperationUpdate   OperationType = "UPDATE"
	OperationRestore  OperationType = "RESTORE"
	OperationImport   OperationType = "IMPORT"
)

// HistoryEntry is an append-only record of a password value.
// RecordID is 0 for passwords generated without a record.
type HistoryEntry struct {
	ID            int64
	RecordID      int64
	Timestamp     int64
	ProjectName   string
	Password      string
	OperationType OperationType
}

// SyncMetadata is the singleton row summarising sync state.
// Timestamps are epoch milliseconds, 0 meaning never.
type SyncMetadata struct {
	ID              string
	LastLocalUpdate int64
	LastCloudUpdate int64
	LastSyncTime    int64
	SyncStatus      string
	// Version increases on every write and backs CompareAndSwap.
	Version int64
}

// CacheState is the lifecycle of the decrypted in-memory snapshot.
type CacheState int

const (
	CacheInitial CacheState = iota
	CacheLoading
	CacheValid
	CacheInvalid
)

func (s CacheState) String() string {
	switch s {
	case CacheInitial:
		return "INITIAL"
	case CacheLoading:
		return "LOADING"
	case CacheValid:
		return "VALID"
	case CacheInvalid:
		return "INVALID"
	}
	return "UNKNOWN"
}
