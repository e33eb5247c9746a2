// Package recyclebin persists soft-deleted credential snapshots
// (table recycle_bin_data).
//
// Entries are written only by the delete path of the credential service and
// removed by restore, permanent delete or the retention policy
// (PurgeOlderThan / TrimToLimit).
package recyclebin
