// Package cli provides the interactive passvault shell.
//
// NewApp opens the vault, loads the data key and wires the credential
// service, the sync reconciler, settings and the status bus. App.Run starts
// two watchers (status messages and settings) and then blocks in the REPL.
// When sync becomes configured the settings watcher starts the auto-backup
// loop and reconciles once; when it is unconfigured the loop stops.
//
// Commands cover records (list, find, show, add, edit, delete), the recycle
// bin, password history and generation, sync, backup export/import, KeePass
// export and settings. Type "help" in the shell for the full list.
package cli
