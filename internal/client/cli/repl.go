package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App implements
// it; tests use a stub. Returned errors are printed by the REPL.
type execIface interface {
	List(ctx context.Context, args []string) error
	Find(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Add(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Bin(ctx context.Context, args []string) error
	Restore(ctx context.Context, args []string) error
	Purge(ctx context.Context, args []string) error
	EmptyBin(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	Generate(ctx context.Context, args []string) error
	Sync(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
	ExportKDBX(ctx context.Context, args []string) error
	Settings(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  (l)ist [page]          list records
  find <text>            search every field
  show <id>              show one record
  add                    add a record
  edit <id>              edit a record
  delete <id>            move a record to the recycle bin
  bin                    list the recycle bin
  restore <entry>        restore a recycle bin entry
  purge <entry>          delete a recycle bin entry for good
  emptybin               empty the recycle bin
  history [id|project]   password history
  gen [project]          generate a password
  sync                   refresh and sync with the remote
  export <file>          write an encrypted backup
  import <file>          replace all records from a backup
  kdbx <file>            export a KeePass database
  settings [key value]   show or change settings
  status                 show sync state
  exit | quit            leave the program`

// runREPL reads commands from reader and dispatches them to a until EOF,
// "exit"/"quit" or ctx cancellation. The prompt shows statusFn(). Command
// handlers read their prompts from the same reader.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("pv (%s)> ", statusFn()))
		line, rerr := reader.ReadString('\n')
		if rerr != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "l", "list":
			err = a.List(ctx, args)
		case "find":
			err = a.Find(ctx, args)
		case "show":
			err = a.Show(ctx, args)
		case "add":
			err = a.Add(ctx, args)
		case "edit":
			err = a.Edit(ctx, args)
		case "delete", "rm":
			err = a.Delete(ctx, args)
		case "bin":
			err = a.Bin(ctx, args)
		case "restore":
			err = a.Restore(ctx, args)
		case "purge":
			err = a.Purge(ctx, args)
		case "emptybin":
			err = a.EmptyBin(ctx, args)
		case "history":
			err = a.History(ctx, args)
		case "gen":
			err = a.Generate(ctx, args)
		case "sync":
			err = a.Sync(ctx, args)
		case "export":
			err = a.Export(ctx, args)
		case "import":
			err = a.Import(ctx, args)
		case "kdbx":
			err = a.ExportKDBX(ctx, args)
		case "settings":
			err = a.Settings(ctx, args)
		case "status":
			err = a.Status(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
		if err != nil {
			printlnFn("error:", err)
		}
	}
}
