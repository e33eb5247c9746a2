package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/passvault/internal/client/models"
	"github.com/dmitrijs2005/passvault/internal/passgen"
)

var errUsage = errors.New("usage")

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

func parseID(args []string, format string) (int64, error) {
	if len(args) != 1 {
		return 0, usage(format)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, usage(format)
	}
	return id, nil
}

func formatTime(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}

func printSummary(w io.Writer, c models.Credential) {
	mark := ""
	if c.Degraded {
		mark = " [!]"
	}
	fmt.Fprintf(w, "%5d  %-24s %-24s %s%s\n", c.ID, c.ProjectName, c.Username, formatTime(c.LastModified), mark)
}

func printRecord(w io.Writer, c models.Credential) {
	fmt.Fprintf(w, "ID:       %d\n", c.ID)
	fmt.Fprintf(w, "Project:  %s\n", c.ProjectName)
	fmt.Fprintf(w, "Username: %s\n", c.Username)
	fmt.Fprintf(w, "Password: %s\n", c.Password)
	if c.Number != "" {
		fmt.Fprintf(w, "Number:   %s\n", c.Number)
	}
	if c.Notes != "" {
		fmt.Fprintf(w, "Notes:    %s\n", c.Notes)
	}
	if fields, err := c.CustomFields(); err == nil {
		for _, k := range models.SortedFieldNames(fields) {
			fmt.Fprintf(w, "  %s: %s\n", k, fields[k])
		}
	} else {
		fmt.Fprintf(w, "Custom:   %s\n", c.CustomFieldJSON)
	}
	fmt.Fprintf(w, "Modified: %s\n", formatTime(c.LastModified))
	if c.Degraded {
		fmt.Fprintln(w, "Some fields could not be decrypted; this record cannot be exported or edited.")
	}
}

func (a *App) printPage(p models.Page) {
	for _, c := range p.Items {
		printSummary(a.out, c)
	}
	if p.Total == 0 {
		fmt.Fprintln(a.out, "No records.")
		return
	}
	fmt.Fprintf(a.out, "%d-%d of %d\n", p.Offset+1, p.Offset+len(p.Items), p.Total)
}

// List prints one page of records, newest first.
func (a *App) List(ctx context.Context, args []string) error {
	page := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return usage("list [page]")
		}
		page = n
	}
	p, err := a.svc.Query(ctx, "", (page-1)*pageSize, pageSize)
	if err != nil {
		return err
	}
	a.printPage(p)
	return nil
}

func (a *App) Find(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("find <text>")
	}
	p, err := a.svc.Query(ctx, strings.Join(args, " "), 0, pageSize)
	if err != nil {
		return err
	}
	a.printPage(p)
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	id, err := parseID(args, "show <id>")
	if err != nil {
		return err
	}
	c, err := a.svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	printRecord(a.out, c)
	return nil
}

// promptText asks for a value showing the current one; an empty answer
// keeps it.
func (a *App) promptText(label, current string) (string, error) {
	prompt := label
	if current != "" {
		prompt = fmt.Sprintf("%s [%s]", label, current)
	}
	v, err := promptLine(a.reader, a.out, prompt)
	if err != nil {
		return "", err
	}
	if v == "" {
		return current, nil
	}
	return v, nil
}

// inputCredential fills c interactively. A blank password on a new record
// is replaced by a generated one.
func (a *App) inputCredential(c models.Credential) (models.Credential, error) {
	var err error
	if c.ProjectName, err = a.promptText("Project", c.ProjectName); err != nil {
		return c, err
	}
	if c.Username, err = a.promptText("Username", c.Username); err != nil {
		return c, err
	}

	pwPrompt := "Password (empty to generate)"
	if c.ID != 0 {
		pwPrompt = "Password (empty to keep)"
	}
	pw, err := promptLine(a.reader, a.out, pwPrompt)
	if err != nil {
		return c, err
	}
	switch {
	case pw != "":
		c.Password = pw
	case c.ID == 0:
		if c.Password, err = passgen.Generate(a.settings.Current().PasswordLength); err != nil {
			return c, err
		}
		fmt.Fprintf(a.out, "Generated: %s\n", c.Password)
	}

	if c.Number, err = a.promptText("Number", c.Number); err != nil {
		return c, err
	}
	notes, err := promptBlock(a.reader, a.out, "Notes")
	if err != nil {
		return c, err
	}
	if notes != "" {
		c.Notes = notes
	}

	lines, err := promptFields(a.reader, a.out)
	if err != nil {
		return c, err
	}
	if len(lines) > 0 {
		fields, err := models.CustomFieldsFromLines(lines)
		if err != nil {
			return c, err
		}
		if c.CustomFieldJSON, err = models.EncodeCustomFields(fields); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (a *App) Add(ctx context.Context, args []string) error {
	c, err := a.inputCredential(models.Credential{})
	if err != nil {
		return err
	}
	id, err := a.svc.Create(ctx, c)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved record %d.\n", id)
	return nil
}

func (a *App) Edit(ctx context.Context, args []string) error {
	id, err := parseID(args, "edit <id>")
	if err != nil {
		return err
	}
	cur, err := a.svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	c, err := a.inputCredential(cur)
	if err != nil {
		return err
	}
	if err := a.svc.Update(ctx, c); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated record %d.\n", id)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := parseID(args, "delete <id>")
	if err != nil {
		return err
	}
	reason, err := promptLine(a.reader, a.out, "Reason (optional)")
	if err != nil {
		return err
	}
	if err := a.svc.Delete(ctx, id, reason); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Moved record %d to the recycle bin.\n", id)
	return nil
}

func (a *App) Bin(ctx context.Context, args []string) error {
	items, err := a.svc.RecycleBin(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "Recycle bin is empty.")
		return nil
	}
	for _, it := range items {
		fmt.Fprintf(a.out, "%5d  %-24s %-24s deleted %s  %s\n", it.Entry.ID, it.Credential.ProjectName,
			it.Credential.Username, formatTime(it.Entry.DeletedTime), it.Entry.DeleteReason)
	}
	return nil
}

func (a *App) Restore(ctx context.Context, args []string) error {
	entry, err := parseID(args, "restore <entry>")
	if err != nil {
		return err
	}
	id, err := a.svc.RestoreFromRecycleBin(ctx, entry)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Restored as record %d.\n", id)
	return nil
}

func (a *App) Purge(ctx context.Context, args []string) error {
	entry, err := parseID(args, "purge <entry>")
	if err != nil {
		return err
	}
	if err := a.svc.PurgeRecycleBinEntry(ctx, entry); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Purged entry %d.\n", entry)
	return nil
}

func (a *App) EmptyBin(ctx context.Context, args []string) error {
	if err := a.svc.EmptyRecycleBin(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Recycle bin emptied.")
	return nil
}

// History prints password history: all of it, for one record id or for a
// project name.
func (a *App) History(ctx context.Context, args []string) error {
	var (
		list []models.HistoryEntry
		err  error
	)
	switch {
	case len(args) == 0:
		list, err = a.svc.History(ctx)
	default:
		if id, perr := strconv.ParseInt(args[0], 10, 64); perr == nil && len(args) == 1 {
			list, err = a.svc.HistoryForRecord(ctx, id)
		} else {
			list, err = a.svc.HistoryForProject(ctx, strings.Join(args, " "))
		}
	}
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No history.")
		return nil
	}
	for _, h := range list {
		fmt.Fprintf(a.out, "%s  %-8s %-24s %s\n", formatTime(h.Timestamp), h.OperationType, h.ProjectName, h.Password)
	}
	return nil
}

// Generate prints a new password and records it in the history, attributed
// to the named project when one is given.
func (a *App) Generate(ctx context.Context, args []string) error {
	pw, err := passgen.Generate(a.settings.Current().PasswordLength)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, pw)
	return a.svc.RecordGeneratedPassword(ctx, strings.Join(args, " "), pw)
}
