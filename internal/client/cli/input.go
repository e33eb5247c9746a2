package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is swapped out by tests so no terminal is needed.
var readPassword = term.ReadPassword

// readLine returns the next line without its line ending. A final line
// with no newline is returned as-is; io.EOF is only reported when nothing
// was read at all.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readUntilBlank collects lines up to the first empty one or EOF.
func readUntilBlank(r *bufio.Reader) []string {
	lines := make([]string, 0)
	for {
		line, err := readLine(r)
		if err != nil || line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

// promptLine shows prompt on its own line followed by "> " and returns the
// trimmed answer.
func promptLine(r *bufio.Reader, w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprintf(w, "%s\n> ", prompt); err != nil {
		return "", err
	}
	line, err := readLine(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question; only "yes" counts as consent.
func confirm(r *bufio.Reader, w io.Writer, question string) (bool, error) {
	answer, err := promptLine(r, w, question+" (yes/no)")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "yes"), nil
}

// promptSecret reads a value from the terminal with echo off. The caller
// owns the returned slice and should wipe it.
func promptSecret(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// promptBlock reads free text such as notes, ending on an empty line.
func promptBlock(r *bufio.Reader, w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprintf(w, "%s\n(press Enter on an empty line to finish)\n", prompt); err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(readUntilBlank(r), "\n")), nil
}

// promptFields reads raw "name=value" lines for custom fields. Parsing is
// done by models.CustomFieldsFromLines.
func promptFields(r *bufio.Reader, w io.Writer) ([]string, error) {
	if _, err := fmt.Fprintln(w, "Custom fields as name=value (empty line to finish)"); err != nil {
		return nil, err
	}
	return readUntilBlank(r), nil
}
