// Package flagx lets several independent flag sets read from the same
// command line without rejecting each other's flags.
package flagx

import (
	"flag"
	"strings"
)

// boolFlag matches the flag package's own check for flags that take no value.
type boolFlag interface {
	IsBoolFlag() bool
}

// flagName strips one or two leading dashes. ok is false for values and for
// the bare "-" / "--" tokens.
func flagName(arg string) (name string, ok bool) {
	if len(arg) < 2 || arg[0] != '-' {
		return "", false
	}
	name = strings.TrimPrefix(arg[1:], "-")
	if name == "" {
		return "", false
	}
	return name, true
}

// Known returns the subset of args that names flags defined in fs, together
// with their values. Both -name and --name are accepted, in either the
// "-name value" or the "-name=value" form. A boolean flag never consumes
// the following argument. Everything after a "--" terminator is dropped.
func Known(fs *flag.FlagSet, args []string) []string {
	out := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}

		name, ok := flagName(arg)
		if !ok {
			continue
		}

		if n, _, hasValue := strings.Cut(name, "="); hasValue {
			if fs.Lookup(n) != nil {
				out = append(out, arg)
			}
			continue
		}

		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		out = append(out, arg)

		if bf, isBool := f.Value.(boolFlag); isBool && bf.IsBoolFlag() {
			continue
		}
		if i+1 < len(args) {
			if _, next := flagName(args[i+1]); !next {
				out = append(out, args[i+1])
				i++
			}
		}
	}

	return out
}

// ConfigPath returns the JSON config file named by -c or -config in args,
// or "" when neither is present. The last occurrence wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(Known(fs, args))

	return path
}
