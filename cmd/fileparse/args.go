package main

import (
	"flag"
	"strings"
)

// reorderArgs moves flags (and their values) ahead of positional arguments so
// that flag.Parse sees them. Go's flag package stops at the first non-flag
// argument, so "fileparse data.csv -f csv" would otherwise leave -f unparsed.
// Everything after a "--" terminator stays positional.
func reorderArgs(fs *flag.FlagSet, args []string) []string {
	flags := make([]string, 0, len(args))
	var positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if takesValue(fs, name) && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	if len(positional) == 0 {
		return flags
	}
	out := append(flags, "--")
	return append(out, positional...)
}

// takesValue reports whether the named flag consumes the next argument.
// Unknown flags are assumed boolean; flag.Parse reports them anyway.
func takesValue(fs *flag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return false
	}
	return true
}
