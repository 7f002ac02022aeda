package main

import (
	"errors"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func requireExactlyArgs(count int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != count {
			return errors.New(message)
		}
		return nil
	}
}

func requireAtMostArgs(count int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) > count {
			return errors.New(message)
		}
		return nil
	}
}

// exactlyOneOf reports an error unless exactly one of the named flag values
// is non-empty.
func exactlyOneOf(values map[string]string) error {
	set := 0
	names := make([]string, 0, len(values))
	for name, value := range values {
		names = append(names, "--"+name)
		if strings.TrimSpace(value) != "" {
			set++
		}
	}
	if set == 1 {
		return nil
	}
	sort.Strings(names)
	return errors.New("exactly one of " + strings.Join(names, " or ") + " is required")
}
