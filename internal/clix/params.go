// Package clix holds small helpers shared by the CLI commands: flag list
// parsing and terminal confirmation.
package clix

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// ParseColumns reads the comma separated --columns flag into a clean slice.
func ParseColumns(flags *pflag.FlagSet) []string {
	raw, _ := flags.GetString("columns")
	return SplitList(raw)
}

// SplitList splits a comma separated list, trimming whitespace and dropping
// empty entries.
func SplitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Confirm asks a yes/no question and reads one line, defaulting to no.
func Confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
