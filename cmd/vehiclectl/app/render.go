package app

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
)

var (
	good = color.New(color.FgGreen).SprintFunc()
	bad  = color.New(color.FgRed).SprintFunc()
	warn = color.New(color.FgYellow).SprintFunc()
)

func newTable(header ...any) *uitable.Table {
	t := uitable.New()
	t.MaxColWidth = 80
	t.Wrap = true
	if len(header) > 0 {
		t.AddRow(header...)
	}
	return t
}

func flush(w io.Writer, t *uitable.Table) error {
	_, err := fmt.Fprintln(w, t)
	return err
}

// paint colors health statuses and availability states.
func paint(s string) string {
	switch s {
	case "UP", "CORRECT", "ACCEPTING_TRAFFIC", "true":
		return good(s)
	case "DOWN", "BROKEN", "false":
		return bad(s)
	default:
		return warn(s)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
