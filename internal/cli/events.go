package cli

import (
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libmarket-go/storage"
)

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		from uint64
		name string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print committed events from the store's event log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(rootOpts, false, func(n *node) error {
				evts, err := n.store.Events(from)
				if err != nil {
					return err
				}
				evts = filterEvents(evts, name)
				return newPrinter(rootOpts, cmd.OutOrStdout()).Print(evts, func(w io.Writer) {
					row(w, "VERSION", "TIME", "EVENT", "FIELDS")
					for _, e := range evts {
						row(w, e.StateVersion, e.Timestamp, e.Name, formatFields(e.Fields))
					}
				})
			})
		},
	}

	cmd.Flags().Uint64Var(&from, "from", 0, "first state version to print")
	cmd.Flags().StringVar(&name, "name", "", "only print events with this name")

	return cmd
}

func filterEvents(evts []storage.Event, name string) []storage.Event {
	if name == "" {
		return evts
	}
	out := evts[:0]
	for _, e := range evts {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func formatFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}
	return strings.Join(parts, " ")
}
