package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// Printer writes command results as aligned text or JSON.
type Printer struct {
	Format string
	Writer io.Writer
}

func newPrinter(opts *RootOptions, w io.Writer) *Printer {
	return &Printer{Format: opts.Format, Writer: w}
}

// Print emits data as indented JSON, or calls text with a tab-aligned
// writer in text mode.
func (p *Printer) Print(data any, text func(w io.Writer)) error {
	if p.Format == "json" {
		enc := json.NewEncoder(p.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	tw := tabwriter.NewWriter(p.Writer, 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

// row writes tab-separated cells followed by a newline.
func row(w io.Writer, cells ...any) {
	for i, c := range cells {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}
