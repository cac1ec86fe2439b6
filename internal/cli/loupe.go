package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libmarket-go/diamond"
	"github.com/bitfsorg/libmarket-go/storage"
)

// FacetView is the printable form of a registered facet.
type FacetView struct {
	Address   string   `json:"address"`
	Name      string   `json:"name"`
	Selectors []string `json:"selectors"`
}

func facetViews(infos []diamond.FacetInfo) []FacetView {
	out := make([]FacetView, 0, len(infos))
	for _, fi := range infos {
		out = append(out, FacetView{
			Address:   fi.Address.Hex(),
			Name:      fi.Name,
			Selectors: selectorStrings(fi.Selectors),
		})
	}
	return out
}

func selectorStrings(sels []storage.Selector) []string {
	out := make([]string, 0, len(sels))
	for _, s := range sels {
		out = append(out, s.String())
	}
	return out
}

// NewLoupeCommand creates the loupe command group.
func NewLoupeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loupe",
		Short: "Inspect the diamond's routing table",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "facets",
		Short: "List registered facets and their selectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNode(rootOpts, false, func(n *node) error {
				views := facetViews(n.d.Facets())
				return newPrinter(rootOpts, cmd.OutOrStdout()).Print(views, func(w io.Writer) {
					row(w, "ADDRESS", "NAME", "SELECTORS")
					for _, v := range views {
						row(w, v.Address, v.Name, len(v.Selectors))
					}
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "selectors <facet-address|facet-name>",
		Short: "List the selectors routed to one facet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			facet := parseFacet(args[0])
			return withNode(rootOpts, false, func(n *node) error {
				sels := selectorStrings(n.d.FacetFunctionSelectors(facet))
				return newPrinter(rootOpts, cmd.OutOrStdout()).Print(sels, func(w io.Writer) {
					for _, s := range sels {
						row(w, s)
					}
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "resolve <selector|signature>",
		Short: "Show the facet a selector is routed to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSelector(args[0])
			if err != nil {
				return err
			}
			return withNode(rootOpts, false, func(n *node) error {
				addr := n.d.FacetAddress(sel)
				res := FacetView{Address: addr.Hex(), Selectors: []string{sel.String()}}
				for _, fi := range n.d.Facets() {
					if fi.Address == addr {
						res.Name = fi.Name
					}
				}
				return newPrinter(rootOpts, cmd.OutOrStdout()).Print(res, func(w io.Writer) {
					row(w, "selector", sel.String())
					row(w, "facet", res.Address)
					if res.Name != "" {
						row(w, "name", res.Name)
					}
				})
			})
		},
	})

	return cmd
}
