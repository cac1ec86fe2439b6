package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/libmarket-go/fees"
	"github.com/bitfsorg/libmarket-go/market"
	"github.com/bitfsorg/libmarket-go/storage"
)

// FeeView is the printable form of a collection fee configuration.
type FeeView struct {
	Collection    string            `json:"collection"`
	Rate          string            `json:"rate_percent"`
	Beneficiaries []BeneficiaryView `json:"beneficiaries"`
	Version       uint64            `json:"version"`
}

// BeneficiaryView is one fee beneficiary.
type BeneficiaryView struct {
	Address string `json:"address"`
	Share   string `json:"share_percent"`
}

func feeView(cfg *storage.FeeConfig) FeeView {
	v := FeeView{
		Collection: cfg.Collection.Hex(),
		Rate:       fees.FormatPercent(cfg.Rate),
		Version:    cfg.Version,
	}
	for _, b := range cfg.Beneficiaries {
		v.Beneficiaries = append(v.Beneficiaries, BeneficiaryView{Address: b.Address.Hex(), Share: fees.FormatPercent(b.Share)})
	}
	return v
}

// QuoteView is the outcome of splitting a gross amount.
type QuoteView struct {
	Gross   string            `json:"gross"`
	Fee     string            `json:"fee"`
	Net     string            `json:"net"`
	Payouts []BeneficiaryView `json:"payouts"`
}

// parseBeneficiary reads "address=percent".
func parseBeneficiary(s string) (common.Address, *big.Int, error) {
	addr, pct, ok := strings.Cut(s, "=")
	if !ok {
		return common.Address{}, nil, fmt.Errorf("invalid beneficiary %q: want address=percent", s)
	}
	a, err := parseAddress(addr)
	if err != nil {
		return common.Address{}, nil, err
	}
	share, err := fees.ParsePercent(pct)
	if err != nil {
		return common.Address{}, nil, err
	}
	return a, share, nil
}

// NewFeesCommand creates the fees command group.
func NewFeesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Inspect and administer collection fees",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <collection>",
		Short: "Show a collection's fee configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			return withNode(rootOpts, false, func(n *node) error {
				cfg, err := n.client.GetCollectionFees(cmd.Context(), collection)
				if err != nil {
					return err
				}
				v := feeView(cfg)
				return newPrinter(rootOpts, cmd.OutOrStdout()).Print(v, func(w io.Writer) {
					row(w, "collection", v.Collection)
					row(w, "rate", v.Rate+"%")
					row(w, "version", v.Version)
					for _, b := range v.Beneficiaries {
						row(w, "beneficiary", b.Address, b.Share+"%")
					}
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "quote <collection> <amount>",
		Short: "Split a gross amount using a collection's fee configuration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			gross, err := ParseUnits(args[1], rootOpts.Decimals)
			if err != nil {
				return err
			}
			return withNode(rootOpts, false, func(n *node) error {
				cfg, err := n.client.GetCollectionFees(cmd.Context(), collection)
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("%w: %s", market.ErrFeeConfigurationInvalid, collection.Hex())
				}
				if err != nil {
					return err
				}
				split, err := fees.Distribute(gross, cfg)
				if err != nil {
					return err
				}
				d := rootOpts.Decimals
				v := QuoteView{
					Gross: FormatUnits(split.Gross, d),
					Fee:   FormatUnits(split.Fee, d),
					Net:   FormatUnits(split.Net, d),
				}
				for _, p := range split.Payouts {
					v.Payouts = append(v.Payouts, BeneficiaryView{Address: p.Address.Hex(), Share: FormatUnits(p.Amount, d)})
				}
				return newPrinter(rootOpts, cmd.OutOrStdout()).Print(v, func(w io.Writer) {
					row(w, "gross", v.Gross)
					row(w, "fee", v.Fee)
					row(w, "net", v.Net)
					for _, p := range v.Payouts {
						row(w, "payout", p.Address, p.Share)
					}
				})
			})
		},
	})

	var beneficiaries []string
	set := &cobra.Command{
		Use:   "set <collection>",
		Short: "Replace a collection's fee beneficiaries (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			in := market.SetCollectionFeesArgs{Collection: collection}
			for _, b := range beneficiaries {
				addr, share, err := parseBeneficiary(b)
				if err != nil {
					return err
				}
				in.Actors = append(in.Actors, addr)
				in.Percentages = append(in.Percentages, share)
			}
			return withNode(rootOpts, false, func(n *node) error {
				from, err := n.asOwner()
				if err != nil {
					return err
				}
				return n.client.SetCollectionFeeActorsAndPercentages(cmd.Context(), from, in)
			})
		},
	}
	set.Flags().StringArrayVar(&beneficiaries, "beneficiary", nil, "address=percent (repeatable, shares must total 100)")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:   "rate <collection> <percent>",
		Short: "Set a collection's fee rate (owner only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			rate, err := fees.ParsePercent(args[1])
			if err != nil {
				return err
			}
			return withNode(rootOpts, false, func(n *node) error {
				from, err := n.asOwner()
				if err != nil {
					return err
				}
				return n.client.SetCollectionFeeRate(cmd.Context(), from, market.SetCollectionFeeRateArgs{Collection: collection, Rate: rate})
			})
		},
	})

	return cmd
}

// NewCollectionsCommand creates the collections command group.
func NewCollectionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Administer the collection allow-list (owner only)",
	}
	cmd.AddCommand(collectionCommand(rootOpts, "add", "Allow listings and requests for a collection", (*market.Client).AddListingToken))
	cmd.AddCommand(collectionCommand(rootOpts, "remove", "Disallow new listings and requests for a collection", (*market.Client).RemoveListingToken))
	return cmd
}

type collectionOp func(c *market.Client, ctx context.Context, opts market.CallOpts, collection common.Address) error

func collectionCommand(rootOpts *RootOptions, use, short string, op collectionOp) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <collection>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			return withNode(rootOpts, false, func(n *node) error {
				from, err := n.asOwner()
				if err != nil {
					return err
				}
				return op(n.client, cmd.Context(), from, collection)
			})
		},
	}
}
