package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfsorg/libmarket-go/config"
)

// InitResult is the output of the init command.
type InitResult struct {
	DataDir     string `json:"data_dir"`
	Owner       string `json:"owner"`
	Version     uint64 `json:"version"`
	Facets      int    `json:"facets"`
	Collections int    `json:"collections"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		owner       string
		feeRate     string
		network     string
		collections []string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the data directory and install the marketplace",
		Long: `Write a configuration file if none exists, open the store and route
every marketplace selector in one cut. Running init again only applies what
changed and allow-lists any new collections.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.cfg
			if cmd.Flags().Changed("owner") {
				cfg.Owner = owner
			}
			if cmd.Flags().Changed("fee-rate") {
				cfg.DefaultFeeRate = feeRate
			}
			if cmd.Flags().Changed("network") {
				cfg.Network = network
			}
			if err := config.ValidateConfig(cfg); err != nil {
				return err
			}
			if cfg.Owner == "" {
				return errNoOwner
			}

			path := config.ConfigPath(cfg.DataDir)
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if err := config.SaveConfig(path, cfg); err != nil {
					return err
				}
				zap.L().Info("config written", zap.String("path", path))
			}
			rootOpts.cfg = cfg

			var allowed []common.Address
			for _, c := range collections {
				addr, err := parseAddress(c)
				if err != nil {
					return err
				}
				allowed = append(allowed, addr)
			}

			return withNode(rootOpts, true, func(n *node) error {
				if err := n.install(cmd.Context(), allowed); err != nil {
					return fmt.Errorf("install marketplace: %w", err)
				}
				res := InitResult{
					DataDir:     cfg.DataDir,
					Owner:       n.d.Owner().Hex(),
					Version:     n.d.Version(),
					Facets:      len(n.d.Facets()),
					Collections: len(allowed),
				}
				zap.L().Info("marketplace installed",
					zap.String("owner", res.Owner),
					zap.Uint64("version", res.Version))
				return newPrinter(rootOpts, cmd.OutOrStdout()).Print(res, func(w io.Writer) {
					row(w, "data dir", res.DataDir)
					row(w, "owner", res.Owner)
					row(w, "version", res.Version)
					row(w, "facets", res.Facets)
				})
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "contract owner address")
	cmd.Flags().StringVar(&feeRate, "fee-rate", "0", "default fee rate in percent")
	cmd.Flags().StringVar(&network, "network", "mainnet", "network name (mainnet|testnet|local)")
	cmd.Flags().StringArrayVar(&collections, "collection", nil, "collection to allow-list (repeatable)")

	return cmd
}
