package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libmarket-go/storage"
)

// EntryView is the printable form of a listing, request or offer.
type EntryView struct {
	ID           uint64            `json:"id"`
	Kind         string            `json:"kind"`
	Collection   string            `json:"collection"`
	ItemID       string            `json:"item_id"`
	Index        uint64            `json:"index"`
	Owner        string            `json:"owner"`
	Counterparty string            `json:"counterparty,omitempty"`
	Quantity     uint64            `json:"quantity"`
	Remaining    uint64            `json:"remaining"`
	Price        string            `json:"price"`
	CurrentPrice string            `json:"current_price,omitempty"`
	PaymentToken string            `json:"payment_token"`
	Escrow       string            `json:"escrow,omitempty"`
	Deadline     uint64            `json:"deadline,omitempty"`
	Version      uint64            `json:"version"`
	Closed       bool              `json:"closed"`
	Extra        map[string]string `json:"extra,omitempty"`
}

func (v EntryView) print(w io.Writer) {
	row(w, "id", v.ID)
	row(w, "kind", v.Kind)
	row(w, "collection", v.Collection)
	row(w, "item", v.ItemID)
	row(w, "index", v.Index)
	row(w, "owner", v.Owner)
	if v.Counterparty != "" {
		row(w, "counterparty", v.Counterparty)
	}
	row(w, "quantity", v.Quantity)
	row(w, "remaining", v.Remaining)
	row(w, "price", v.Price)
	if v.CurrentPrice != "" {
		row(w, "current price", v.CurrentPrice)
	}
	row(w, "payment token", v.PaymentToken)
	if v.Escrow != "" {
		row(w, "escrow", v.Escrow)
	}
	if v.Deadline != 0 {
		row(w, "deadline", v.Deadline)
	}
	row(w, "version", v.Version)
	row(w, "closed", v.Closed)
	for _, k := range sortedKeys(v.Extra) {
		row(w, k, v.Extra[k])
	}
}

func listingView(l *storage.Listing, decimals int32) EntryView {
	v := EntryView{
		ID:           l.ID,
		Kind:         l.Kind.String(),
		Collection:   l.Collection.Hex(),
		ItemID:       l.ItemID.String(),
		Index:        l.Index,
		Owner:        l.Seller.Hex(),
		Quantity:     l.Quantity,
		Remaining:    l.Remaining,
		Price:        FormatUnits(l.Price, decimals),
		PaymentToken: l.PaymentToken.Hex(),
		Deadline:     l.Deadline,
		Version:      l.Version,
		Closed:       l.Closed,
		Extra:        map[string]string{},
	}
	if l.Dutch != nil {
		v.Extra["start price"] = FormatUnits(l.Dutch.StartPrice, decimals)
		v.Extra["floor price"] = FormatUnits(l.Dutch.EndPrice, decimals)
		v.Extra["duration"] = strconv.FormatUint(l.Dutch.Duration, 10)
	}
	if e := l.English; e != nil {
		v.Extra["min increment"] = FormatUnits(e.MinIncrement, decimals)
		v.Extra["bids"] = strconv.FormatUint(e.BidCount, 10)
		if e.HighestBid != nil {
			v.Extra["highest bid"] = FormatUnits(e.HighestBid, decimals)
			v.Extra["highest bidder"] = e.HighestBidder.Hex()
		}
	}
	if s := l.Sealed; s != nil {
		v.Extra["bid end"] = strconv.FormatUint(s.BidEnd, 10)
		v.Extra["reveal end"] = strconv.FormatUint(s.RevealEnd, 10)
		v.Extra["close end"] = strconv.FormatUint(s.CloseEnd, 10)
		v.Extra["bids"] = strconv.Itoa(len(s.Bidders))
	}
	if len(v.Extra) == 0 {
		v.Extra = nil
	}
	return v
}

func requestView(r *storage.Request, decimals int32) EntryView {
	v := EntryView{
		ID:           r.ID,
		Kind:         r.Kind.String(),
		Collection:   r.Collection.Hex(),
		ItemID:       r.ItemID.String(),
		Index:        r.Index,
		Owner:        r.Requester.Hex(),
		Quantity:     r.Quantity,
		Remaining:    r.Remaining,
		Price:        FormatUnits(r.Price, decimals),
		PaymentToken: r.PaymentToken.Hex(),
		Escrow:       FormatUnits(r.Escrow, decimals),
		Deadline:     r.Deadline,
		Version:      r.Version,
		Closed:       r.Closed,
	}
	if r.Dutch != nil {
		v.Extra = map[string]string{
			"start price": FormatUnits(r.Dutch.StartPrice, decimals),
			"max price":   FormatUnits(r.Dutch.EndPrice, decimals),
			"duration":    strconv.FormatUint(r.Dutch.Duration, 10),
		}
	}
	return v
}

func offerView(o *storage.Offer, decimals int32) EntryView {
	return EntryView{
		ID:           o.ID,
		Kind:         "offer",
		Collection:   o.Collection.Hex(),
		ItemID:       o.ItemID.String(),
		Index:        o.Index,
		Owner:        o.Requester.Hex(),
		Counterparty: o.Counterparty.Hex(),
		Quantity:     o.Quantity,
		Remaining:    o.Quantity,
		Price:        FormatUnits(o.Price, decimals),
		PaymentToken: o.PaymentToken.Hex(),
		Escrow:       FormatUnits(o.Escrow, decimals),
		Deadline:     o.Deadline,
		Version:      o.Version,
		Closed:       o.Closed,
	}
}

// NewListingCommand creates the listing command.
func NewListingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "listing <kind> <collection> <item-id> <index>",
		Short: "Show one listing",
		Long:  "Show one listing. Kinds: standard, timer, dutch, english, sealed-bid.",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseListingKind(args[0])
			if err != nil {
				return err
			}
			slot, err := parseSlot(args[1:])
			if err != nil {
				return err
			}
			return withNode(rootOpts, false, func(n *node) error {
				l, err := n.client.GetListing(cmd.Context(), kind, slot)
				if err != nil {
					return err
				}
				v := listingView(l, rootOpts.Decimals)
				if kind == storage.ListingDutch && !l.Closed {
					p, err := n.client.GetDutchListingPrice(cmd.Context(), slot)
					if err != nil {
						return err
					}
					v.CurrentPrice = FormatUnits(p, rootOpts.Decimals)
				}
				return newPrinter(rootOpts, cmd.OutOrStdout()).Print(v, v.print)
			})
		},
	}
}

// NewRequestCommand creates the request command.
func NewRequestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "request <kind> <collection> <item-id> <index>",
		Short: "Show one request",
		Long:  "Show one request. Kinds: standard, timer, dutch, amount.",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseRequestKind(args[0])
			if err != nil {
				return err
			}
			slot, err := parseSlot(args[1:])
			if err != nil {
				return err
			}
			return withNode(rootOpts, false, func(n *node) error {
				r, err := n.client.GetRequest(cmd.Context(), kind, slot)
				if err != nil {
					return err
				}
				v := requestView(r, rootOpts.Decimals)
				if kind == storage.RequestDutch && !r.Closed {
					p, err := n.client.GetDutchRequestPrice(cmd.Context(), slot)
					if err != nil {
						return err
					}
					v.CurrentPrice = FormatUnits(p, rootOpts.Decimals)
				}
				return newPrinter(rootOpts, cmd.OutOrStdout()).Print(v, v.print)
			})
		},
	}
}

// NewOfferCommand creates the offer command.
func NewOfferCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "offer <requester> <counterparty> <index>",
		Short: "Show one direct offer",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			requester, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			counterparty, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			index, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[2], err)
			}
			return withNode(rootOpts, false, func(n *node) error {
				o, err := n.client.GetOffer(cmd.Context(), requester, counterparty, index)
				if err != nil {
					return err
				}
				v := offerView(o, rootOpts.Decimals)
				return newPrinter(rootOpts, cmd.OutOrStdout()).Print(v, v.print)
			})
		},
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
