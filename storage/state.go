package storage

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RoutingTable maps function selectors to the facet implementing them.
// Facets and FacetSelectors preserve registration order for the loupe.
type RoutingTable struct {
	Selectors      map[Selector]common.Address
	Facets         []common.Address
	FacetSelectors map[common.Address][]Selector
	Immutable      map[Selector]bool
}

// State is the single shared state space of the diamond. Every facet reads
// and writes it through the accessors below; nothing else holds a copy.
type State struct {
	Version uint64 // committed operations
	Seq     uint64 // entity ids and versions
	Owner   common.Address

	Routing RoutingTable

	ListingTokens map[common.Address]bool
	Fees          map[common.Address]*FeeConfig

	Listings     map[uint64]*Listing
	ListingSlots map[string][]uint64
	Requests     map[uint64]*Request
	RequestSlots map[string][]uint64
	Offers       map[uint64]*Offer
	OfferSlots   map[string][]uint64
}

// NewState creates an empty state owned by owner.
func NewState(owner common.Address) *State {
	s := &State{Owner: owner}
	s.ensure()
	return s
}

// ensure initializes nil maps, which gob leaves nil for empty collections.
func (s *State) ensure() {
	if s.Routing.Selectors == nil {
		s.Routing.Selectors = make(map[Selector]common.Address)
	}
	if s.Routing.FacetSelectors == nil {
		s.Routing.FacetSelectors = make(map[common.Address][]Selector)
	}
	if s.Routing.Immutable == nil {
		s.Routing.Immutable = make(map[Selector]bool)
	}
	if s.ListingTokens == nil {
		s.ListingTokens = make(map[common.Address]bool)
	}
	if s.Fees == nil {
		s.Fees = make(map[common.Address]*FeeConfig)
	}
	if s.Listings == nil {
		s.Listings = make(map[uint64]*Listing)
	}
	if s.ListingSlots == nil {
		s.ListingSlots = make(map[string][]uint64)
	}
	if s.Requests == nil {
		s.Requests = make(map[uint64]*Request)
	}
	if s.RequestSlots == nil {
		s.RequestSlots = make(map[string][]uint64)
	}
	if s.Offers == nil {
		s.Offers = make(map[uint64]*Offer)
	}
	if s.OfferSlots == nil {
		s.OfferSlots = make(map[string][]uint64)
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() (*State, error) {
	data, err := EncodeState(s)
	if err != nil {
		return nil, err
	}
	return DecodeState(data)
}

// EncodeState serializes a state snapshot using gob encoding.
func EncodeState(s *State) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrCorruptState, err)
	}
	return buf.Bytes(), nil
}

// DecodeState deserializes a gob-encoded state snapshot.
func DecodeState(data []byte) (*State, error) {
	var s State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrCorruptState, err)
	}
	s.ensure()
	return &s, nil
}

// NextSeq returns the next entity sequence number.
func (s *State) NextSeq() uint64 {
	s.Seq++
	return s.Seq
}

func itemKey(collection common.Address, itemID *big.Int) string {
	id := "0"
	if itemID != nil {
		id = itemID.String()
	}
	return collection.Hex() + "/" + id
}

// ListingSlotKey identifies the slot array of a (kind, collection, item) triple.
func ListingSlotKey(kind ListingKind, collection common.Address, itemID *big.Int) string {
	return kind.String() + "/" + itemKey(collection, itemID)
}

// RequestSlotKey identifies the slot array of a (kind, collection, item) triple.
func RequestSlotKey(kind RequestKind, collection common.Address, itemID *big.Int) string {
	return kind.String() + "/" + itemKey(collection, itemID)
}

// OfferSlotKey identifies the slot array of a (requester, counterparty) pair.
func OfferSlotKey(requester, counterparty common.Address) string {
	return requester.Hex() + "/" + counterparty.Hex()
}

// allocSlot returns the lowest closed slot index, or appends a new one.
func allocSlot(slots []uint64, closed func(id uint64) bool) (uint64, bool) {
	for i, id := range slots {
		if closed(id) {
			return uint64(i), true
		}
	}
	return uint64(len(slots)), false
}

// Listing returns the listing occupying a slot.
func (s *State) Listing(kind ListingKind, collection common.Address, itemID *big.Int, index uint64) (*Listing, error) {
	slots := s.ListingSlots[ListingSlotKey(kind, collection, itemID)]
	if index >= uint64(len(slots)) {
		return nil, fmt.Errorf("%w: %s listing %s #%d", ErrNotFound, kind, itemKey(collection, itemID), index)
	}
	l, ok := s.Listings[slots[index]]
	if !ok {
		return nil, fmt.Errorf("%w: listing id %d", ErrCorruptState, slots[index])
	}
	return l, nil
}

// InsertListing assigns the listing an id, a version and the next free slot.
func (s *State) InsertListing(l *Listing) uint64 {
	key := ListingSlotKey(l.Kind, l.Collection, l.ItemID)
	slots := s.ListingSlots[key]
	idx, reuse := allocSlot(slots, func(id uint64) bool {
		old, ok := s.Listings[id]
		return !ok || old.Closed
	})

	l.ID = s.NextSeq()
	l.Version = l.ID
	l.Index = idx
	if reuse {
		delete(s.Listings, slots[idx])
		slots[idx] = l.ID
	} else {
		slots = append(slots, l.ID)
	}
	s.ListingSlots[key] = slots
	s.Listings[l.ID] = l
	return idx
}

// ListingsOf returns the listings in a slot array, including closed ones.
func (s *State) ListingsOf(kind ListingKind, collection common.Address, itemID *big.Int) []*Listing {
	slots := s.ListingSlots[ListingSlotKey(kind, collection, itemID)]
	out := make([]*Listing, 0, len(slots))
	for _, id := range slots {
		if l, ok := s.Listings[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

// Request returns the request occupying a slot.
func (s *State) Request(kind RequestKind, collection common.Address, itemID *big.Int, index uint64) (*Request, error) {
	slots := s.RequestSlots[RequestSlotKey(kind, collection, itemID)]
	if index >= uint64(len(slots)) {
		return nil, fmt.Errorf("%w: %s request %s #%d", ErrNotFound, kind, itemKey(collection, itemID), index)
	}
	r, ok := s.Requests[slots[index]]
	if !ok {
		return nil, fmt.Errorf("%w: request id %d", ErrCorruptState, slots[index])
	}
	return r, nil
}

// InsertRequest assigns the request an id, a version and the next free slot.
func (s *State) InsertRequest(r *Request) uint64 {
	key := RequestSlotKey(r.Kind, r.Collection, r.ItemID)
	slots := s.RequestSlots[key]
	idx, reuse := allocSlot(slots, func(id uint64) bool {
		old, ok := s.Requests[id]
		return !ok || old.Closed
	})

	r.ID = s.NextSeq()
	r.Version = r.ID
	r.Index = idx
	if reuse {
		delete(s.Requests, slots[idx])
		slots[idx] = r.ID
	} else {
		slots = append(slots, r.ID)
	}
	s.RequestSlots[key] = slots
	s.Requests[r.ID] = r
	return idx
}

// Offer returns the offer occupying a slot.
func (s *State) Offer(requester, counterparty common.Address, index uint64) (*Offer, error) {
	slots := s.OfferSlots[OfferSlotKey(requester, counterparty)]
	if index >= uint64(len(slots)) {
		return nil, fmt.Errorf("%w: offer %s -> %s #%d", ErrNotFound, requester.Hex(), counterparty.Hex(), index)
	}
	o, ok := s.Offers[slots[index]]
	if !ok {
		return nil, fmt.Errorf("%w: offer id %d", ErrCorruptState, slots[index])
	}
	return o, nil
}

// InsertOffer assigns the offer an id, a version and the next free slot.
func (s *State) InsertOffer(o *Offer) uint64 {
	key := OfferSlotKey(o.Requester, o.Counterparty)
	slots := s.OfferSlots[key]
	idx, reuse := allocSlot(slots, func(id uint64) bool {
		old, ok := s.Offers[id]
		return !ok || old.Closed
	})

	o.ID = s.NextSeq()
	o.Version = o.ID
	o.Index = idx
	if reuse {
		delete(s.Offers, slots[idx])
		slots[idx] = o.ID
	} else {
		slots = append(slots, o.ID)
	}
	s.OfferSlots[key] = slots
	s.Offers[o.ID] = o
	return idx
}

// CommittedQuantity sums the quantities seller has tied up in open listings
// of one item, across all kinds, excluding the listing with id exclude and
// listings that have lapsed at now.
func (s *State) CommittedQuantity(seller, collection common.Address, itemID *big.Int, exclude, now uint64) uint64 {
	var total uint64
	for _, l := range s.Listings {
		if l.Closed || l.ID == exclude || l.Seller != seller || l.Collection != collection {
			continue
		}
		if l.Lapsed(now) {
			continue
		}
		if l.ItemID.Cmp(itemID) != 0 {
			continue
		}
		if l.Kind == ListingStandard {
			total += l.Remaining
		} else {
			total += l.Quantity
		}
	}
	return total
}
