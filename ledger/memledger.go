package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemLedger is an in-memory multi-token and payment ledger with a write
// journal. It serves as the host ledger in tests, the CLI sandbox and
// embedded deployments.
type MemLedger struct {
	mu         sync.Mutex
	items      map[common.Address]map[string]map[common.Address]*big.Int // collection -> id -> owner
	operators  map[common.Address]map[common.Address]map[common.Address]bool
	funds      map[common.Address]map[common.Address]*big.Int // token -> owner
	allowances map[common.Address]map[common.Address]map[common.Address]*big.Int
	hooks      map[common.Address]ReceiveHook
	journal    []func()
}

// NewMemLedger creates an empty ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{
		items:      make(map[common.Address]map[string]map[common.Address]*big.Int),
		operators:  make(map[common.Address]map[common.Address]map[common.Address]bool),
		funds:      make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]map[common.Address]*big.Int),
		hooks:      make(map[common.Address]ReceiveHook),
	}
}

// Compile-time interface checks.
var (
	_ AssetLedger   = (*MemLedger)(nil)
	_ PaymentLedger = (*MemLedger)(nil)
	_ Journal       = (*MemLedger)(nil)
)

func validAmount(v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ---------------------------------------------------------------------------
// Journal
// ---------------------------------------------------------------------------

// Snapshot returns an identifier for the current ledger state.
func (m *MemLedger) Snapshot() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.journal)
}

// RevertToSnapshot undoes every write made after the snapshot was taken.
func (m *MemLedger) RevertToSnapshot(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.journal) > id {
		undo := m.journal[len(m.journal)-1]
		m.journal = m.journal[:len(m.journal)-1]
		undo()
	}
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

func (m *MemLedger) itemBalance(collection common.Address, id *big.Int, owner common.Address) *big.Int {
	if b := m.items[collection][id.String()][owner]; b != nil {
		return b
	}
	return new(big.Int)
}

// setItemBalance writes a balance and journals the previous value. Caller holds mu.
func (m *MemLedger) setItemBalance(collection common.Address, id *big.Int, owner common.Address, v *big.Int) {
	key := id.String()
	if m.items[collection] == nil {
		m.items[collection] = make(map[string]map[common.Address]*big.Int)
	}
	if m.items[collection][key] == nil {
		m.items[collection][key] = make(map[common.Address]*big.Int)
	}
	prev := m.items[collection][key][owner]
	m.items[collection][key][owner] = v
	m.journal = append(m.journal, func() {
		if prev == nil {
			delete(m.items[collection][key], owner)
			return
		}
		m.items[collection][key][owner] = prev
	})
}

// Mint credits qty of item id to owner.
func (m *MemLedger) Mint(collection, to common.Address, id, qty *big.Int) error {
	if err := validAmount(qty); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setItemBalance(collection, id, to, new(big.Int).Add(m.itemBalance(collection, id, to), qty))
	return nil
}

// MintBatch credits several item ids to owner.
func (m *MemLedger) MintBatch(collection, to common.Address, ids, qtys []*big.Int) error {
	if len(ids) != len(qtys) {
		return ErrLengthMismatch
	}
	for i := range ids {
		if err := m.Mint(collection, to, ids[i], qtys[i]); err != nil {
			return err
		}
	}
	return nil
}

// SetApprovalForAll grants or revokes operator's right to move owner's items.
func (m *MemLedger) SetApprovalForAll(collection, owner, operator common.Address, approved bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.operators[collection] == nil {
		m.operators[collection] = make(map[common.Address]map[common.Address]bool)
	}
	if m.operators[collection][owner] == nil {
		m.operators[collection][owner] = make(map[common.Address]bool)
	}
	prev := m.operators[collection][owner][operator]
	m.operators[collection][owner][operator] = approved
	m.journal = append(m.journal, func() { m.operators[collection][owner][operator] = prev })
}

// SetReceiveHook registers a hook called when items arrive at addr.
// A nil hook removes the registration.
func (m *MemLedger) SetReceiveHook(addr common.Address, hook ReceiveHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hook == nil {
		delete(m.hooks, addr)
		return
	}
	m.hooks[addr] = hook
}

// BalanceOf returns owner's quantity of item id in collection.
func (m *MemLedger) BalanceOf(_ context.Context, collection, owner common.Address, id *big.Int) (*big.Int, error) {
	if id == nil {
		return nil, ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.itemBalance(collection, id, owner)), nil
}

// IsApprovedForAll reports whether operator may move all of owner's items.
func (m *MemLedger) IsApprovedForAll(_ context.Context, collection, owner, operator common.Address) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.operators[collection][owner][operator], nil
}

// moveItem performs one checked item transfer. Caller holds mu.
func (m *MemLedger) moveItem(collection, operator, from, to common.Address, id, qty *big.Int) error {
	if id == nil {
		return ErrInvalidAmount
	}
	if err := validAmount(qty); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if operator != from && !m.operators[collection][from][operator] {
		return fmt.Errorf("%w: %s for %s", ErrNotApproved, operator.Hex(), from.Hex())
	}
	have := m.itemBalance(collection, id, from)
	if have.Cmp(qty) < 0 {
		return fmt.Errorf("%w: item %s has %s, need %s", ErrInsufficientBalance, id, have, qty)
	}
	m.setItemBalance(collection, id, from, new(big.Int).Sub(have, qty))
	m.setItemBalance(collection, id, to, new(big.Int).Add(m.itemBalance(collection, id, to), qty))
	return nil
}

// SafeTransferFrom moves qty of item id and then calls the recipient's
// receive hook, if any, without holding the ledger lock. A rejecting hook
// rolls back the transfer and everything the hook itself wrote.
func (m *MemLedger) SafeTransferFrom(ctx context.Context, collection, operator, from, to common.Address, id, qty *big.Int) error {
	m.mu.Lock()
	mark := len(m.journal)
	err := m.moveItem(collection, operator, from, to, id, qty)
	hook := m.hooks[to]
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		if err := hook(ctx, operator, from, id, qty); err != nil {
			m.RevertToSnapshot(mark)
			return fmt.Errorf("%w: %w", ErrTransferRejected, err)
		}
	}
	return nil
}

// SafeBatchTransferFrom moves several item ids; either all move or none do.
func (m *MemLedger) SafeBatchTransferFrom(ctx context.Context, collection, operator, from, to common.Address, ids, qtys []*big.Int) error {
	if len(ids) != len(qtys) {
		return ErrLengthMismatch
	}
	m.mu.Lock()
	mark := len(m.journal)
	for i := range ids {
		if err := m.moveItem(collection, operator, from, to, ids[i], qtys[i]); err != nil {
			for len(m.journal) > mark {
				undo := m.journal[len(m.journal)-1]
				m.journal = m.journal[:len(m.journal)-1]
				undo()
			}
			m.mu.Unlock()
			return err
		}
	}
	hook := m.hooks[to]
	m.mu.Unlock()

	if hook != nil {
		for i := range ids {
			if err := hook(ctx, operator, from, ids[i], qtys[i]); err != nil {
				m.RevertToSnapshot(mark)
				return fmt.Errorf("%w: %w", ErrTransferRejected, err)
			}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Payments
// ---------------------------------------------------------------------------

func (m *MemLedger) fundBalance(token, owner common.Address) *big.Int {
	if b := m.funds[token][owner]; b != nil {
		return b
	}
	return new(big.Int)
}

func (m *MemLedger) setFundBalance(token, owner common.Address, v *big.Int) {
	if m.funds[token] == nil {
		m.funds[token] = make(map[common.Address]*big.Int)
	}
	prev := m.funds[token][owner]
	m.funds[token][owner] = v
	m.journal = append(m.journal, func() {
		if prev == nil {
			delete(m.funds[token], owner)
			return
		}
		m.funds[token][owner] = prev
	})
}

// Credit adds amount of token to owner's balance.
func (m *MemLedger) Credit(token, owner common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setFundBalance(token, owner, new(big.Int).Add(m.fundBalance(token, owner), amount))
	return nil
}

// Approve sets spender's allowance over owner's token balance.
func (m *MemLedger) Approve(token, owner, spender common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setAllowance(token, owner, spender, new(big.Int).Set(amount))
	return nil
}

func (m *MemLedger) setAllowance(token, owner, spender common.Address, v *big.Int) {
	if m.allowances[token] == nil {
		m.allowances[token] = make(map[common.Address]map[common.Address]*big.Int)
	}
	if m.allowances[token][owner] == nil {
		m.allowances[token][owner] = make(map[common.Address]*big.Int)
	}
	prev := m.allowances[token][owner][spender]
	m.allowances[token][owner][spender] = v
	m.journal = append(m.journal, func() {
		if prev == nil {
			delete(m.allowances[token][owner], spender)
			return
		}
		m.allowances[token][owner][spender] = prev
	})
}

// Balance returns owner's balance of token.
func (m *MemLedger) Balance(_ context.Context, token, owner common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.fundBalance(token, owner)), nil
}

// Allowance returns spender's remaining allowance over owner's token balance.
func (m *MemLedger) Allowance(_ context.Context, token, owner, spender common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a := m.allowances[token][owner][spender]; a != nil {
		return new(big.Int).Set(a), nil
	}
	return new(big.Int), nil
}

// moveFunds performs one checked balance transfer. Caller holds mu.
func (m *MemLedger) moveFunds(token, from, to common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	have := m.fundBalance(token, from)
	if have.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, need %s", ErrInsufficientBalance, from.Hex(), have, amount)
	}
	m.setFundBalance(token, from, new(big.Int).Sub(have, amount))
	m.setFundBalance(token, to, new(big.Int).Add(m.fundBalance(token, to), amount))
	return nil
}

// Transfer moves amount of from's own funds to to.
func (m *MemLedger) Transfer(_ context.Context, token, from, to common.Address, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moveFunds(token, from, to, amount)
}

// TransferFrom pulls amount from from using spender's allowance.
func (m *MemLedger) TransferFrom(_ context.Context, token, spender, from, to common.Address, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := m.allowances[token][from][spender]
	if spender != from {
		if allowed == nil || allowed.Cmp(amount) < 0 {
			return fmt.Errorf("%w: %s may pull %v from %s, need %s",
				ErrInsufficientAllowance, spender.Hex(), allowed, from.Hex(), amount)
		}
	}
	if err := m.moveFunds(token, from, to, amount); err != nil {
		return err
	}
	if spender != from {
		m.setAllowance(token, from, spender, new(big.Int).Sub(allowed, amount))
	}
	return nil
}
