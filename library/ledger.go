package library

import "sort"

// Ledger owns one Account per holder. Accounts are created and destroyed in
// lockstep with Directory entries by the Engine.
type Ledger struct {
	accounts map[int]*Account
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[int]*Account)}
}

// Open creates an empty account for the holder. Opening over an existing
// account replaces it; the Engine guards against that through the Directory.
func (l *Ledger) Open(holderID int) *Account {
	account := NewAccount(holderID)
	l.accounts[holderID] = account
	return account
}

// Put installs a fully reconstructed account, replacing any existing one.
// Used by the persistence load path.
func (l *Ledger) Put(account *Account) { l.accounts[account.HolderID] = account }

// Close removes the holder's account along with any loans and fines it
// still carries.
func (l *Ledger) Close(holderID int) { delete(l.accounts, holderID) }

// Get looks up a holder's account.
func (l *Ledger) Get(holderID int) (*Account, error) {
	account, ok := l.accounts[holderID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// HolderOf finds which account currently holds the item on active loan.
func (l *Ledger) HolderOf(itemID int) (*Account, bool) {
	for _, account := range l.accounts {
		if _, ok := account.ActiveLoan(itemID); ok {
			return account, true
		}
	}
	return nil, false
}

// All returns every account ordered by holder id.
func (l *Ledger) All() []*Account {
	out := make([]*Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HolderID < out[j].HolderID })
	return out
}

// Clear drops all accounts. Used when reloading state from disk.
func (l *Ledger) Clear() { l.accounts = make(map[int]*Account) }
