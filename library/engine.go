package library

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Engine orchestrates the Catalog, Directory, and Ledger to run the lending
// lifecycle. Every mutating operation is write-through: after it succeeds the
// whole state is re-serialized to disk. A failed save is logged and the
// in-memory state stays authoritative for the rest of the session.
//
// The engine assumes exclusive, single-session access; no locking happens here.
type Engine struct {
	catalog   *Catalog
	directory *Directory
	ledger    *Ledger
	store     *Store
	logger    zerolog.Logger

	// now is swappable so tests can pin the clock.
	now func() time.Time
}

// NewEngine creates an engine with empty state backed by the given store.
func NewEngine(store *Store, logger zerolog.Logger) *Engine {
	return &Engine{
		catalog:   NewCatalog(),
		directory: NewDirectory(),
		ledger:    NewLedger(),
		store:     store,
		logger:    logger.With().Str("component", "engine").Logger(),
		now:       time.Now,
	}
}

// LoadAll replaces the in-memory state with whatever the store holds.
// Called once at startup and at the presentation layer's checkpoints.
func (e *Engine) LoadAll() error {
	return e.store.LoadAll(e.catalog, e.directory, e.ledger)
}

// SaveAll rewrites the full persisted state. Unlike the implicit write-through
// saves, the error is returned so checkpoint callers can surface it.
func (e *Engine) SaveAll() error {
	return e.store.SaveAll(e.catalog, e.directory, e.ledger)
}

// persist is the write-through save after a mutation. Storage trouble is
// logged and swallowed: the session keeps operating on in-memory state.
func (e *Engine) persist() {
	if err := e.store.SaveAll(e.catalog, e.directory, e.ledger); err != nil {
		e.logger.Error().Err(err).Msg("write-through save failed; continuing in memory")
	}
}

// ------------------ Authentication ------------------

// Authenticate verifies a holder's credential and returns the holder.
func (e *Engine) Authenticate(holderID int, secret string) (*Holder, error) {
	holder, err := e.directory.Get(holderID)
	if err != nil {
		return nil, err
	}
	if !e.directory.VerifyCredential(holderID, secret) {
		e.logger.Debug().Int("holder_id", holderID).Msg("credential mismatch")
		return nil, ErrInvalidCredentials
	}
	return holder, nil
}

// ------------------ Catalog management ------------------

// AddItem registers a new item.
func (e *Engine) AddItem(item *Item) error {
	if err := e.catalog.Add(item); err != nil {
		return fmt.Errorf("%w: item %d", err, item.ID)
	}
	e.logger.Info().Int("item_id", item.ID).Str("title", item.Title).Msg("item added")
	e.persist()
	return nil
}

// RemoveItem deletes an item, silently dropping any pending reservations.
func (e *Engine) RemoveItem(itemID int) error {
	if err := e.catalog.Remove(itemID); err != nil {
		return err
	}
	e.logger.Info().Int("item_id", itemID).Msg("item removed")
	e.persist()
	return nil
}

// GetItem looks up an item.
func (e *Engine) GetItem(itemID int) (*Item, error) { return e.catalog.Get(itemID) }

// SearchItems returns items whose titles contain the query case-insensitively.
// An empty query lists the whole catalog.
func (e *Engine) SearchItems(query string) []*Item { return e.catalog.Search(query) }

// ListAllItems returns the whole catalog ordered by id.
func (e *Engine) ListAllItems() []*Item { return e.catalog.All() }

// ------------------ Directory management ------------------

// AddHolder registers a holder and opens their empty ledger account.
func (e *Engine) AddHolder(holder *Holder) error {
	if err := e.directory.Add(holder); err != nil {
		return fmt.Errorf("%w: holder %d", err, holder.ID)
	}
	e.ledger.Open(holder.ID)
	e.logger.Info().Int("holder_id", holder.ID).Str("role", holder.Role.String()).Msg("holder added")
	e.persist()
	return nil
}

// RemoveHolder deletes a holder and their account. Active loans and unpaid
// fines are discarded with the account; the items involved stay unavailable
// until the state is reloaded.
func (e *Engine) RemoveHolder(holderID int) error {
	if err := e.directory.Remove(holderID); err != nil {
		return err
	}
	e.ledger.Close(holderID)
	e.logger.Info().Int("holder_id", holderID).Msg("holder removed")
	e.persist()
	return nil
}

// GetHolder looks up a holder.
func (e *Engine) GetHolder(holderID int) (*Holder, error) { return e.directory.Get(holderID) }

// GetHolderProfile returns the holder's role capability set.
func (e *Engine) GetHolderProfile(holderID int) (Profile, error) {
	holder, err := e.directory.Get(holderID)
	if err != nil {
		return Profile{}, err
	}
	return holder.Profile(), nil
}

// GetAccount returns a holder's ledger account.
func (e *Engine) GetAccount(holderID int) (*Account, error) { return e.ledger.Get(holderID) }

// ListHolders returns every holder ordered by id.
func (e *Engine) ListHolders() []*Holder { return e.directory.All() }

// ------------------ Circulation ------------------

// Borrow lends the item to the holder. The due date is the loan start plus
// the role's loan term. An available item with a non-empty reservation queue
// is held for the queue head; borrowing by the head consumes the reservation.
func (e *Engine) Borrow(holderID, itemID int) (LoanRecord, error) {
	holder, err := e.directory.Get(holderID)
	if err != nil {
		return LoanRecord{}, err
	}
	item, err := e.catalog.Get(itemID)
	if err != nil {
		return LoanRecord{}, err
	}
	account, err := e.ledger.Get(holderID)
	if err != nil {
		return LoanRecord{}, err
	}

	profile := holder.Profile()
	if !profile.CanBorrow {
		return LoanRecord{}, fmt.Errorf("%w: role %s cannot borrow", ErrPermissionDenied, holder.Role)
	}
	if !item.AvailableFor(holderID) {
		return LoanRecord{}, ErrUnavailable
	}
	if len(account.Active) >= profile.MaxLoans {
		return LoanRecord{}, fmt.Errorf("%w: limit %d", ErrCapacityExceeded, profile.MaxLoans)
	}
	if _, held := account.ActiveLoan(itemID); held {
		return LoanRecord{}, ErrAlreadyHeld
	}
	if account.Fine > 0 {
		return LoanRecord{}, fmt.Errorf("%w: balance %.2f", ErrUnpaidFine, account.Fine)
	}

	now := e.now()
	loan := LoanRecord{
		ItemID:     itemID,
		BorrowedAt: now,
		DueAt:      now.Add(time.Duration(profile.LoanDays) * 24 * time.Hour),
	}
	item.Available = false
	if head, ok := item.reservations.head(); ok && head == holderID {
		item.reservations.pop()
	}
	account.Active = append(account.Active, loan)

	e.logger.Info().
		Int("holder_id", holderID).
		Int("item_id", itemID).
		Time("due", loan.DueAt).
		Msg("item borrowed")
	e.persist()
	return loan, nil
}

// Return takes the item back from the holder. A late return accrues a fine of
// whole overdue hours times the role's hourly rate. If a reservation queue is
// waiting, the head keeps exclusive priority to borrow next; the item is not
// re-lent automatically.
func (e *Engine) Return(holderID, itemID int) (float64, error) {
	holder, err := e.directory.Get(holderID)
	if err != nil {
		return 0, err
	}
	item, err := e.catalog.Get(itemID)
	if err != nil {
		return 0, err
	}
	account, err := e.ledger.Get(holderID)
	if err != nil {
		return 0, err
	}

	loan, held := account.ActiveLoan(itemID)
	if !held {
		return 0, ErrNotHeld
	}

	var fine float64
	now := e.now()
	if loan.Overdue(now) {
		overdueHours := int(now.Sub(loan.DueAt).Hours())
		fine = float64(overdueHours) * holder.Profile().FineRatePerHour
		account.AddFine(fine)
	}

	account.CloseLoan(itemID)
	item.Available = true
	// The queue is left as is: the head keeps its place, and with it the
	// exclusive right to borrow the item next (AvailableFor enforces that).

	e.logger.Info().
		Int("holder_id", holderID).
		Int("item_id", itemID).
		Float64("fine", fine).
		Msg("item returned")
	e.persist()
	return fine, nil
}

// Reserve appends the holder to the item's reservation queue. The only checks
// here are a missing item and a duplicate reservation; refusing to reserve an
// item that is currently available is the presentation layer's guard.
func (e *Engine) Reserve(holderID, itemID int) error {
	item, err := e.catalog.Get(itemID)
	if err != nil {
		return err
	}
	if !item.reservations.push(holderID) {
		return ErrDuplicateReservation
	}
	e.logger.Info().
		Int("holder_id", holderID).
		Int("item_id", itemID).
		Int("queue_len", item.reservations.len()).
		Msg("item reserved")
	e.persist()
	return nil
}

// CancelReservation removes the holder from the item's queue, preserving the
// relative order of everyone else.
func (e *Engine) CancelReservation(holderID, itemID int) error {
	item, err := e.catalog.Get(itemID)
	if err != nil {
		return err
	}
	if !item.reservations.remove(holderID) {
		return fmt.Errorf("%w: no reservation for holder %d on item %d", ErrNotHeld, holderID, itemID)
	}
	e.logger.Info().Int("holder_id", holderID).Int("item_id", itemID).Msg("reservation cancelled")
	e.persist()
	return nil
}

// PayFine decreases the holder's fine balance, floored at zero. Overpayment
// is accepted silently.
func (e *Engine) PayFine(holderID int, amount float64) (float64, error) {
	account, err := e.ledger.Get(holderID)
	if err != nil {
		return 0, err
	}
	account.PayFine(amount)
	e.logger.Info().
		Int("holder_id", holderID).
		Float64("paid", amount).
		Float64("balance", account.Fine).
		Msg("fine payment")
	e.persist()
	return account.Fine, nil
}

// ------------------ Queries ------------------

// CurrentBorrower returns the holder whose account lists the item as an
// active loan, if any. At most one account can hold an item at a time.
func (e *Engine) CurrentBorrower(itemID int) (*Holder, bool) {
	account, ok := e.ledger.HolderOf(itemID)
	if !ok {
		return nil, false
	}
	holder, err := e.directory.Get(account.HolderID)
	if err != nil {
		return nil, false
	}
	return holder, true
}

// ListHolderReservations returns the items the holder is queued for,
// ordered by item id.
func (e *Engine) ListHolderReservations(holderID int) []*Item {
	var out []*Item
	for _, item := range e.catalog.All() {
		if item.IsReservedBy(holderID) {
			out = append(out, item)
		}
	}
	return out
}

// ListAllActiveLoans pairs every active loan with its item and borrower for
// administrative review. Loans whose item or holder has since been removed
// are skipped.
func (e *Engine) ListAllActiveLoans() []ActiveLoanInfo {
	var out []ActiveLoanInfo
	for _, account := range e.ledger.All() {
		holder, err := e.directory.Get(account.HolderID)
		if err != nil {
			continue
		}
		for _, loan := range account.Active {
			item, err := e.catalog.Get(loan.ItemID)
			if err != nil {
				continue
			}
			out = append(out, ActiveLoanInfo{Item: item, Holder: holder, Loan: loan})
		}
	}
	return out
}
