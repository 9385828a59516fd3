package library

import "time"

// Role identifies one of the three fixed holder categories. Privileges are
// derived from the role through Profile rather than carried per holder.
type Role int

const (
	RoleStudent Role = iota
	RoleFaculty
	RoleLibrarian
)

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "Student"
	case RoleFaculty:
		return "Faculty"
	case RoleLibrarian:
		return "Librarian"
	}
	return "Unknown"
}

// Profile is the capability set a role grants.
type Profile struct {
	CanBorrow       bool
	CanManageItems  bool
	CanManageUsers  bool
	MaxLoans        int
	LoanDays        int
	FineRatePerHour float64
}

// Profile returns the canonical capability set for the role.
func (r Role) Profile() Profile {
	switch r {
	case RoleStudent:
		return Profile{CanBorrow: true, MaxLoans: 3, LoanDays: 15, FineRatePerHour: 10.0}
	case RoleFaculty:
		return Profile{CanBorrow: true, CanManageItems: true, MaxLoans: 5, LoanDays: 30}
	case RoleLibrarian:
		return Profile{CanManageItems: true, CanManageUsers: true}
	}
	return Profile{}
}

// Item is a circulating catalog entry. Available is false while the item is
// lent out; the reservation queue may hold waiting holder ids in any state.
type Item struct {
	ID        int
	Title     string
	Author    string
	Publisher string
	Year      int
	ISBN      string
	Available bool

	reservations reservationQueue
}

// NewItem creates an item that starts out available with no reservations.
func NewItem(id int, title, author, publisher string, year int, isbn string) *Item {
	return &Item{
		ID:        id,
		Title:     title,
		Author:    author,
		Publisher: publisher,
		Year:      year,
		ISBN:      isbn,
		Available: true,
	}
}

// Reservations returns the pending holder ids in queue order.
func (it *Item) Reservations() []int { return it.reservations.snapshot() }

// IsReservedBy reports whether the holder has a pending reservation.
func (it *Item) IsReservedBy(holderID int) bool { return it.reservations.contains(holderID) }

// AvailableFor reports whether the holder may borrow the item right now.
// An available item with a non-empty queue is held for the queue head only.
func (it *Item) AvailableFor(holderID int) bool {
	if !it.Available {
		return false
	}
	head, ok := it.reservations.head()
	return !ok || head == holderID
}

// Holder is a registered user of the library. The credential is an opaque
// string compared verbatim; the persisted holder files store it as written.
type Holder struct {
	ID         int
	Name       string
	Credential string
	Department string
	Role       Role
}

// Profile returns the holder's role-derived capability set.
func (h *Holder) Profile() Profile { return h.Role.Profile() }

// LoanRecord is one borrow of one item. It lives only inside an Account,
// either in the active list or in the history.
type LoanRecord struct {
	ItemID     int
	BorrowedAt time.Time
	DueAt      time.Time
}

// Overdue reports whether the loan is past due at the given instant.
func (lr LoanRecord) Overdue(now time.Time) bool { return now.After(lr.DueAt) }

// Account holds one holder's lending state: active loans, returned-loan
// history, and the accrued fine balance (never negative).
type Account struct {
	HolderID int
	Active   []LoanRecord
	History  []LoanRecord
	Fine     float64
}

// NewAccount creates an empty account for the holder.
func NewAccount(holderID int) *Account {
	return &Account{HolderID: holderID}
}

// ActiveLoan finds the active loan for the item, if any.
func (a *Account) ActiveLoan(itemID int) (LoanRecord, bool) {
	for _, lr := range a.Active {
		if lr.ItemID == itemID {
			return lr, true
		}
	}
	return LoanRecord{}, false
}

// CloseLoan moves the active loan for the item into the history.
func (a *Account) CloseLoan(itemID int) bool {
	for i, lr := range a.Active {
		if lr.ItemID == itemID {
			a.History = append(a.History, lr)
			a.Active = append(a.Active[:i], a.Active[i+1:]...)
			return true
		}
	}
	return false
}

// AddFine increases the fine balance.
func (a *Account) AddFine(amount float64) { a.Fine += amount }

// PayFine decreases the fine balance, floored at zero. Overpayment is
// accepted silently and not carried as credit.
func (a *Account) PayFine(amount float64) {
	a.Fine -= amount
	if a.Fine < 0 {
		a.Fine = 0
	}
}

// ActiveLoanInfo pairs an active loan with its item and borrower for
// administrative listings.
type ActiveLoanInfo struct {
	Item   *Item
	Holder *Holder
	Loan   LoanRecord
}
