package library

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "data"), zerolog.Nop())
	return NewEngine(store, zerolog.Nop())
}

// fixClock pins the engine clock to a controllable instant.
func fixClock(e *Engine, at time.Time) *time.Time {
	now := at
	e.now = func() time.Time { return now }
	return &now
}

func addStudent(t *testing.T, e *Engine, id int) *Holder {
	t.Helper()
	h := &Holder{ID: id, Name: "Student", Credential: "pw", Department: "CS", Role: RoleStudent}
	require.NoError(t, e.AddHolder(h))
	return h
}

func addItem(t *testing.T, e *Engine, id int) *Item {
	t.Helper()
	item := NewItem(id, "Some Title", "Some Author", "Pub", 2001, "isbn")
	require.NoError(t, e.AddItem(item))
	return item
}

func TestAuthenticate(t *testing.T) {
	e := newTestEngine(t)
	addStudent(t, e, 1)

	h, err := e.Authenticate(1, "pw")
	require.NoError(t, err)
	require.Equal(t, 1, h.ID)

	_, err = e.Authenticate(1, "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = e.Authenticate(99, "pw")
	require.ErrorIs(t, err, ErrHolderNotFound)
}

func TestBorrowSuccess(t *testing.T) {
	e := newTestEngine(t)
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fixClock(e, start)
	addStudent(t, e, 111)
	item := addItem(t, e, 50)

	loan, err := e.Borrow(111, 50)
	require.NoError(t, err)
	require.False(t, item.Available)
	require.Equal(t, start.Add(15*24*time.Hour), loan.DueAt)

	account, err := e.GetAccount(111)
	require.NoError(t, err)
	require.Len(t, account.Active, 1)
}

func TestBorrowFailures(t *testing.T) {
	e := newTestEngine(t)
	addStudent(t, e, 1)
	addItem(t, e, 10)

	_, err := e.Borrow(99, 10)
	require.ErrorIs(t, err, ErrHolderNotFound)

	_, err = e.Borrow(1, 99)
	require.ErrorIs(t, err, ErrItemNotFound)

	librarian := &Holder{ID: 2, Name: "Admin", Credential: "pw", Role: RoleLibrarian}
	require.NoError(t, e.AddHolder(librarian))
	_, err = e.Borrow(2, 10)
	require.ErrorIs(t, err, ErrPermissionDenied)

	_, err = e.Borrow(1, 10)
	require.NoError(t, err)
	_, err = e.Borrow(1, 10)
	require.ErrorIs(t, err, ErrUnavailable) // already lent, so unavailable wins over AlreadyHeld
}

func TestBorrowAlreadyHeldAfterManualReset(t *testing.T) {
	// AlreadyHeld is only reachable when the flag says available while the
	// holder still has the loan, which can happen on a hand-edited data dir.
	e := newTestEngine(t)
	addStudent(t, e, 1)
	item := addItem(t, e, 10)

	_, err := e.Borrow(1, 10)
	require.NoError(t, err)
	item.Available = true

	_, err = e.Borrow(1, 10)
	require.ErrorIs(t, err, ErrAlreadyHeld)
}

func TestBorrowCapacity(t *testing.T) {
	e := newTestEngine(t)
	addStudent(t, e, 1)
	for id := 10; id < 13; id++ {
		addItem(t, e, id)
		_, err := e.Borrow(1, id)
		require.NoError(t, err)
	}
	addItem(t, e, 13)
	_, err := e.Borrow(1, 13)
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestFacultyProfileLimits(t *testing.T) {
	e := newTestEngine(t)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	fixClock(e, start)
	faculty := &Holder{ID: 1, Name: "Prof", Credential: "pw", Role: RoleFaculty}
	require.NoError(t, e.AddHolder(faculty))

	for id := 10; id < 15; id++ {
		addItem(t, e, id)
		loan, err := e.Borrow(1, id)
		require.NoError(t, err)
		require.Equal(t, start.Add(30*24*time.Hour), loan.DueAt)
	}
	addItem(t, e, 15)
	_, err := e.Borrow(1, 15)
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestReturnOnTime(t *testing.T) {
	e := newTestEngine(t)
	now := fixClock(e, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	addStudent(t, e, 1)
	item := addItem(t, e, 10)

	_, err := e.Borrow(1, 10)
	require.NoError(t, err)

	*now = now.Add(10 * 24 * time.Hour)
	fine, err := e.Return(1, 10)
	require.NoError(t, err)
	require.Zero(t, fine)
	require.True(t, item.Available)
	require.Empty(t, item.Reservations())

	account, _ := e.GetAccount(1)
	require.Empty(t, account.Active)
	require.Len(t, account.History, 1)
	require.Zero(t, account.Fine)
}

func TestOverdueFineScenario(t *testing.T) {
	// Student (limit 3, 15-day term, rate 10.0/hour) returns 20 days after
	// borrowing: 5 days overdue = 120 hours * 10.0 = 1200.0.
	e := newTestEngine(t)
	now := fixClock(e, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	addStudent(t, e, 111)
	addItem(t, e, 50)

	_, err := e.Borrow(111, 50)
	require.NoError(t, err)

	*now = now.Add(20 * 24 * time.Hour)
	fine, err := e.Return(111, 50)
	require.NoError(t, err)
	require.Equal(t, 1200.0, fine)

	// Unpaid fines block the next borrow.
	addItem(t, e, 51)
	_, err = e.Borrow(111, 51)
	require.ErrorIs(t, err, ErrUnpaidFine)

	balance, err := e.PayFine(111, 1200.0)
	require.NoError(t, err)
	require.Zero(t, balance)

	_, err = e.Borrow(111, 51)
	require.NoError(t, err)
}

func TestFacultyNeverFined(t *testing.T) {
	e := newTestEngine(t)
	now := fixClock(e, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	faculty := &Holder{ID: 1, Name: "Prof", Credential: "pw", Role: RoleFaculty}
	require.NoError(t, e.AddHolder(faculty))
	addItem(t, e, 10)

	_, err := e.Borrow(1, 10)
	require.NoError(t, err)

	*now = now.Add(90 * 24 * time.Hour)
	fine, err := e.Return(1, 10)
	require.NoError(t, err)
	require.Zero(t, fine)
}

func TestReturnNotHeld(t *testing.T) {
	e := newTestEngine(t)
	addStudent(t, e, 1)
	addItem(t, e, 10)

	_, err := e.Return(1, 10)
	require.ErrorIs(t, err, ErrNotHeld)
}

func TestPartialHourOverdueRoundsDown(t *testing.T) {
	e := newTestEngine(t)
	now := fixClock(e, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	addStudent(t, e, 1)
	addItem(t, e, 10)

	_, err := e.Borrow(1, 10)
	require.NoError(t, err)

	*now = now.Add(15*24*time.Hour + 90*time.Minute)
	fine, err := e.Return(1, 10)
	require.NoError(t, err)
	require.Equal(t, 10.0, fine) // one whole hour overdue
}

func TestReservationPriorityHold(t *testing.T) {
	// Item 7 is lent to A; B reserves; A returns. The item reads available
	// but only B may borrow it; everyone else is rejected.
	e := newTestEngine(t)
	addStudent(t, e, 1) // A
	addStudent(t, e, 2) // B
	addStudent(t, e, 3) // C
	item := addItem(t, e, 7)

	_, err := e.Borrow(1, 7)
	require.NoError(t, err)
	require.NoError(t, e.Reserve(2, 7))

	_, err = e.Return(1, 7)
	require.NoError(t, err)
	require.True(t, item.Available)
	require.Equal(t, []int{2}, item.Reservations())

	_, err = e.Borrow(3, 7)
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = e.Borrow(1, 7)
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = e.Borrow(2, 7)
	require.NoError(t, err)
	require.False(t, item.Available)
	require.Empty(t, item.Reservations(), "borrow by the queue head consumes the reservation")
}

func TestReservationQueueOrder(t *testing.T) {
	e := newTestEngine(t)
	for id := 1; id <= 4; id++ {
		addStudent(t, e, id)
	}
	item := addItem(t, e, 7)

	_, err := e.Borrow(1, 7)
	require.NoError(t, err)
	require.NoError(t, e.Reserve(2, 7))
	require.NoError(t, e.Reserve(3, 7))
	require.NoError(t, e.Reserve(4, 7))
	require.Equal(t, []int{2, 3, 4}, item.Reservations())

	// Cancelling from the middle keeps the rest in order.
	require.NoError(t, e.CancelReservation(3, 7))
	require.Equal(t, []int{2, 4}, item.Reservations())

	// Returning must not reshuffle the queue: the longest waiter stays at
	// the head and is the only one allowed to borrow.
	_, err = e.Return(1, 7)
	require.NoError(t, err)
	require.Equal(t, []int{2, 4}, item.Reservations())
	_, err = e.Borrow(4, 7)
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = e.Borrow(2, 7)
	require.NoError(t, err)
	require.Equal(t, []int{4}, item.Reservations())
}

func TestDuplicateReservation(t *testing.T) {
	e := newTestEngine(t)
	addStudent(t, e, 1)
	addStudent(t, e, 2)
	addItem(t, e, 7)

	_, err := e.Borrow(1, 7)
	require.NoError(t, err)
	require.NoError(t, e.Reserve(2, 7))
	require.ErrorIs(t, e.Reserve(2, 7), ErrDuplicateReservation)
}

func TestCancelThenReserveRestoresQueue(t *testing.T) {
	e := newTestEngine(t)
	addStudent(t, e, 1)
	addStudent(t, e, 2)
	item := addItem(t, e, 7)

	_, err := e.Borrow(1, 7)
	require.NoError(t, err)
	require.NoError(t, e.Reserve(2, 7))
	require.NoError(t, e.CancelReservation(2, 7))
	require.Empty(t, item.Reservations())

	// Cancel with no reservation fails and leaves the queue untouched.
	require.ErrorIs(t, e.CancelReservation(2, 7), ErrNotHeld)
	require.Empty(t, item.Reservations())

	require.NoError(t, e.Reserve(2, 7))
	require.Equal(t, []int{2}, item.Reservations())
}

func TestReserveMissingItem(t *testing.T) {
	e := newTestEngine(t)
	addStudent(t, e, 1)
	require.ErrorIs(t, e.Reserve(1, 99), ErrItemNotFound)
	require.ErrorIs(t, e.CancelReservation(1, 99), ErrItemNotFound)
}

func TestPayFineOverpayment(t *testing.T) {
	e := newTestEngine(t)
	addStudent(t, e, 1)
	account, err := e.GetAccount(1)
	require.NoError(t, err)
	account.AddFine(50)

	balance, err := e.PayFine(1, 500)
	require.NoError(t, err)
	require.Zero(t, balance)

	_, err = e.PayFine(99, 10)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAddRemoveHolderLifecycle(t *testing.T) {
	e := newTestEngine(t)
	addStudent(t, e, 1)

	// The account is created in lockstep.
	_, err := e.GetAccount(1)
	require.NoError(t, err)

	require.ErrorIs(t, e.AddHolder(&Holder{ID: 1, Role: RoleFaculty}), ErrDuplicateID)

	// Removal succeeds even with an active loan and discards that state.
	addItem(t, e, 10)
	_, err = e.Borrow(1, 10)
	require.NoError(t, err)
	require.NoError(t, e.RemoveHolder(1))

	_, err = e.GetAccount(1)
	require.ErrorIs(t, err, ErrAccountNotFound)
	require.ErrorIs(t, e.RemoveHolder(1), ErrHolderNotFound)
}

func TestRemoveItemDropsReservations(t *testing.T) {
	e := newTestEngine(t)
	addStudent(t, e, 1)
	addStudent(t, e, 2)
	addItem(t, e, 10)

	_, err := e.Borrow(1, 10)
	require.NoError(t, err)
	require.NoError(t, e.Reserve(2, 10))

	require.NoError(t, e.RemoveItem(10))
	require.Empty(t, e.ListHolderReservations(2))
	require.ErrorIs(t, e.RemoveItem(10), ErrItemNotFound)
}

func TestListAllActiveLoans(t *testing.T) {
	e := newTestEngine(t)
	addStudent(t, e, 1)
	addStudent(t, e, 2)
	addItem(t, e, 10)
	addItem(t, e, 11)

	_, err := e.Borrow(1, 10)
	require.NoError(t, err)
	_, err = e.Borrow(2, 11)
	require.NoError(t, err)

	loans := e.ListAllActiveLoans()
	require.Len(t, loans, 2)
	require.Equal(t, 1, loans[0].Holder.ID)
	require.Equal(t, 10, loans[0].Item.ID)
	require.Equal(t, 2, loans[1].Holder.ID)
}

func TestAvailabilityInvariant(t *testing.T) {
	// available == false iff exactly one account holds the item active.
	e := newTestEngine(t)
	addStudent(t, e, 1)
	item := addItem(t, e, 10)

	holders := func() int {
		n := 0
		for _, a := range e.ledger.All() {
			if _, ok := a.ActiveLoan(10); ok {
				n++
			}
		}
		return n
	}

	require.True(t, item.Available)
	require.Zero(t, holders())

	_, err := e.Borrow(1, 10)
	require.NoError(t, err)
	require.False(t, item.Available)
	require.Equal(t, 1, holders())

	_, err = e.Return(1, 10)
	require.NoError(t, err)
	require.True(t, item.Available)
	require.Zero(t, holders())
}

func TestCurrentBorrower(t *testing.T) {
	e := newTestEngine(t)
	addStudent(t, e, 1)
	addItem(t, e, 10)

	_, ok := e.CurrentBorrower(10)
	require.False(t, ok, "available item has no borrower")

	_, err := e.Borrow(1, 10)
	require.NoError(t, err)
	holder, ok := e.CurrentBorrower(10)
	require.True(t, ok)
	require.Equal(t, 1, holder.ID)

	_, err = e.Return(1, 10)
	require.NoError(t, err)
	_, ok = e.CurrentBorrower(10)
	require.False(t, ok)

	// A lossy holder removal leaves the loan orphaned; no borrower surfaces.
	_, err = e.Borrow(1, 10)
	require.NoError(t, err)
	require.NoError(t, e.RemoveHolder(1))
	_, ok = e.CurrentBorrower(10)
	require.False(t, ok)
}

func TestGetHolderProfile(t *testing.T) {
	e := newTestEngine(t)
	addStudent(t, e, 1)

	profile, err := e.GetHolderProfile(1)
	require.NoError(t, err)
	require.True(t, profile.CanBorrow)
	require.Equal(t, 3, profile.MaxLoans)
	require.Equal(t, 15, profile.LoanDays)
	require.Equal(t, 10.0, profile.FineRatePerHour)

	_, err = e.GetHolderProfile(99)
	require.ErrorIs(t, err, ErrHolderNotFound)
}
