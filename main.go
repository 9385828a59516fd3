package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"library-lending/library"
)

// readPassword reads a credential with terminal echo disabled.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(raw)), nil
}

func main() {
	cfg, err := library.LoadConfig(os.Getenv("LIBRARY_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	store := library.NewStore(cfg.Storage.DataDir, logger)
	engine := library.NewEngine(store, logger)
	if err := engine.LoadAll(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading library state: %v\n", err)
		os.Exit(1)
	}

	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Welcome to the Library Lending System!")
	for {
		fmt.Println("\n1. Login")
		fmt.Println("2. Search catalog")
		fmt.Println("3. Exit")
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			handleLogin(scanner, engine)
		case "2":
			handleSearch(scanner, engine)
		case "3":
			if err := engine.SaveAll(); err != nil {
				fmt.Printf("Warning: could not save state: %v\n", err)
			}
			fmt.Println("Goodbye!")
			return
		default:
			fmt.Println("Invalid choice.")
		}
	}
}

func handleLogin(sc *bufio.Scanner, engine *library.Engine) {
	id, ok := promptID(sc, "User ID: ")
	if !ok {
		return
	}
	password, err := readPassword("Password: ")
	if err != nil {
		fmt.Printf("Error reading password: %v\n", err)
		return
	}

	holder, err := engine.Authenticate(id, password)
	if err != nil {
		fmt.Printf("Login failed: %s\n", describeError(err))
		return
	}

	// Checkpoint save on login.
	if err := engine.SaveAll(); err != nil {
		fmt.Printf("Warning: could not save state: %v\n", err)
	}

	fmt.Printf("Welcome, %s (%s)!\n", holder.Name, holder.Role)
	runSession(sc, engine, holder)
}

// runSession is the per-login menu loop. Entries depend on the holder's
// role profile.
func runSession(sc *bufio.Scanner, engine *library.Engine, holder *library.Holder) {
	profile := holder.Profile()
	for {
		fmt.Printf("\n--- %s Menu ---\n", holder.Role)
		fmt.Println(" 1. Search catalog")
		fmt.Println(" 2. List all items")
		if profile.CanBorrow {
			fmt.Println(" 3. Borrow item")
			fmt.Println(" 4. Return item")
			fmt.Println(" 5. My loans")
			fmt.Println(" 6. My fines")
			fmt.Println(" 7. Pay fine")
			fmt.Println(" 8. Reserve item")
			fmt.Println(" 9. Cancel reservation")
			fmt.Println("10. My reservations")
		}
		if profile.CanManageItems {
			fmt.Println("11. Add item")
			fmt.Println("12. Remove item")
		}
		if profile.CanManageUsers {
			fmt.Println("13. Add user")
			fmt.Println("14. Remove user")
			fmt.Println("15. View user")
			fmt.Println("16. All active loans")
		}
		fmt.Println(" 0. Logout")
		fmt.Print("> ")
		if !sc.Scan() {
			return
		}

		choice := strings.TrimSpace(sc.Text())
		switch {
		case choice == "0":
			// Checkpoint save on logout.
			if err := engine.SaveAll(); err != nil {
				fmt.Printf("Warning: could not save state: %v\n", err)
			}
			fmt.Println("Logged out.")
			return
		case choice == "1":
			handleSearch(sc, engine)
		case choice == "2":
			printItems(engine, engine.ListAllItems())
		case choice == "3" && profile.CanBorrow:
			handleBorrow(sc, engine, holder.ID)
		case choice == "4" && profile.CanBorrow:
			handleReturn(sc, engine, holder.ID)
		case choice == "5" && profile.CanBorrow:
			handleMyLoans(engine, holder.ID)
		case choice == "6" && profile.CanBorrow:
			handleViewFines(engine, holder.ID)
		case choice == "7" && profile.CanBorrow:
			handlePayFine(sc, engine, holder.ID)
		case choice == "8" && profile.CanBorrow:
			handleReserve(sc, engine, holder.ID)
		case choice == "9" && profile.CanBorrow:
			handleCancelReservation(sc, engine, holder.ID)
		case choice == "10" && profile.CanBorrow:
			handleMyReservations(engine, holder.ID)
		case choice == "11" && profile.CanManageItems:
			handleAddItem(sc, engine)
		case choice == "12" && profile.CanManageItems:
			handleRemoveItem(sc, engine)
		case choice == "13" && profile.CanManageUsers:
			handleAddHolder(sc, engine)
		case choice == "14" && profile.CanManageUsers:
			handleRemoveHolder(sc, engine)
		case choice == "15" && profile.CanManageUsers:
			handleViewHolder(sc, engine)
		case choice == "16" && profile.CanManageUsers:
			handleAllActiveLoans(engine)
		default:
			fmt.Println("Invalid choice.")
		}
	}
}

// ------------------ Catalog handlers ------------------

func handleSearch(sc *bufio.Scanner, engine *library.Engine) {
	fmt.Print("Search title (empty lists everything): ")
	if !sc.Scan() {
		return
	}
	results := engine.SearchItems(strings.TrimSpace(sc.Text()))
	if len(results) == 0 {
		fmt.Println("No items found.")
		return
	}
	printItems(engine, results)
}

func printItems(engine *library.Engine, items []*library.Item) {
	fmt.Printf("%-5s %-35s %-25s %-6s %-20s %s\n", "ID", "Title", "Author", "Year", "Borrower", "Queue")
	fmt.Println(strings.Repeat("-", 110))
	for _, it := range items {
		borrower := "-"
		if !it.Available {
			if holder, ok := engine.CurrentBorrower(it.ID); ok {
				borrower = fmt.Sprintf("%s (%d)", holder.Name, holder.ID)
			} else {
				borrower = "unknown"
			}
		}
		queue := "-"
		if ids := it.Reservations(); len(ids) > 0 {
			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = strconv.Itoa(id)
			}
			queue = strings.Join(parts, ",")
		}
		fmt.Printf("%-5d %-35s %-25s %-6d %-20s %s\n", it.ID, it.Title, it.Author, it.Year, borrower, queue)
	}
}

func handleAddItem(sc *bufio.Scanner, engine *library.Engine) {
	id, ok := promptID(sc, "Item ID: ")
	if !ok {
		return
	}
	title := promptLine(sc, "Title: ")
	author := promptLine(sc, "Author: ")
	publisher := promptLine(sc, "Publisher: ")
	year, ok := promptID(sc, "Year: ")
	if !ok {
		return
	}
	isbn := promptLine(sc, "ISBN: ")

	if err := engine.AddItem(library.NewItem(id, title, author, publisher, year, isbn)); err != nil {
		fmt.Printf("Error: %s\n", describeError(err))
		return
	}
	fmt.Printf("Added item %d.\n", id)
}

func handleRemoveItem(sc *bufio.Scanner, engine *library.Engine) {
	id, ok := promptID(sc, "Item ID to remove: ")
	if !ok {
		return
	}
	if err := engine.RemoveItem(id); err != nil {
		fmt.Printf("Error: %s\n", describeError(err))
		return
	}
	fmt.Printf("Removed item %d.\n", id)
}

// ------------------ Circulation handlers ------------------

func handleBorrow(sc *bufio.Scanner, engine *library.Engine, holderID int) {
	itemID, ok := promptID(sc, "Item ID to borrow: ")
	if !ok {
		return
	}
	loan, err := engine.Borrow(holderID, itemID)
	if err != nil {
		fmt.Printf("Error: %s\n", describeError(err))
		if errors.Is(err, library.ErrUnavailable) {
			fmt.Println("You can reserve it for when it becomes available.")
		}
		return
	}
	fmt.Printf("Item borrowed. Due %s.\n", loan.DueAt.Format("2006-01-02 15:04"))
}

func handleReturn(sc *bufio.Scanner, engine *library.Engine, holderID int) {
	itemID, ok := promptID(sc, "Item ID to return: ")
	if !ok {
		return
	}
	fine, err := engine.Return(holderID, itemID)
	if err != nil {
		fmt.Printf("Error: %s\n", describeError(err))
		return
	}
	fmt.Println("Item returned.")
	if fine > 0 {
		fmt.Printf("Overdue fine charged: %.2f. Please pay to keep borrowing.\n", fine)
	}
}

func handleMyLoans(engine *library.Engine, holderID int) {
	account, err := engine.GetAccount(holderID)
	if err != nil {
		fmt.Printf("Error: %s\n", describeError(err))
		return
	}
	if len(account.Active) == 0 {
		fmt.Println("You have no items on loan.")
		return
	}
	for _, lr := range account.Active {
		title := fmt.Sprintf("item %d", lr.ItemID)
		if item, err := engine.GetItem(lr.ItemID); err == nil {
			title = item.Title
		}
		fmt.Printf("%-35s due %s\n", title, lr.DueAt.Format("2006-01-02 15:04"))
	}
}

func handleViewFines(engine *library.Engine, holderID int) {
	account, err := engine.GetAccount(holderID)
	if err != nil {
		fmt.Printf("Error: %s\n", describeError(err))
		return
	}
	fmt.Printf("Outstanding fines: %.2f\n", account.Fine)
}

func handlePayFine(sc *bufio.Scanner, engine *library.Engine, holderID int) {
	fmt.Print("Amount to pay: ")
	if !sc.Scan() {
		return
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(sc.Text()), 64)
	if err != nil || amount <= 0 {
		fmt.Println("Invalid amount.")
		return
	}
	balance, err := engine.PayFine(holderID, amount)
	if err != nil {
		fmt.Printf("Error: %s\n", describeError(err))
		return
	}
	fmt.Printf("Payment accepted. Remaining balance: %.2f\n", balance)
}

func handleReserve(sc *bufio.Scanner, engine *library.Engine, holderID int) {
	itemID, ok := promptID(sc, "Item ID to reserve: ")
	if !ok {
		return
	}
	item, err := engine.GetItem(itemID)
	if err != nil {
		fmt.Printf("Error: %s\n", describeError(err))
		return
	}
	// Reserving an item that is sitting on the shelf makes no sense from the
	// desk: borrow it instead. The engine itself does not enforce this.
	if item.Available && !item.IsReservedBy(holderID) {
		fmt.Println("This item is currently available. You can borrow it directly.")
		return
	}
	if err := engine.Reserve(holderID, itemID); err != nil {
		fmt.Printf("Error: %s\n", describeError(err))
		return
	}
	fmt.Println("Item reserved. You will have priority when it is returned.")
}

func handleCancelReservation(sc *bufio.Scanner, engine *library.Engine, holderID int) {
	itemID, ok := promptID(sc, "Item ID to cancel reservation for: ")
	if !ok {
		return
	}
	if err := engine.CancelReservation(holderID, itemID); err != nil {
		if errors.Is(err, library.ErrNotHeld) {
			fmt.Println("Error: you don't have a reservation for this item.")
		} else {
			fmt.Printf("Error: %s\n", describeError(err))
		}
		return
	}
	fmt.Println("Reservation cancelled.")
}

func handleMyReservations(engine *library.Engine, holderID int) {
	items := engine.ListHolderReservations(holderID)
	if len(items) == 0 {
		fmt.Println("You have no reservations.")
		return
	}
	printItems(engine, items)
}

// ------------------ User management handlers ------------------

func handleAddHolder(sc *bufio.Scanner, engine *library.Engine) {
	id, ok := promptID(sc, "User ID: ")
	if !ok {
		return
	}
	name := promptLine(sc, "Name: ")
	department := promptLine(sc, "Department: ")
	roleInput := strings.ToUpper(promptLine(sc, "Role ([S]tudent / [F]aculty / [L]ibrarian): "))

	var role library.Role
	switch roleInput {
	case "S":
		role = library.RoleStudent
	case "F":
		role = library.RoleFaculty
	case "L":
		role = library.RoleLibrarian
	default:
		fmt.Println("Invalid role.")
		return
	}

	password, err := readPassword(fmt.Sprintf("Password for %s: ", name))
	if err != nil || password == "" {
		fmt.Println("Error: password cannot be empty.")
		return
	}

	holder := &library.Holder{ID: id, Name: name, Credential: password, Department: department, Role: role}
	if err := engine.AddHolder(holder); err != nil {
		fmt.Printf("Error: %s\n", describeError(err))
		return
	}
	fmt.Printf("Added %s '%s' with ID %d.\n", role, name, id)
}

func handleRemoveHolder(sc *bufio.Scanner, engine *library.Engine) {
	id, ok := promptID(sc, "User ID to remove: ")
	if !ok {
		return
	}
	if err := engine.RemoveHolder(id); err != nil {
		fmt.Printf("Error: %s\n", describeError(err))
		return
	}
	fmt.Printf("Removed user %d.\n", id)
}

func handleViewHolder(sc *bufio.Scanner, engine *library.Engine) {
	id, ok := promptID(sc, "User ID: ")
	if !ok {
		return
	}
	holder, err := engine.GetHolder(id)
	if err != nil {
		fmt.Printf("Error: %s\n", describeError(err))
		return
	}
	profile := holder.Profile()
	fmt.Printf("ID: %d\nName: %s\nRole: %s\nDepartment: %s\n", holder.ID, holder.Name, holder.Role, holder.Department)
	if profile.CanBorrow {
		fmt.Printf("Loan limit: %d, term: %d days, fine rate: %.2f/hour\n",
			profile.MaxLoans, profile.LoanDays, profile.FineRatePerHour)
	}
	if account, err := engine.GetAccount(id); err == nil {
		fmt.Printf("Active loans: %d, fines: %.2f\n", len(account.Active), account.Fine)
	}
}

func handleAllActiveLoans(engine *library.Engine) {
	loans := engine.ListAllActiveLoans()
	if len(loans) == 0 {
		fmt.Println("No items are currently on loan.")
		return
	}
	fmt.Printf("%-5s %-35s %-20s %s\n", "ID", "Title", "Borrower", "Due")
	fmt.Println(strings.Repeat("-", 85))
	for _, li := range loans {
		fmt.Printf("%-5d %-35s %-20s %s\n",
			li.Item.ID, li.Item.Title, li.Holder.Name, li.Loan.DueAt.Format("2006-01-02 15:04"))
	}
}

// ------------------ Utilities ------------------

func promptLine(sc *bufio.Scanner, prompt string) string {
	fmt.Print(prompt)
	if !sc.Scan() {
		return ""
	}
	return strings.TrimSpace(sc.Text())
}

func promptID(sc *bufio.Scanner, prompt string) (int, bool) {
	raw := promptLine(sc, prompt)
	id, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Printf("Invalid number: %q\n", raw)
		return 0, false
	}
	return id, true
}

// describeError maps a domain error to the message shown at the desk.
func describeError(err error) string {
	switch {
	case errors.Is(err, library.ErrItemNotFound):
		return "item not found"
	case errors.Is(err, library.ErrHolderNotFound):
		return "user not found"
	case errors.Is(err, library.ErrAccountNotFound):
		return "account not found"
	case errors.Is(err, library.ErrInvalidCredentials):
		return "incorrect user ID or password"
	case errors.Is(err, library.ErrPermissionDenied):
		return "your role is not allowed to do that"
	case errors.Is(err, library.ErrCapacityExceeded):
		return "you have reached your borrowing limit"
	case errors.Is(err, library.ErrAlreadyHeld):
		return "you have already borrowed this item"
	case errors.Is(err, library.ErrNotHeld):
		return "you do not hold this item"
	case errors.Is(err, library.ErrUnavailable):
		return "this item is currently unavailable or reserved by another user"
	case errors.Is(err, library.ErrDuplicateReservation):
		return "you already have a reservation for this item"
	case errors.Is(err, library.ErrUnpaidFine):
		return "you have outstanding fines; please pay them before borrowing"
	case errors.Is(err, library.ErrDuplicateID):
		return "that ID is already in use"
	case errors.Is(err, library.ErrStorageUnavailable):
		return "storage is unavailable"
	default:
		return err.Error()
	}
}
