package library

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Persisted layout under the data directory. One record per line, fields
// separated by a single pipe:
//
//	items.txt                id|title|author|publisher|year|isbn|available(0/1)
//	students.txt             id|name|credential|department
//	faculty.txt              id|name|credential|department
//	librarians.txt           id|name|credential|department
//	accounts/<holderID>.txt  BORROW|itemID|borrowEpoch|dueEpoch
//	                         HISTORY|itemID|borrowEpoch|dueEpoch
//	                         FINE|amount
//
// Blank lines and #-prefixed lines in the items file are ignored.
const (
	itemsFile      = "items.txt"
	studentsFile   = "students.txt"
	facultyFile    = "faculty.txt"
	librariansFile = "librarians.txt"
	accountsDir    = "accounts"
)

// Store mirrors the Catalog, Directory, and Ledger to flat files. Every save
// rewrites the affected files whole; there is no journal or atomic rename, so
// a crash mid-write can leave a short file. Load tolerates that by skipping
// records it cannot parse.
type Store struct {
	dataDir string
	logger  zerolog.Logger
}

// NewStore creates a store rooted at dataDir. The directory is created on
// first save, not here, so a read-only inspection session needs no setup.
func NewStore(dataDir string, logger zerolog.Logger) *Store {
	return &Store{
		dataDir: dataDir,
		logger:  logger.With().Str("component", "store").Logger(),
	}
}

// DataDir returns the directory the store reads and writes.
func (s *Store) DataDir() string { return s.dataDir }

// ------------------ Save ------------------

// SaveAll rewrites the full persisted state: the items file, the three
// per-role holder files, and one account file per holder.
func (s *Store) SaveAll(catalog *Catalog, directory *Directory, ledger *Ledger) error {
	if err := os.MkdirAll(filepath.Join(s.dataDir, accountsDir), 0o755); err != nil {
		return fmt.Errorf("%w: create data dir: %v", ErrStorageUnavailable, err)
	}
	if err := s.saveItems(catalog); err != nil {
		return err
	}
	if err := s.saveHolders(directory); err != nil {
		return err
	}
	return s.saveAccounts(ledger)
}

func (s *Store) saveItems(catalog *Catalog) error {
	f, err := os.Create(filepath.Join(s.dataDir, itemsFile))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, itemsFile, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# id|title|author|publisher|year|isbn|available")
	for _, item := range catalog.All() {
		avail := 0
		if item.Available {
			avail = 1
		}
		fmt.Fprintf(w, "%d|%s|%s|%s|%d|%s|%d\n",
			item.ID, item.Title, item.Author, item.Publisher, item.Year, item.ISBN, avail)
	}
	return w.Flush()
}

func (s *Store) saveHolders(directory *Directory) error {
	files := map[Role]string{
		RoleStudent:   studentsFile,
		RoleFaculty:   facultyFile,
		RoleLibrarian: librariansFile,
	}
	writers := make(map[Role]*bufio.Writer, len(files))
	for role, name := range files {
		f, err := os.Create(filepath.Join(s.dataDir, name))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, name, err)
		}
		defer f.Close()
		writers[role] = bufio.NewWriter(f)
	}

	for _, holder := range directory.All() {
		w, ok := writers[holder.Role]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%d|%s|%s|%s\n", holder.ID, holder.Name, holder.Credential, holder.Department)
	}

	for _, w := range writers {
		if err := w.Flush(); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	}
	return nil
}

func (s *Store) saveAccounts(ledger *Ledger) error {
	for _, account := range ledger.All() {
		path := s.accountPath(account.HolderID)
		f, err := os.Create(path)
		if err != nil {
			// Keep going: one unwritable account file should not lose the rest.
			s.logger.Error().Err(err).Str("path", path).Msg("could not write account file")
			continue
		}
		w := bufio.NewWriter(f)
		for _, lr := range account.Active {
			fmt.Fprintf(w, "BORROW|%d|%d|%d\n", lr.ItemID, lr.BorrowedAt.Unix(), lr.DueAt.Unix())
		}
		for _, lr := range account.History {
			fmt.Fprintf(w, "HISTORY|%d|%d|%d\n", lr.ItemID, lr.BorrowedAt.Unix(), lr.DueAt.Unix())
		}
		fmt.Fprintf(w, "FINE|%s\n", strconv.FormatFloat(account.Fine, 'f', 2, 64))
		w.Flush()
		f.Close()
	}
	return nil
}

func (s *Store) accountPath(holderID int) string {
	return filepath.Join(s.dataDir, accountsDir, strconv.Itoa(holderID)+".txt")
}

// ------------------ Load ------------------

// LoadAll replaces the contents of the three stores from disk. Catalog and
// Directory come from the bulk files; each account is rebuilt from its own
// file, and item availability is re-derived from active-loan records only.
// Missing files mean empty state, and malformed lines are skipped, so a
// fresh or damaged data directory never fails the load.
func (s *Store) LoadAll(catalog *Catalog, directory *Directory, ledger *Ledger) error {
	catalog.Clear()
	directory.Clear()
	ledger.Clear()

	s.loadItems(catalog)

	roleFiles := []struct {
		name string
		role Role
	}{
		{studentsFile, RoleStudent},
		{facultyFile, RoleFaculty},
		{librariansFile, RoleLibrarian},
	}
	for _, rf := range roleFiles {
		s.loadHolders(directory, rf.name, rf.role)
	}

	// Accounts last: BORROW records flip item availability.
	for _, holder := range directory.All() {
		ledger.Put(s.loadAccount(holder.ID, catalog))
	}

	s.logger.Info().
		Int("items", catalog.Len()).
		Int("holders", directory.Len()).
		Msg("state loaded")
	return nil
}

func (s *Store) loadItems(catalog *Catalog) {
	s.eachRecord(itemsFile, func(fields []string) {
		if len(fields) != 7 {
			s.logger.Warn().Str("file", itemsFile).Int("fields", len(fields)).Msg("skipping malformed item record")
			return
		}
		id, err1 := strconv.Atoi(fields[0])
		year, err2 := strconv.Atoi(fields[4])
		if err1 != nil || err2 != nil {
			s.logger.Warn().Str("file", itemsFile).Msg("skipping unparseable item record")
			return
		}
		item := NewItem(id, fields[1], fields[2], fields[3], year, fields[5])
		item.Available = fields[6] == "1"
		if err := catalog.Add(item); err != nil {
			s.logger.Warn().Int("item_id", id).Msg("skipping duplicate item record")
		}
	})
}

func (s *Store) loadHolders(directory *Directory, name string, role Role) {
	s.eachRecord(name, func(fields []string) {
		if len(fields) != 4 {
			s.logger.Warn().Str("file", name).Int("fields", len(fields)).Msg("skipping malformed holder record")
			return
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			s.logger.Warn().Str("file", name).Msg("skipping unparseable holder record")
			return
		}
		holder := &Holder{
			ID:         id,
			Name:       fields[1],
			Credential: fields[2],
			Department: fields[3],
			Role:       role,
		}
		if err := directory.Add(holder); err != nil {
			s.logger.Warn().Int("holder_id", id).Msg("skipping duplicate holder record")
		}
	})
}

// loadAccount rebuilds one account from its file. A missing file is a new
// account with no loans and a zero balance. Only BORROW lines mark the
// referenced item unavailable; HISTORY lines never touch availability.
func (s *Store) loadAccount(holderID int, catalog *Catalog) *Account {
	account := NewAccount(holderID)
	path := filepath.Join(accountsDir, strconv.Itoa(holderID)+".txt")

	s.eachRecord(path, func(fields []string) {
		if len(fields) < 2 {
			return
		}
		switch fields[0] {
		case "BORROW", "HISTORY":
			if len(fields) != 4 {
				s.logger.Warn().Str("path", path).Msg("skipping malformed loan record")
				return
			}
			itemID, err1 := strconv.Atoi(fields[1])
			borrowed, err2 := strconv.ParseInt(fields[2], 10, 64)
			due, err3 := strconv.ParseInt(fields[3], 10, 64)
			if err1 != nil || err2 != nil || err3 != nil {
				s.logger.Warn().Str("path", path).Msg("skipping unparseable loan record")
				return
			}
			lr := LoanRecord{
				ItemID:     itemID,
				BorrowedAt: time.Unix(borrowed, 0),
				DueAt:      time.Unix(due, 0),
			}
			if fields[0] == "BORROW" {
				account.Active = append(account.Active, lr)
				if item, err := catalog.Get(itemID); err == nil {
					item.Available = false
				}
			} else {
				account.History = append(account.History, lr)
			}
		case "FINE":
			amount, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				s.logger.Warn().Str("path", path).Msg("skipping unparseable fine record")
				return
			}
			account.AddFine(amount)
		}
	})
	return account
}

// eachRecord streams pipe-delimited records from a file under the data
// directory. A file that cannot be opened is treated as empty.
func (s *Store) eachRecord(name string, fn func(fields []string)) {
	f, err := os.Open(filepath.Join(s.dataDir, name))
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fn(strings.Split(line, "|"))
	}
}
