package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"library-lending/library"
)

// seed_library writes a ready-to-use data directory through the real store,
// so the interactive binary starts with a populated catalog and one user of
// each role.

var (
	dataDir string
	force   bool
)

func main() {
	root := &cobra.Command{
		Use:   "seed_library",
		Short: "Populate a library data directory with sample items and users",
		RunE:  run,
	}
	root.Flags().StringVar(&dataDir, "data-dir", "data", "data directory to write")
	root.Flags().BoolVar(&force, "force", false, "overwrite an existing data directory")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(dataDir); err == nil && !force {
		return fmt.Errorf("data directory %q already exists (use --force to overwrite)", dataDir)
	}
	if force {
		if err := os.RemoveAll(dataDir); err != nil {
			return fmt.Errorf("remove existing data dir: %w", err)
		}
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.WarnLevel)
	store := library.NewStore(dataDir, logger)
	engine := library.NewEngine(store, logger)

	items := []*library.Item{
		library.NewItem(101, "The Go Programming Language", "Donovan & Kernighan", "Addison-Wesley", 2015, "978-0134190440"),
		library.NewItem(102, "Structure and Interpretation of Computer Programs", "Abelson & Sussman", "MIT Press", 1996, "978-0262510875"),
		library.NewItem(103, "The C Programming Language", "Kernighan & Ritchie", "Prentice Hall", 1988, "978-0131103627"),
		library.NewItem(104, "Introduction to Algorithms", "Cormen et al.", "MIT Press", 2009, "978-0262033848"),
		library.NewItem(105, "Operating Systems: Three Easy Pieces", "Arpaci-Dusseau", "CreateSpace", 2018, "978-1985086593"),
	}
	for _, it := range items {
		if err := engine.AddItem(it); err != nil {
			return fmt.Errorf("add item %d: %w", it.ID, err)
		}
	}

	holders := []*library.Holder{
		{ID: 111, Name: "Asha Verma", Credential: "student123", Department: "Computer Science", Role: library.RoleStudent},
		{ID: 211, Name: "Prof. Marcus Webb", Credential: "faculty123", Department: "Mathematics", Role: library.RoleFaculty},
		{ID: 311, Name: "Elena Kowalski", Credential: "admin123", Department: "Library Services", Role: library.RoleLibrarian},
	}
	for _, h := range holders {
		if err := engine.AddHolder(h); err != nil {
			return fmt.Errorf("add holder %d: %w", h.ID, err)
		}
	}

	if err := engine.SaveAll(); err != nil {
		return err
	}

	fmt.Printf("Seeded %d items and %d users into %s\n", len(items), len(holders), dataDir)
	fmt.Println("Sample logins:")
	for _, h := range holders {
		fmt.Printf("  %-10s id %d, password %q\n", h.Role.String()+":", h.ID, h.Credential)
	}
	return nil
}
