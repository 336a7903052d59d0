// Package main provides a tool to seed the database with sample circulation data.
//
// This creates a small departmental catalog, a handful of students and desk
// staff, and optionally issues a few loans so reports have something to show.
//
// Usage:
//
//	DATA_PATH=~/Circulate/data go run ./cmd/seed
//	DATA_PATH=~/Circulate/data go run ./cmd/seed --with-loans  # Also issue loans
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/circulateapp/circulate-server/internal/config"
	apperrors "github.com/circulateapp/circulate-server/internal/errors"
	"github.com/circulateapp/circulate-server/internal/policy"
	"github.com/circulateapp/circulate-server/internal/search"
	"github.com/circulateapp/circulate-server/internal/service"
	"github.com/circulateapp/circulate-server/internal/store"
	"github.com/circulateapp/circulate-server/internal/validation"
)

var withLoans = flag.Bool("with-loans", false, "Issue a few sample loans after seeding")

// sampleBooks is a plausible first-year engineering shelf.
var sampleBooks = []service.CreateBookInput{
	{Title: "Operating System Concepts", Branch: "CSE", Year: 2, Semester: 4, Price: 85000, Quantity: 4},
	{Title: "Introduction to Algorithms", Branch: "CSE", Year: 2, Semester: 3, Price: 99500, Quantity: 3},
	{Title: "Computer Networks", Branch: "CSE", Year: 3, Semester: 5, Price: 72000, Quantity: 3},
	{Title: "Signals and Systems", Branch: "ECE", Year: 2, Semester: 3, Price: 68000, Quantity: 2},
	{Title: "Digital Design", Branch: "ECE", Year: 1, Semester: 2, Price: 54000, Quantity: 5},
	{Title: "Engineering Thermodynamics", Branch: "ME", Year: 2, Semester: 3, Price: 61000, Quantity: 2},
	{Title: "Higher Engineering Mathematics", Branch: "GEN", Year: 1, Semester: 1, Price: 45000, Quantity: 6},
}

var sampleStudents = []service.RegisterStudentInput{
	{RollNo: "CSE-2024-001", Name: "Asha Verma", Branch: "CSE", Year: 2},
	{RollNo: "CSE-2024-014", Name: "Rohit Menon", Branch: "CSE", Year: 2},
	{RollNo: "ECE-2023-007", Name: "Priya Nair", Branch: "ECE", Year: 3},
	{RollNo: "ME-2025-021", Name: "Arjun Singh", Branch: "ME", Year: 1},
}

var sampleIssuers = []service.RegisterIssuerInput{
	{Name: "R. Iyer", Email: "r.iyer@campus.edu", Librarian: true},
	{Name: "S. Bhat", Email: "s.bhat@campus.edu", Librarian: false},
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Circulate/data")
	}

	fmt.Printf("Opening data directory: %s\n", dataPath)

	s, err := store.New(filepath.Join(dataPath, "db"), nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	idx, err := search.NewIndex(search.Options{DataPath: dataPath})
	if err != nil {
		log.Fatalf("Failed to open search index: %v", err)
	}
	defer idx.Close()
	s.SetSearchIndexer(idx)

	v := validation.New()
	rules := policy.FromConfig(config.LendingConfig{
		LoanPeriodDays:    30,
		RenewalPeriodDays: 30,
		FineRatePerDay:    5,
		MaxRenewals:       1,
		MaxActiveLoans:    5,
	})

	catalog := service.NewCatalogService(s, idx, v, nil)
	directory := service.NewDirectoryService(s, v, nil)
	ledger := service.NewLedgerService(s, directory, rules, v, nil)

	ctx := context.Background()

	fmt.Println("\n=== Catalog ===")
	bookIDs := make(map[string]string, len(sampleBooks))
	for _, input := range sampleBooks {
		book, err := catalog.CreateBook(ctx, input)
		if err != nil {
			log.Printf("  Failed to create %q: %v", input.Title, err)
			continue
		}
		bookIDs[input.Title] = book.ID
		fmt.Printf("  Added: %s (%s, %d copies)\n", book.Title, book.Branch, book.TotalQuantity)
	}

	fmt.Println("\n=== Students ===")
	for _, input := range sampleStudents {
		student, err := directory.RegisterStudent(ctx, input)
		if err != nil {
			if isAlreadyExists(err) {
				fmt.Printf("  Student %s already registered, skipping\n", input.RollNo)
				continue
			}
			log.Printf("  Failed to register %s: %v", input.RollNo, err)
			continue
		}
		fmt.Printf("  Registered: %s (%s)\n", student.Name, student.RollNo)
	}

	fmt.Println("\n=== Issuers ===")
	var librarianID string
	for _, input := range sampleIssuers {
		issuer, err := directory.RegisterIssuer(ctx, input)
		if err != nil {
			if isAlreadyExists(err) {
				fmt.Printf("  Issuer %s already registered, skipping\n", input.Email)
				continue
			}
			log.Printf("  Failed to register %s: %v", input.Email, err)
			continue
		}
		fmt.Printf("  Registered: %s (librarian=%v)\n", issuer.Name, issuer.Librarian)
		if issuer.Librarian && librarianID == "" {
			librarianID = issuer.ID
		}
	}

	if *withLoans {
		if librarianID == "" {
			log.Fatal("No librarian issuer available; cannot issue sample loans")
		}

		fmt.Println("\n=== Loans ===")
		sampleLoans := []struct {
			title  string
			rollNo string
		}{
			{"Operating System Concepts", "CSE-2024-001"},
			{"Introduction to Algorithms", "CSE-2024-014"},
			{"Signals and Systems", "ECE-2023-007"},
		}

		for _, l := range sampleLoans {
			bookID, ok := bookIDs[l.title]
			if !ok {
				fmt.Printf("  %q not in catalog this run, skipping loan\n", l.title)
				continue
			}
			loan, err := ledger.Issue(ctx, service.IssueInput{
				BookID:        bookID,
				StudentRollNo: l.rollNo,
				IssuerID:      librarianID,
			})
			if err != nil {
				log.Printf("  Failed to issue %q to %s: %v", l.title, l.rollNo, err)
				continue
			}
			fmt.Printf("  Issued %q to %s, due %s\n", l.title, l.rollNo, loan.DueDate.Format("2006-01-02"))
		}
	}

	fmt.Println("\nSeeding complete!")
}

// isAlreadyExists reports whether err is a duplicate-registration error.
func isAlreadyExists(err error) bool {
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == apperrors.CodeAlreadyExists
	}
	return false
}
