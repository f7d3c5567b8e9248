// Command generate_demo creates a demo database with the public-domain
// catalog, a few members and some lending history.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/borrowing"
	"github.com/mrlokans/library/internal/cli"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	auditrepo "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

const (
	defaultDemoDatabasePath = "./demo/demo.db"
	demoPassword            = "demo-password-123"
)

type demoMember struct {
	Username string
	Name     string
	Surname  string
	Borrow   []string // ISBNs
	Return   []string // ISBNs returned after borrowing
}

var demoMembers = []demoMember{
	{Username: "alice", Name: "Alice", Surname: "Liddell",
		Borrow: []string{"9780141439518", "9780142437247"}, Return: []string{"9780142437247"}},
	{Username: "bob", Name: "Bob", Surname: "Cratchit",
		Borrow: []string{"9780143058144"}},
	{Username: "carol", Name: "Carol", Surname: "Danvers",
		Borrow: []string{"9780141439471", "9780140439076"}, Return: []string{"9780141439471", "9780140439076"}},
}

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
		log.Fatalf("Failed to create demo directory: %v", err)
	}

	db, err := database.NewDatabase(config.Database{Driver: config.DriverSQLite, Path: *dbPath})
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	bookRepo := books.NewRepository(db.DB)
	added, _, err := cli.SeedBooks(bookRepo, cli.SeedCatalog)
	if err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}
	log.Printf("Seeded %d books", added)

	userRepo := users.NewRepository(db.DB)
	auditor := audit.NewService(auditrepo.NewRepository(db.DB))
	defer auditor.Wait()

	authCfg := config.Auth{BcryptCost: bcrypt.DefaultCost}
	authSvc := auth.NewService(userRepo, auth.NewTokenIssuer("demo", 0), auth.LogNotifier{}, authCfg)
	if _, err := authSvc.CreateAdmin(auth.Registration{
		Username: "admin", Email: "admin@demo.local", Password: demoPassword, Name: "Demo", Surname: "Admin",
	}); err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}

	lender := borrowing.NewService(borrowing.Deps{
		DB:     db.DB,
		Books:  bookRepo,
		Loans:  loans.NewRepository(db.DB),
		Users:  userRepo,
		Policy: borrowing.LimitPolicy{Limit: config.DefaultBorrowLimit},
		Events: auditor,
	})

	ctx := context.Background()
	for _, m := range demoMembers {
		user, err := createMember(userRepo, m)
		if err != nil {
			log.Printf("Failed to create member %s: %v", m.Username, err)
			continue
		}

		for _, isbn := range m.Borrow {
			book, err := bookRepo.FindByISBN(isbn)
			if err != nil {
				log.Printf("Failed to find %s: %v", isbn, err)
				continue
			}
			if _, err := lender.Borrow(ctx, user.ID, book.ID); err != nil {
				log.Printf("Failed to borrow %s for %s: %v", book.Title, m.Username, err)
			}
		}
		for _, isbn := range m.Return {
			book, err := bookRepo.FindByISBN(isbn)
			if err != nil {
				continue
			}
			if err := lender.Return(ctx, user.ID, book.ID); err != nil {
				log.Printf("Failed to return %s for %s: %v", book.Title, m.Username, err)
			}
		}
		log.Printf("Member %s: %d borrowed, %d returned", m.Username, len(m.Borrow), len(m.Return))
	}

	log.Printf("Demo database ready. Log in with any demo user and password %q", demoPassword)
}

func createMember(repo *users.Repository, m demoMember) (*entities.User, error) {
	hash, err := auth.HashPassword(demoPassword, bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &entities.User{
		Username:     m.Username,
		Email:        m.Username + "@demo.local",
		Name:         m.Name,
		Surname:      m.Surname,
		PasswordHash: hash,
		Role:         entities.UserRoleMember,
		IsActive:     true,
	}
	if err := repo.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}
