// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (SQLite or PostgreSQL), migrations
//	├── books/           # Catalog: availability reads/writes, listing, admin CRUD
//	├── loans/           # Loan ledger (borrowed_books)
//	├── users/           # Accounts, profile patches, lending counters
//	└── audit/           # Audit event storage
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase(cfg.Database)
//
//	catalog := books.NewRepository(db.DB)
//	ledger := loans.NewRepository(db.DB)
//
//	book, err := catalog.GetBook(42)
//
// # Transactions
//
// Repositories used inside a multi-step write are rebound to the transaction
// handle with WithTx, so every statement runs on the same connection:
//
//	err := db.DB.Transaction(func(tx *gorm.DB) error {
//		if err := ledger.WithTx(tx).CreateLoan(loan); err != nil {
//			return err
//		}
//		return catalog.WithTx(tx).SetAvailability(bookID, entities.AvailabilityUnavailable)
//	})
package database
