package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./library.db"

	// DefaultBorrowLimit is the number of books a user may hold at once
	DefaultBorrowLimit = 5

	// DefaultLoanPeriod is 14 days
	DefaultLoanPeriod = "336h"
)
