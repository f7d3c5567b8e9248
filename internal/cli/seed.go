package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mrlokans/library/internal/database/books"
)

// SeedCatalog is a small set of public-domain titles for local setups.
var SeedCatalog = []books.NewBook{
	{
		Title:           "Pride and Prejudice",
		Description:     "Elizabeth Bennet and Mr. Darcy misjudge each other across five volumes of Regency society.",
		ISBN:            "9780141439518",
		PublicationYear: 1813,
		Pages:           480,
		Rating:          4.3,
		RatingCount:     4200,
		Language:        "English",
		Publisher:       "T. Egerton",
		Authors:         []books.AuthorInput{{FirstName: "Jane", LastName: "Austen", Nationality: "British"}},
		Genres:          []string{"Novel", "Romance"},
	},
	{
		Title:           "Moby-Dick",
		Description:     "Captain Ahab hunts the white whale that took his leg.",
		ISBN:            "9780142437247",
		PublicationYear: 1851,
		Pages:           720,
		Rating:          3.5,
		RatingCount:     1800,
		Language:        "English",
		Publisher:       "Harper & Brothers",
		Authors:         []books.AuthorInput{{FirstName: "Herman", LastName: "Melville", Nationality: "American"}},
		Genres:          []string{"Novel", "Adventure"},
	},
	{
		Title:           "Crime and Punishment",
		Description:     "A former student in St. Petersburg commits murder and lives with it.",
		ISBN:            "9780143058144",
		PublicationYear: 1866,
		Pages:           671,
		Rating:          4.3,
		RatingCount:     2900,
		Language:        "Russian",
		Publisher:       "The Russian Messenger",
		Authors:         []books.AuthorInput{{FirstName: "Fyodor", LastName: "Dostoevsky", Nationality: "Russian"}},
		Genres:          []string{"Novel", "Philosophical fiction"},
	},
	{
		Title:           "Frankenstein",
		Description:     "Victor Frankenstein builds a creature and abandons it.",
		ISBN:            "9780141439471",
		PublicationYear: 1818,
		Pages:           280,
		Rating:          3.9,
		RatingCount:     1500,
		Language:        "English",
		Publisher:       "Lackington, Hughes, Harding, Mavor & Jones",
		Authors:         []books.AuthorInput{{FirstName: "Mary", LastName: "Shelley", Nationality: "British"}},
		Genres:          []string{"Novel", "Gothic fiction"},
	},
	{
		Title:           "The Adventures of Sherlock Holmes",
		Description:     "Twelve cases of the consulting detective, narrated by Dr. Watson.",
		ISBN:            "9780140439076",
		PublicationYear: 1892,
		Pages:           307,
		Rating:          4.3,
		RatingCount:     1100,
		Language:        "English",
		Publisher:       "George Newnes",
		Authors:         []books.AuthorInput{{FirstName: "Arthur", LastName: "Conan Doyle", Nationality: "British"}},
		Genres:          []string{"Short stories", "Detective fiction"},
	},
	{
		Title:           "Les Misérables",
		Description:     "Jean Valjean, released convict, is pursued by Inspector Javert for decades.",
		ISBN:            "9780140444308",
		PublicationYear: 1862,
		Pages:           1463,
		Rating:          4.2,
		RatingCount:     900,
		Language:        "French",
		Publisher:       "A. Lacroix, Verboeckhoven & Cie",
		Authors:         []books.AuthorInput{{FirstName: "Victor", LastName: "Hugo", Nationality: "French"}},
		Genres:          []string{"Novel", "Historical fiction"},
	},
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert a small public-domain catalog",
		Long:  "Insert a small public-domain catalog. Books whose ISBN already exists are skipped.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			added, skipped, err := SeedBooks(books.NewRepository(db.DB), SeedCatalog)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d books (%d already present)\n", added, skipped)
			return nil
		},
	}
}

// SeedBooks adds every catalog entry whose ISBN is not stored yet.
func SeedBooks(repo *books.Repository, catalog []books.NewBook) (added, skipped int, err error) {
	for _, input := range catalog {
		_, err := repo.FindByISBN(input.ISBN)
		switch {
		case err == nil:
			skipped++
			continue
		case !errors.Is(err, books.ErrBookNotFound):
			return added, skipped, fmt.Errorf("lookup %s: %w", input.ISBN, err)
		}

		book, err := repo.AddBook(input)
		if err != nil {
			return added, skipped, fmt.Errorf("add %q: %w", input.Title, err)
		}
		slog.Debug("seeded book", "id", book.ID, "title", book.Title)
		added++
	}
	return added, skipped, nil
}
