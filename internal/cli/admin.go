package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	auditrepo "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/users"
)

var errPasswordMismatch = errors.New("passwords do not match")

func newCreateAdminCommand() *cobra.Command {
	var reg auth.Registration

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an active admin account",
		Long: "Create an active admin account. The password is read from the terminal\n" +
			"without echo, or as two lines from stdin when stdin is not a terminal.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readNewPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			reg.Password = password

			cfg, db, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
			service := auth.NewService(users.NewRepository(db.DB), tokens, auth.LogNotifier{}, cfg.Auth)

			user, err := service.CreateAdmin(reg)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}

			auditor := audit.NewService(auditrepo.NewRepository(db.DB))
			auditor.LogAccount(user.ID, "admin_create", "Admin created from the command line",
				map[string]any{"username": user.Username})
			auditor.Wait()

			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&reg.Username, "username", "", "admin username (required)")
	cmd.Flags().StringVar(&reg.Email, "email", "", "admin email (required)")
	cmd.Flags().StringVar(&reg.Name, "name", "Library", "first name")
	cmd.Flags().StringVar(&reg.Surname, "surname", "Admin", "last name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// readNewPassword asks for the password twice.
func readNewPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		first, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}

		fmt.Fprint(prompt, "Confirm password: ")
		second, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return matchPasswords(string(first), string(second))
	}

	scanner := bufio.NewScanner(in)
	var lines []string
	for len(lines) < 2 && scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(lines) < 2 {
		return "", errors.New("expected the password and its confirmation on stdin")
	}
	return matchPasswords(lines[0], lines[1])
}

func matchPasswords(first, second string) (string, error) {
	first = strings.TrimRight(first, "\r\n")
	second = strings.TrimRight(second, "\r\n")
	if first != second {
		return "", errPasswordMismatch
	}
	return first, nil
}
