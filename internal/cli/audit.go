package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrlokans/library/internal/audit"
	auditrepo "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/tasks"
)

func newCleanupAuditCommand() *cobra.Command {
	var retentionDays int

	cmd := &cobra.Command{
		Use:   "cleanup-audit",
		Short: "Delete audit events older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			if !cmd.Flags().Changed("retention-days") {
				retentionDays = cfg.Audit.RetentionDays
			}

			auditor := audit.NewService(auditrepo.NewRepository(db.DB))
			deleted, err := tasks.CleanupAuditEvents(auditor, tasks.CleanupAuditEventsTask{RetentionDays: retentionDays})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d audit events\n", deleted)
			return nil
		},
	}

	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "override AUDIT_RETENTION_DAYS")
	return cmd
}
