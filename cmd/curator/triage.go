package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/jonathan/content-curator/internal/config"
	"github.com/jonathan/content-curator/internal/correspondence"
)

var triageJSON bool

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Classify new inbox mail and draft replies for review",
	Long: `Read inbox messages received since the last check, classify unknown senders,
keep the contact spreadsheet current and draft replies using the guidance files
under triage.context_dir. Drafts are printed, never sent.

Google credentials come from GOOGLE_APPLICATION_CREDENTIALS or the default
application credentials.`,
	Args: cobra.NoArgs,
	RunE: runTriage,
}

func init() {
	triageCmd.Flags().BoolVar(&triageJSON, "json", false, "Print the triage report as JSON")
	rootCmd.AddCommand(triageCmd)
}

func googleOptions(secrets config.Secrets, scopes ...string) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(scopes...)}
	if secrets.GoogleCredsFile != "" {
		opts = append(opts, option.WithCredentialsFile(secrets.GoogleCredsFile))
	}
	return opts
}

func runTriage(_ *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	tc := a.cfg.Triage
	if tc.SpreadsheetID == "" {
		if tc.SpreadsheetID = os.Getenv("EMAIL_CRM_SPREADSHEET_ID"); tc.SpreadsheetID == "" {
			return &config.ConfigurationError{Field: "triage.spreadsheet_id", Message: "required (or set EMAIL_CRM_SPREADSHEET_ID)"}
		}
	}

	client, err := a.llmClient(ctx)
	if err != nil {
		return err
	}
	crm, err := correspondence.NewSheetsCRM(ctx, tc.SpreadsheetID, tc.SheetName,
		googleOptions(a.secrets, sheets.SpreadsheetsScope)...)
	if err != nil {
		return err
	}
	inbox, err := correspondence.NewGmailSource(ctx, googleOptions(a.secrets, gmail.GmailReadonlyScope)...)
	if err != nil {
		return err
	}

	triager := correspondence.NewTriager(inbox, crm, correspondence.NewContextStore(tc.ContextDir), client, correspondence.Options{
		MetadataPath:  tc.MetadataPath,
		SpreadsheetID: tc.SpreadsheetID,
		Logger:        a.logger,
		Metrics:       a.metrics,
	})
	report, err := triager.Run(ctx)
	if err != nil {
		return err
	}
	a.logger.WithFields(logrus.Fields{
		"messages":   report.Messages,
		"classified": report.Classified,
		"drafts":     len(report.Drafts),
		"failures":   len(report.Failures),
	}).Info("Triage finished")
	return printReport(os.Stdout, report, triageJSON)
}

func printReport(w io.Writer, report *correspondence.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "Checked %d message(s), classified %d contact(s), drafted %d repl(ies).\n",
		report.Messages, report.Classified, len(report.Drafts))
	for _, d := range report.Drafts {
		fmt.Fprintf(w, "\nTo: %s\nSubject: %s\nPriority: %s", d.Email, d.Subject, d.Draft.Priority)
		if d.Draft.FollowUpDate != "" {
			fmt.Fprintf(w, "  Follow-up: %s", d.Draft.FollowUpDate)
		}
		fmt.Fprintf(w, "\n\n%s\n", d.Draft.Text)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(w, "\nFailed: %s\n", f)
	}
	return nil
}
