package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
	"github.com/blackwell-systems/fieldcoach/internal/detect"
	"github.com/blackwell-systems/fieldcoach/internal/output"
	"github.com/spf13/cobra"
)

var (
	competitorAccount string
	competitorNote    string
	competitorDays    int
	detectExtra       []string
)

var competitorCmd = &cobra.Command{
	Use:   "competitor",
	Short: "Record and list competitor signals",
}

var competitorAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Record a competitor sighting at an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompetitorAdd,
}

var competitorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent competitor signals",
	RunE:  runCompetitorList,
}

var detectCmd = &cobra.Command{
	Use:   "detect TEXT",
	Short: "Check free text for competitor activity",
	Long: `Run the competitor detector over a piece of text without storing
anything. Competitor names come from the config file plus --competitor.

Examples:
  fieldcoach detect "경쟁사 제품을 사용 중이라고 함. 가격 문의도 있었음"
  fieldcoach detect --competitor Acme "Dr. Kim asked about Acme pricing"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	competitorAddCmd.Flags().StringVar(&competitorAccount, "account", "", "Account id (required)")
	competitorAddCmd.Flags().StringVar(&competitorNote, "note", "", "What was observed")
	_ = competitorAddCmd.MarkFlagRequired("account")

	competitorListCmd.Flags().StringVar(&competitorAccount, "account", "", "Only signals for this account")
	competitorListCmd.Flags().IntVar(&competitorDays, "days", 0, "Trailing days to show (default: analysis window)")

	competitorCmd.AddCommand(competitorAddCmd, competitorListCmd)

	detectCmd.Flags().StringSliceVar(&detectExtra, "competitor", nil, "Additional competitor names")
	rootCmd.AddCommand(competitorCmd, detectCmd)
}

func runCompetitorAdd(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	sig, err := e.activities.RecordCompetitor(cmd.Context(), e.userID, competitorAccount, args[0], competitorNote)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if sig == nil {
		if flagJSON {
			return writeJSON(out, struct {
				Duplicate bool `json:"duplicate"`
			}{true})
		}
		fmt.Fprintln(out, output.StyleMuted.Render("Already recorded today for this account; skipped."))
		return nil
	}
	if flagJSON {
		return writeJSON(out, sig)
	}
	fmt.Fprintf(out, "Recorded competitor %s (%s)\n", sig.Competitor, sig.ID)
	return nil
}

func runCompetitorList(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	period := e.window(competitorDays)
	sigs, err := e.db.ListCompetitorSignals(cmd.Context(), crm.CompetitorSignalFilter{
		UserID:    e.userID,
		AccountID: competitorAccount,
		From:      period.Start,
		To:        period.End,
	})
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), sigs)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, output.Section(fmt.Sprintf("Competitor signals (%d)", len(sigs))))
	if len(sigs) == 0 {
		fmt.Fprintln(out, output.StyleMuted.Render(" None in the window."))
		return nil
	}
	tbl := output.NewTable("Detected", "Account", "Competitor", "Type", "Confidence", "Description")
	for _, s := range sigs {
		conf := "-"
		if s.Confidence != nil {
			conf = fmt.Sprintf("%.2f", *s.Confidence)
		}
		tbl.AddRow(s.DetectedAt.Local().Format("2006-01-02 15:04"), shortID(s.AccountID),
			s.Competitor, string(s.Type), conf, orDash(s.Description))
	}
	fmt.Fprintln(out)
	tbl.Print(out)
	return nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	names := append(append([]string{}, cfg.Competitors...), detectExtra...)
	det := detect.New(names).Detect(strings.Join(args, " "))

	out := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(out, struct {
			Detected  bool              `json:"detected"`
			Detection *detect.Detection `json:"detection,omitempty"`
			CheckedAt time.Time         `json:"checked_at"`
		}{det != nil, det, time.Now()})
	}
	if det == nil {
		fmt.Fprintln(out, output.StyleSuccess.Render("No competitor activity detected."))
		return nil
	}
	fmt.Fprintln(out, output.Section("Competitor activity detected"))
	fmt.Fprintf(out, " %s%s\n", output.StyleLabel.Render("Competitor"), det.Competitor)
	fmt.Fprintf(out, " %s%s\n", output.StyleLabel.Render("Type"), det.Type)
	fmt.Fprintf(out, " %s%.2f\n", output.StyleLabel.Render("Confidence"), det.Confidence)
	fmt.Fprintf(out, " %s%s\n", output.StyleLabel.Render("Description"), det.Description)
	if len(det.Matched) > 0 {
		fmt.Fprintf(out, " %s%s\n", output.StyleLabel.Render("Matched"), strings.Join(det.Matched, ", "))
	}
	return nil
}
