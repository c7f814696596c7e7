package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/blackwell-systems/fieldcoach/internal/analytics"
	"github.com/blackwell-systems/fieldcoach/internal/crm"
	"github.com/blackwell-systems/fieldcoach/internal/output"
	"github.com/spf13/cobra"
)

var (
	refreshPeriod string
	refreshFrom   string
	refreshTo     string

	correlateDays int

	recommendLimit int
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Recompute behavior scores and outcomes",
	Long: `Rebuild the behavior-score and outcome snapshots for every period in a
date range from the recorded activities. Existing snapshots for each period
are replaced, so the command can be re-run safely.

Examples:
  fieldcoach refresh                                  # daily, trailing window
  fieldcoach refresh --period weekly --from 2026-01-05 --to 2026-03-30`,
	RunE: runRefresh,
}

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Show which behaviors drive outcomes",
	Long: `Correlate per-behavior composites with outcome snapshots over time.
With too few snapshots the analysis falls back to won/lost outcome tags on
activities and only the conversion column is populated.`,
	RunE: runCorrelate,
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank next best actions per account",
	RunE:  runRecommend,
}

func init() {
	refreshCmd.Flags().StringVar(&refreshPeriod, "period", string(crm.PeriodDaily), "Period type: daily, weekly, monthly, quarterly, yearly")
	refreshCmd.Flags().StringVar(&refreshFrom, "from", "", "Range start, inclusive (default: window start)")
	refreshCmd.Flags().StringVar(&refreshTo, "to", "", "Range end, exclusive (default: tomorrow)")

	correlateCmd.Flags().IntVar(&correlateDays, "days", 0, "Trailing days to analyze (default: analysis window)")

	recommendCmd.Flags().IntVar(&recommendLimit, "limit", 0, "Maximum recommendations (default: from config)")

	rootCmd.AddCommand(refreshCmd, correlateCmd, recommendCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	today := startOfDay(time.Now())
	from, err := parseTime(refreshFrom, today.AddDate(0, 0, -e.cfg.Analytics.WindowDays))
	if err != nil {
		return err
	}
	to, err := parseTime(refreshTo, today.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	res, err := e.refresher.Refresh(cmd.Context(), e.userID, crm.PeriodType(refreshPeriod), from, to)
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %d %s periods (%d behavior scores, %d outcomes)\n",
		res.Periods, refreshPeriod, res.BehaviorScores, res.Outcomes)
	return nil
}

func runCorrelate(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	c, err := e.correlator.Compute(cmd.Context(), e.userID, e.window(correlateDays))
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), c)
	}
	renderCorrelations(cmd.OutOrStdout(), c)
	return nil
}

func renderCorrelations(w io.Writer, c analytics.Correlations) {
	fmt.Fprintln(w, output.Section("Behavior / outcome correlation"))
	fmt.Fprintf(w, " %s%s (%d points)\n", output.StyleLabel.Render("Method"), c.Method, c.Points)

	headers := []string{"Behavior"}
	for _, o := range crm.AllOutcomeTypes {
		headers = append(headers, string(o))
	}
	tbl := output.NewTable(headers...)
	for _, b := range crm.AllBehaviorTypes {
		row := []string{string(b)}
		for _, o := range crm.AllOutcomeTypes {
			row = append(row, output.Weight(c.Weight(b, o)))
		}
		tbl.AddRow(row...)
	}
	fmt.Fprintln(w)
	tbl.Print(w)

	top := make([]string, 0, len(c.TopBehaviorsForConversion))
	for _, b := range c.TopBehaviorsForConversion {
		top = append(top, string(b))
	}
	if len(top) == 0 {
		fmt.Fprintln(w, output.StyleMuted.Render(" Not enough data to rank behaviors for conversion."))
		return
	}
	fmt.Fprintf(w, "\n %s%s\n", output.StyleLabel.Render("Top for conversion"), output.StyleBold.Render(strings.Join(top, ", ")))
}

func runRecommend(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	limit := recommendLimit
	if limit <= 0 {
		limit = e.cfg.Recommend.Limit
	}
	actions, err := e.recommender.Recommend(cmd.Context(), e.userID, time.Now(), limit)
	if err != nil {
		return err
	}
	if flagJSON {
		if actions == nil {
			actions = []crm.NextBestAction{}
		}
		return writeJSON(cmd.OutOrStdout(), actions)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, output.Section("Next best actions"))
	if len(actions) == 0 {
		fmt.Fprintln(out, output.StyleMuted.Render(" No recommendations yet. Tag activity outcomes (won/lost) to build a conversion profile."))
		return nil
	}
	tbl := output.NewTable("Priority", "Account", "Contact", "Behavior", "Reason")
	for _, a := range actions {
		tbl.AddRow(output.ScoreStyle(a.Priority).Render(fmt.Sprintf("%d", a.Priority)),
			a.AccountName, orDash(a.ContactName), string(a.Behavior), a.Reason)
	}
	fmt.Fprintln(out)
	tbl.Print(out)
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
