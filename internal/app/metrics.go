package app

import (
	"fmt"
	"io"

	"github.com/blackwell-systems/fieldcoach/internal/analytics"
	"github.com/blackwell-systems/fieldcoach/internal/crm"
	"github.com/blackwell-systems/fieldcoach/internal/output"
	"github.com/spf13/cobra"
)

var (
	metricsDays    int
	metricsAccount string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show HIR, RTR, BCR, PHR and the total score",
	Long: `Compute the four sales-behavior indices for the acting rep over a
trailing window and compare them with the window before it.

  HIR  High-Impact Rate: mean composite of the latest behavior scores
  RTR  Relationship Temperature: mean customer sentiment
  BCR  Behavior Consistency: evenness of daily activity volume
  PHR  Pipeline Health: follow-up discipline on next-action dates

Run 'fieldcoach refresh' first so HIR reflects recent activities.`,
	RunE: runMetrics,
}

func init() {
	metricsCmd.Flags().IntVar(&metricsDays, "days", 0, "Trailing days to analyze (default: analysis window)")
	metricsCmd.Flags().StringVar(&metricsAccount, "account", "", "Restrict RTR, BCR and PHR to one account")
	rootCmd.AddCommand(metricsCmd)
}

// metricsOutput is the JSON-serializable output for the metrics command.
type metricsOutput struct {
	Period    crm.Period        `json:"period"`
	AccountID string            `json:"account_id,omitempty"`
	Current   analytics.Metrics `json:"current"`
	Previous  analytics.Metrics `json:"previous"`
}

func runMetrics(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	period := e.window(metricsDays)
	current, err := e.calc.Aggregate(cmd.Context(), e.userID, period, metricsAccount)
	if err != nil {
		return err
	}
	previous, err := e.calc.Aggregate(cmd.Context(), e.userID, period.Previous(), metricsAccount)
	if err != nil {
		return err
	}

	res := metricsOutput{Period: period, AccountID: metricsAccount, Current: current, Previous: previous}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	renderMetrics(cmd.OutOrStdout(), res)
	return nil
}

func renderMetrics(w io.Writer, m metricsOutput) {
	title := fmt.Sprintf("Sales behavior (%s to %s)",
		m.Period.Start.Local().Format("2006-01-02"), m.Period.End.Local().Format("2006-01-02"))
	fmt.Fprintln(w, output.Section(title))

	rows := []struct {
		label     string
		cur, prev int
	}{
		{"HIR  high impact", m.Current.HIR, m.Previous.HIR},
		{"RTR  relationship", m.Current.RTR, m.Previous.RTR},
		{"BCR  consistency", m.Current.BCR, m.Previous.BCR},
		{"PHR  pipeline health", m.Current.PHR, m.Previous.PHR},
	}
	for _, r := range rows {
		fmt.Fprintf(w, " %s%s  %s\n", output.StyleLabel.Render(r.label), output.ScoreBar(r.cur, 20), output.TrendArrow(r.cur-r.prev))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, " %s%s  %s\n",
		output.StyleLabel.Render("Total"),
		output.ScoreStyle(m.Current.Total).Bold(true).Render(fmt.Sprintf("%d/100", m.Current.Total)),
		output.TrendArrow(m.Current.Total-m.Previous.Total))
	if m.AccountID != "" {
		fmt.Fprintf(w, " %s%s\n", output.StyleLabel.Render("Account"), m.AccountID)
	}
}
