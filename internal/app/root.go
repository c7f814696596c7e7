// Package app contains the Cobra command tree for fieldcoach.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
	flagUser    string
)

var rootCmd = &cobra.Command{
	Use:   "fieldcoach",
	Short: "Sales-behavior analytics and coaching for field reps",
	Long: `fieldcoach records field sales activities, scores sales behavior
(HIR, RTR, BCR, PHR), detects competitor activity in visit notes, raises
coaching signals, and ranks the next best action per account.

Run 'fieldcoach' with no arguments to list the available commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "fieldcoach", appVersion)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Use a subcommand:")
		fmt.Fprintln(out, "  user        Register the reps fieldcoach tracks")
		fmt.Fprintln(out, "  account     Manage accounts and contacts")
		fmt.Fprintln(out, "  activity    Record and list field activities")
		fmt.Fprintln(out, "  competitor  Record and list competitor signals")
		fmt.Fprintln(out, "  detect      Check free text for competitor activity")
		fmt.Fprintln(out, "  refresh     Recompute behavior scores and outcomes")
		fmt.Fprintln(out, "  metrics     Show HIR, RTR, BCR, PHR and the total score")
		fmt.Fprintln(out, "  correlate   Show which behaviors drive outcomes")
		fmt.Fprintln(out, "  recommend   Rank next best actions per account")
		fmt.Fprintln(out, "  signals     Generate, list and resolve coaching signals")
		fmt.Fprintln(out, "  watch       Run the scheduled coaching cycle")
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/fieldcoach/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "Email of the acting rep (default: user from config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
}
