package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/blackwell-systems/fieldcoach/internal/coaching"
	"github.com/blackwell-systems/fieldcoach/internal/crm"
	"github.com/blackwell-systems/fieldcoach/internal/output"
	"github.com/spf13/cobra"
)

var (
	signalsAll    bool
	signalsDryRun bool
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Generate, list and resolve coaching signals",
	Long: `List the acting rep's coaching signals, unresolved only by default.

Subcommands generate a fresh set from the current window or mark a signal
resolved once it has been acted on.`,
	RunE: runSignalsList,
}

var signalsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Evaluate the coaching rules and save the signals",
	Long: `Evaluate every coaching rule for the trailing window. Each raised
signal updates the open signal of the same type, or opens a new one.
Use --dry-run to print the signals without saving them.`,
	RunE: runSignalsGenerate,
}

var signalsResolveCmd = &cobra.Command{
	Use:   "resolve ID",
	Short: "Mark a coaching signal resolved",
	Args:  cobra.ExactArgs(1),
	RunE:  runSignalsResolve,
}

func init() {
	signalsCmd.Flags().BoolVar(&signalsAll, "all", false, "Include resolved signals")
	signalsGenerateCmd.Flags().BoolVar(&signalsDryRun, "dry-run", false, "Print signals without saving")
	signalsCmd.AddCommand(signalsGenerateCmd, signalsResolveCmd)
	rootCmd.AddCommand(signalsCmd)
}

func runSignalsList(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	sigs, err := e.coach.List(cmd.Context(), e.userID, signalsAll)
	if err != nil {
		return err
	}
	if flagJSON {
		if sigs == nil {
			sigs = []crm.CoachingSignal{}
		}
		return writeJSON(cmd.OutOrStdout(), sigs)
	}
	renderStoredSignals(cmd.OutOrStdout(), sigs)
	return nil
}

func runSignalsGenerate(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	generated, err := e.coach.Generate(cmd.Context(), e.userID, time.Now())
	if err != nil {
		return err
	}

	if signalsDryRun {
		if flagJSON {
			if generated == nil {
				generated = []coaching.Signal{}
			}
			return writeJSON(cmd.OutOrStdout(), generated)
		}
		renderGenerated(cmd.OutOrStdout(), generated)
		return nil
	}

	saved, err := e.coach.Save(cmd.Context(), e.userID, generated)
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), saved)
	}
	renderStoredSignals(cmd.OutOrStdout(), saved)
	return nil
}

func runSignalsResolve(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	cs, err := e.coach.Resolve(cmd.Context(), e.userID, args[0])
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), cs)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s resolved\n", output.StyleSuccess.Render("✓"), cs.Type)
	return nil
}

func renderGenerated(w io.Writer, sigs []coaching.Signal) {
	fmt.Fprintln(w, output.Section("Coaching signals (not saved)"))
	fmt.Fprintln(w)
	if len(sigs) == 0 {
		fmt.Fprintln(w, " No signals. Keep it up!")
		return
	}
	for i, s := range sigs {
		fmt.Fprintf(w, " #%d %s %s\n", i+1, priorityLabel(s.Priority), output.StyleBold.Render(string(s.Type)))
		fmt.Fprintf(w, "    %s\n", s.Message)
		if s.RecommendedAction != "" {
			fmt.Fprintf(w, "    %s %s\n", output.StyleMuted.Render("→"), s.RecommendedAction)
		}
		fmt.Fprintln(w)
	}
}

func renderStoredSignals(w io.Writer, sigs []crm.CoachingSignal) {
	fmt.Fprintln(w, output.Section(fmt.Sprintf("Coaching signals (%d)", len(sigs))))
	fmt.Fprintln(w)
	if len(sigs) == 0 {
		fmt.Fprintln(w, " No open signals. Keep it up!")
		return
	}
	for _, s := range sigs {
		status := ""
		if s.Resolved {
			status = " " + output.StyleMuted.Render("(resolved)")
		}
		fmt.Fprintf(w, " %s %s%s\n", priorityLabel(s.Priority), output.StyleBold.Render(string(s.Type)), status)
		fmt.Fprintf(w, "    %s\n", s.Message)
		if s.RecommendedAction != "" {
			fmt.Fprintf(w, "    %s %s\n", output.StyleMuted.Render("→"), s.RecommendedAction)
		}
		fmt.Fprintf(w, "    %s\n", output.StyleMuted.Render("id "+s.ID+"  updated "+s.UpdatedAt.Local().Format("2006-01-02 15:04")))
		fmt.Fprintln(w)
	}
}

func priorityLabel(p crm.Priority) string {
	return output.PriorityStyle(p).Render("[" + strings.ToUpper(string(p)) + "]")
}
