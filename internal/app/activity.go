package app

import (
	"fmt"
	"time"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
	"github.com/blackwell-systems/fieldcoach/internal/output"
	"github.com/spf13/cobra"
)

// activityFlags holds the field flags shared by activity add and update.
type activityFlags struct {
	account     string
	contact     string
	kind        string
	behavior    string
	note        string
	quality     int
	quantity    int
	duration    int
	sentiment   int
	next        string
	outcome     string
	performedAt string
}

func (f *activityFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.account, "account", "", "Account id")
	fs.StringVar(&f.contact, "contact", "", "Contact id")
	fs.StringVar(&f.kind, "kind", string(crm.KindVisit), "Activity kind: visit, call, message, presentation, follow_up")
	fs.StringVar(&f.behavior, "behavior", "", "Behavior: approach, contact, visit, presentation, question, need_creation, demonstration, follow_up")
	fs.StringVar(&f.note, "note", "", "Free-text description, scanned for competitor activity")
	fs.IntVar(&f.quality, "quality", 50, "Quality score 0-100")
	fs.IntVar(&f.quantity, "quantity", 50, "Quantity score 0-100")
	fs.IntVar(&f.duration, "duration", 0, "Duration in minutes")
	fs.IntVar(&f.sentiment, "sentiment", 0, "Customer sentiment 0-100 (omit when unknown)")
	fs.StringVar(&f.next, "next", "", "Next action date (YYYY-MM-DD)")
	fs.StringVar(&f.outcome, "outcome", "", "Outcome tag: won, ongoing, lost")
	fs.StringVar(&f.performedAt, "at", "", "When the activity happened (default: now)")
}

// apply copies every flag the user set onto a. Unset flags leave a
// untouched unless all is true.
func (f *activityFlags) apply(cmd *cobra.Command, a *crm.Activity, all bool) error {
	set := func(name string) bool { return all || cmd.Flags().Changed(name) }

	if set("account") {
		a.AccountID = f.account
	}
	if set("contact") {
		a.ContactID = f.contact
	}
	if set("kind") {
		a.Kind = crm.ActivityKind(f.kind)
	}
	if set("behavior") {
		a.Behavior = crm.BehaviorType(f.behavior)
	}
	if set("note") {
		a.Description = f.note
	}
	if set("quality") {
		a.QualityScore = f.quality
	}
	if set("quantity") {
		a.QuantityScore = f.quantity
	}
	if set("duration") {
		a.DurationMin = f.duration
	}
	if cmd.Flags().Changed("sentiment") {
		v := f.sentiment
		a.SentimentScore = &v
	}
	if cmd.Flags().Changed("next") {
		t, err := parseTime(f.next, time.Time{})
		if err != nil {
			return err
		}
		a.NextActionDate = &t
	}
	if cmd.Flags().Changed("outcome") {
		if f.outcome == "" {
			a.Outcome = nil
		} else {
			tag := crm.OutcomeTag(f.outcome)
			a.Outcome = &tag
		}
	}
	if cmd.Flags().Changed("at") {
		t, err := parseTime(f.performedAt, time.Time{})
		if err != nil {
			return err
		}
		a.PerformedAt = t
	}
	return nil
}

var (
	activityAdd    activityFlags
	activityUpdate activityFlags
	activityListAc string
	activityLimit  int
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Record and list field activities",
}

var activityAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a field activity",
	Long: `Record a field activity for the acting rep. The note is scanned for
competitor activity; detected signals are stored alongside the activity.

Examples:
  fieldcoach activity add --account ACC --behavior visit --quality 80 \
    --sentiment 70 --next 2026-03-20 --note "경쟁사 제품을 사용 중, 가격 문의"`,
	RunE: runActivityAdd,
}

var activityUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change fields of an activity",
	Args:  cobra.ExactArgs(1),
	RunE:  runActivityUpdate,
}

var activityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent activities, newest first",
	RunE:  runActivityList,
}

var activityDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an activity",
	Args:  cobra.ExactArgs(1),
	RunE:  runActivityDelete,
}

func init() {
	activityAdd.register(activityAddCmd)
	_ = activityAddCmd.MarkFlagRequired("account")
	_ = activityAddCmd.MarkFlagRequired("behavior")
	activityUpdate.register(activityUpdateCmd)

	activityListCmd.Flags().StringVar(&activityListAc, "account", "", "Only activities for this account")
	activityListCmd.Flags().IntVar(&activityLimit, "limit", 20, "Maximum rows")

	activityCmd.AddCommand(activityAddCmd, activityUpdateCmd, activityListCmd, activityDeleteCmd)
	rootCmd.AddCommand(activityCmd)
}

func runActivityAdd(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	var a crm.Activity
	if err := activityAdd.apply(cmd, &a, true); err != nil {
		return err
	}
	created, err := e.activities.Create(cmd.Context(), e.userID, a)
	if err != nil {
		return err
	}

	detected, err := competitorsFor(cmd, e, created)
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			Activity    *crm.Activity          `json:"activity"`
			Competitors []crm.CompetitorSignal `json:"competitor_signals,omitempty"`
		}{created, detected})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Recorded %s activity %s\n", created.Behavior, created.ID)
	for _, s := range detected {
		fmt.Fprintf(out, "%s %s (%s, %s)\n",
			output.StyleWarning.Render("Competitor signal:"), s.Competitor, s.Type, s.Description)
	}
	return nil
}

// competitorsFor returns the competitor signals raised by activity a.
func competitorsFor(cmd *cobra.Command, e *env, a *crm.Activity) ([]crm.CompetitorSignal, error) {
	sigs, err := e.db.ListCompetitorSignals(cmd.Context(), crm.CompetitorSignalFilter{
		UserID:    e.userID,
		AccountID: a.AccountID,
	})
	if err != nil {
		return nil, err
	}
	var out []crm.CompetitorSignal
	for _, s := range sigs {
		if s.ActivityID == a.ID {
			out = append(out, s)
		}
	}
	return out, nil
}

func runActivityUpdate(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	existing, err := e.db.GetActivity(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	a := *existing
	if err := activityUpdate.apply(cmd, &a, false); err != nil {
		return err
	}
	updated, err := e.activities.Update(cmd.Context(), e.userID, a)
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), updated)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s\n", updated.ID)
	return nil
}

func runActivityList(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	acts, err := e.activities.List(cmd.Context(), e.userID, activityListAc, activityLimit)
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), acts)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, output.Section(fmt.Sprintf("Activities (%d)", len(acts))))
	if len(acts) == 0 {
		fmt.Fprintln(out, output.StyleMuted.Render(" No activities recorded."))
		return nil
	}
	tbl := output.NewTable("ID", "When", "Account", "Behavior", "Quality", "Sentiment", "Outcome")
	for _, a := range acts {
		sentiment, outcome := "-", "-"
		if a.SentimentScore != nil {
			sentiment = fmt.Sprintf("%d", *a.SentimentScore)
		}
		if a.Outcome != nil {
			outcome = string(*a.Outcome)
		}
		tbl.AddRow(a.ID, a.PerformedAt.Local().Format("2006-01-02 15:04"), shortID(a.AccountID),
			string(a.Behavior), output.ScoreStyle(a.QualityScore).Render(fmt.Sprintf("%d", a.QualityScore)),
			sentiment, outcome)
	}
	fmt.Fprintln(out)
	tbl.Print(out)
	return nil
}

func runActivityDelete(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	if err := e.activities.Delete(cmd.Context(), e.userID, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted activity %s\n", args[0])
	return nil
}
