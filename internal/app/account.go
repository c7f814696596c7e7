package app

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
	"github.com/blackwell-systems/fieldcoach/internal/output"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	userName     string
	contactRole  string
	contactOfAcc string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Register the reps fieldcoach tracks",
}

var userAddCmd = &cobra.Command{
	Use:   "add EMAIL",
	Short: "Register a rep by email",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts and contacts",
}

var accountAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create an account owned by the acting rep",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountAdd,
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the acting rep's accounts",
	RunE:  runAccountList,
}

var contactAddCmd = &cobra.Command{
	Use:   "contact NAME",
	Short: "Add a contact to an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runContactAdd,
}

func init() {
	userAddCmd.Flags().StringVar(&userName, "name", "", "Display name")
	userCmd.AddCommand(userAddCmd)

	contactAddCmd.Flags().StringVar(&contactOfAcc, "account", "", "Account id (required)")
	contactAddCmd.Flags().StringVar(&contactRole, "role", "", "Contact role, e.g. department head")
	_ = contactAddCmd.MarkFlagRequired("account")
	accountCmd.AddCommand(accountAddCmd, accountListCmd, contactAddCmd)

	rootCmd.AddCommand(userCmd, accountCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	email := strings.TrimSpace(args[0])
	if email == "" {
		return fmt.Errorf("email is required: %w", crm.ErrInvalid)
	}
	u := &crm.User{ID: uuid.NewString(), Email: email, Name: userName}
	if err := e.db.InsertUser(cmd.Context(), u); err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), u)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", u.Email, u.ID)
	return nil
}

func runAccountAdd(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	name := strings.TrimSpace(args[0])
	if name == "" {
		return fmt.Errorf("account name is required: %w", crm.ErrInvalid)
	}
	a := &crm.Account{ID: uuid.NewString(), OwnerID: e.userID, Name: name}
	if err := e.db.InsertAccount(cmd.Context(), a); err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), a)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created account %s (%s)\n", a.Name, a.ID)
	return nil
}

func runAccountList(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	accounts, err := e.db.ListAccounts(cmd.Context(), crm.AccountFilter{OwnerID: e.userID})
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), accounts)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, output.Section(fmt.Sprintf("Accounts (%d)", len(accounts))))
	if len(accounts) == 0 {
		fmt.Fprintln(out, output.StyleMuted.Render(" No accounts yet. Add one with 'fieldcoach account add NAME'."))
		return nil
	}
	tbl := output.NewTable("ID", "Name", "Contacts")
	for _, a := range accounts {
		contacts, err := e.db.ListContacts(cmd.Context(), crm.ContactFilter{AccountID: a.ID})
		if err != nil {
			return err
		}
		tbl.AddRow(a.ID, a.Name, fmt.Sprintf("%d", len(contacts)))
	}
	fmt.Fprintln(out)
	tbl.Print(out)
	return nil
}

func runContactAdd(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	acc, err := e.db.GetAccount(cmd.Context(), contactOfAcc)
	if err != nil {
		return err
	}
	if acc.OwnerID != e.userID {
		return crm.Forbiddenf("account %s belongs to another user", acc.ID)
	}
	c := &crm.Contact{ID: uuid.NewString(), AccountID: acc.ID, Name: strings.TrimSpace(args[0]), Role: contactRole}
	if err := e.db.InsertContact(cmd.Context(), c); err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), c)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added contact %s to %s (%s)\n", c.Name, acc.Name, c.ID)
	return nil
}
