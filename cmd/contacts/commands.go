package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/dirk.krummacker/contacts-store/internal/config"
	"gitlab.com/dirk.krummacker/contacts-store/internal/model"
	"gitlab.com/dirk.krummacker/contacts-store/internal/store"
)

type commandDeps struct {
	configPath *string
	dbPath     *string
	verbose    *bool
}

// openStore opens the store configured by the global flags, the config file and the environment.
func (d commandDeps) openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := config.Load(*d.configPath)
	if err != nil {
		return nil, err
	}
	if *d.dbPath != "" {
		cfg.Database.Driver = store.DriverSQLite
		cfg.Database.Path = *d.dbPath
	}
	if !*d.verbose {
		cfg.Logging.Level = "warn"
	}
	logger := cfg.Logging.NewLogger(os.Stderr)
	return store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN(), store.WithLogger(logger))
}

// withStore opens the store, runs fn and closes the store again.
func (d commandDeps) withStore(cmd *cobra.Command, fn func(ctx context.Context, s *store.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := d.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		dbPath     string
		verbose    bool
	)
	deps := commandDeps{configPath: &configPath, dbPath: &dbPath, verbose: &verbose}
	cmd := &cobra.Command{
		Use:          "contacts",
		Short:        "Manage contacts with their email addresses and phone numbers",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file (overrides the configuration)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log store activity")
	cmd.AddCommand(
		newAddCommand(deps),
		newShowCommand(deps),
		newListCommand(deps),
		newSetEmailsCommand(deps),
		newSetPhonesCommand(deps),
	)
	return cmd
}

func newAddCommand(deps commandDeps) *cobra.Command {
	var (
		first  string
		last   string
		emails []string
		phones []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a contact",
		Example: "  contacts add --first Erika --last Mustermann --email work=erika@example.com\n" +
			"  contacts add --first Hans --phone home=0815 --phone work=4711",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			emailRows, err := parseEmails(emails)
			if err != nil {
				return err
			}
			phoneRows, err := parsePhones(phones)
			if err != nil {
				return err
			}
			return deps.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				contact := s.NewContact(first, last)
				contact.Emails = emailRows
				contact.Phones = phoneRows
				if _, err := contact.Save(ctx); err != nil {
					return err
				}
				printContact(cmd.OutOrStdout(), contact)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&first, "first", "", "first name")
	cmd.Flags().StringVar(&last, "last", "", "last name")
	cmd.Flags().StringArrayVar(&emails, "email", nil, "email address as type=address, repeatable")
	cmd.Flags().StringArrayVar(&phones, "phone", nil, "phone number as type=number, repeatable")
	return cmd
}

func newShowCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "show ID",
		Short:   "Show a contact with its email addresses and phone numbers",
		Example: "  contacts show 1",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return deps.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				contact, err := loadContact(ctx, s, id)
				if err != nil {
					return err
				}
				printContact(cmd.OutOrStdout(), contact)
				return nil
			})
		},
	}
}

func newListCommand(deps commandDeps) *cobra.Command {
	var query store.ContactQuery
	var descending bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		Example: "  contacts list\n" +
			"  contacts list --last Muster --order-by firstname --desc",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query.Descending = descending
			return deps.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				found, err := s.FindContacts(ctx, query)
				if err != nil {
					return err
				}
				for _, contact := range found {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", *contact.Id, contact.FirstName, contact.LastName)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&query.FirstName, "first", "", "beginning of the first name")
	cmd.Flags().StringVar(&query.LastName, "last", "", "beginning of the last name")
	cmd.Flags().IntVar(&query.Limit, "limit", 0, "maximum number of contacts, 0 for all")
	cmd.Flags().IntVar(&query.Offset, "offset", 0, "number of contacts to skip")
	cmd.Flags().StringVar(&query.OrderBy, "order-by", "id", "id, firstname or lastname")
	cmd.Flags().BoolVar(&descending, "desc", false, "sort in descending order")
	return cmd
}

func newSetEmailsCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "set-emails ID [TYPE=ADDRESS...]",
		Short: "Replace the email addresses of a contact",
		Example: "  contacts set-emails 1 work=erika@example.com home=erika@home.example\n" +
			"  contacts set-emails 1",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			emails, err := parseEmails(args[1:])
			if err != nil {
				return err
			}
			return deps.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				contact, err := s.GetContact(ctx, id)
				if err != nil {
					return err
				}
				contact.Emails = emails
				if err := reloadAndSave(ctx, contact, true); err != nil {
					return err
				}
				printContact(cmd.OutOrStdout(), contact)
				return nil
			})
		},
	}
}

func newSetPhonesCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "set-phones ID [TYPE=NUMBER...]",
		Short:   "Replace the phone numbers of a contact",
		Example: "  contacts set-phones 1 home=0815 work=4711",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			phones, err := parsePhones(args[1:])
			if err != nil {
				return err
			}
			return deps.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				contact, err := s.GetContact(ctx, id)
				if err != nil {
					return err
				}
				contact.Phones = phones
				if err := reloadAndSave(ctx, contact, false); err != nil {
					return err
				}
				printContact(cmd.OutOrStdout(), contact)
				return nil
			})
		},
	}
}

// reloadAndSave loads the stored children of contact, keeping the list that was just replaced
// (the emails if keepEmails, the phones otherwise), and saves the contact.
func reloadAndSave(ctx context.Context, contact *store.Contact, keepEmails bool) error {
	emails, phones := contact.Emails, contact.Phones
	if err := contact.LoadNavigationProperties(ctx); err != nil {
		return err
	}
	if keepEmails {
		contact.Emails = emails
	} else {
		contact.Phones = phones
	}
	_, err := contact.Save(ctx)
	return err
}

func loadContact(ctx context.Context, s *store.Store, id int64) (*store.Contact, error) {
	contact, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := contact.LoadNavigationProperties(ctx); err != nil {
		return nil, err
	}
	return contact, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid contact id %q", raw)
	}
	return id, nil
}

// parseEntries splits each "type=value" argument at the first '='.
func parseEntries(raw []string) ([][2]string, error) {
	entries := make([][2]string, 0, len(raw))
	for _, r := range raw {
		kind, value, found := strings.Cut(r, "=")
		if !found || strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("invalid entry %q, expected type=value", r)
		}
		entries = append(entries, [2]string{strings.TrimSpace(kind), strings.TrimSpace(value)})
	}
	return entries, nil
}

func parseEmails(raw []string) ([]model.EmailAddress, error) {
	entries, err := parseEntries(raw)
	if err != nil {
		return nil, err
	}
	emails := make([]model.EmailAddress, 0, len(entries))
	for _, e := range entries {
		emails = append(emails, model.EmailAddress{Type: e[0], Email: e[1]})
	}
	return emails, nil
}

func parsePhones(raw []string) ([]model.PhoneNumber, error) {
	entries, err := parseEntries(raw)
	if err != nil {
		return nil, err
	}
	phones := make([]model.PhoneNumber, 0, len(entries))
	for _, e := range entries {
		phones = append(phones, model.PhoneNumber{Type: e[0], Phone: e[1]})
	}
	return phones, nil
}

func printContact(out io.Writer, contact *store.Contact) {
	fmt.Fprintf(out, "%d\t%s %s\n", *contact.Id, contact.FirstName, contact.LastName)
	for _, e := range contact.Emails {
		fmt.Fprintf(out, "  email\t%s\t%s\n", e.Type, e.Email)
	}
	for _, p := range contact.Phones {
		fmt.Fprintf(out, "  phone\t%s\t%s\n", p.Type, p.Phone)
	}
}
