// trackerctl is a command line client for the tracker API. It keeps the
// session token under the user config directory and mirrors the server's
// records through the client state store.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/AyushBalyan/Expense-Tracker/internal/client"
	"github.com/AyushBalyan/Expense-Tracker/internal/core"
)

var serverURL string

func main() {
	root := &cobra.Command{
		Use:           "trackerctl",
		Short:         "Personal finance tracker client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8081", "tracker server base URL")

	root.AddCommand(
		registerCmd(),
		loginCmd(),
		logoutCmd(),
		categoriesCmd(),
		incomeCmd(),
		expensesCmd(),
		dashboardCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func credentialPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "tracker", "token")
}

func newSession() *client.Session {
	api := client.NewAPIClient(serverURL)
	creds := client.NewFileCredentialStore(credentialPath())
	return client.NewSession(api, client.NewStore(), creds)
}

// authedSession restores the saved session and loads all records.
func authedSession(ctx context.Context) (*client.Session, error) {
	s := newSession()
	if err := s.Bootstrap(ctx); err != nil {
		return nil, err
	}
	if s.Store().State().User == nil {
		return nil, fmt.Errorf("not logged in; run 'trackerctl login' first")
	}
	return s, nil
}

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <email> <password>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession()
			if err := s.Register(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Registered and logged in as %s\n", args[0])
			return nil
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Log in and save the session token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession()
			if err := s.Login(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Logged in as %s\n", args[0])
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the saved session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newSession().Logout(); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage expense categories",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := authedSession(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, c := range s.Store().State().Categories {
				fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name)
			}
			return w.Flush()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := authedSession(cmd.Context())
			if err != nil {
				return err
			}
			c, err := s.AddCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Created category %d (%s)\n", c.ID, c.Name)
			return nil
		},
	})
	return cmd
}

func incomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Manage monthly income records",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List income records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := authedSession(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tAMOUNT\tMONTH\tYEAR\tLOCKED")
			for _, in := range s.Store().State().IncomeHistory {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%t\n", in.ID, in.Amount.String(), in.Month, in.Year, in.IsLocked)
			}
			return w.Flush()
		},
	})

	var month, year int
	add := &cobra.Command{
		Use:   "add <amount>",
		Short: "Record income for a month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			s, err := authedSession(cmd.Context())
			if err != nil {
				return err
			}
			in, err := s.AddIncome(cmd.Context(), core.IncomeRecord{Amount: amount, Month: month, Year: year})
			if err != nil {
				return err
			}
			fmt.Printf("Recorded income %d: %s for %d/%d\n", in.ID, in.Amount.String(), in.Month, in.Year)
			return nil
		},
	}
	add.Flags().IntVar(&month, "month", 0, "month (1-12)")
	add.Flags().IntVar(&year, "year", 0, "year")
	_ = add.MarkFlagRequired("month")
	_ = add.MarkFlagRequired("year")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "lock <id>",
		Short: "Lock an income record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := authedSession(cmd.Context())
			if err != nil {
				return err
			}
			in, err := s.LockIncome(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("Locked income %d\n", in.ID)
			return nil
		},
	})
	return cmd
}

func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Manage expenses",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := authedSession(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tTITLE\tAMOUNT\tCATEGORY")
			for _, e := range s.Store().State().Expenses {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", e.ID, e.Date.String(), e.Title, e.Amount.String(), e.CategoryID)
			}
			return w.Flush()
		},
	})

	var categoryID int64
	var date string
	add := &cobra.Command{
		Use:   "add <title> <amount>",
		Short: "Record an expense",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			d, err := core.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
			}
			s, err := authedSession(cmd.Context())
			if err != nil {
				return err
			}
			e, err := s.AddExpense(cmd.Context(), core.ExpenseRecord{
				Title: args[0], Amount: amount, CategoryID: categoryID, Date: d,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Recorded expense %d: %s %s\n", e.ID, e.Title, e.Amount.String())
			return nil
		},
	}
	add.Flags().Int64Var(&categoryID, "category", 0, "category id")
	add.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	_ = add.MarkFlagRequired("category")
	_ = add.MarkFlagRequired("date")
	cmd.AddCommand(add)

	edit := &cobra.Command{
		Use:   "edit <id> <title> <amount>",
		Short: "Rewrite an expense",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[2])
			}
			d, err := core.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
			}
			s, err := authedSession(cmd.Context())
			if err != nil {
				return err
			}
			e, err := s.EditExpense(cmd.Context(), core.ExpenseRecord{
				ID: id, Title: args[1], Amount: amount, CategoryID: categoryID, Date: d,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Updated expense %d\n", e.ID)
			return nil
		},
	}
	edit.Flags().Int64Var(&categoryID, "category", 0, "category id")
	edit.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	_ = edit.MarkFlagRequired("category")
	_ = edit.MarkFlagRequired("date")
	cmd.AddCommand(edit)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := authedSession(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.DeleteExpense(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("Deleted expense %d\n", id)
			return nil
		},
	})
	return cmd
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the aggregated dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := authedSession(cmd.Context())
			if err != nil {
				return err
			}
			snap := s.Store().State().Dashboard
			if snap == nil {
				return fmt.Errorf("dashboard not loaded")
			}

			fmt.Printf("Total income:   %.2f\n", snap.TotalIncome)
			fmt.Printf("Total expenses: %.2f\n\n", snap.TotalExpenses)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MONTH\tINCOME\tEXPENSES")
			for _, b := range snap.MonthlyData {
				fmt.Fprintf(w, "%d\t%.2f\t%.2f\n", b.Month, b.Income, b.Expenses)
			}
			fmt.Fprintln(w, "\nCATEGORY\tTOTAL")
			for _, b := range snap.CategoryData {
				fmt.Fprintf(w, "%s\t%.2f\n", b.Name, b.Value)
			}
			return w.Flush()
		},
	}
}

func parseID(s string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
