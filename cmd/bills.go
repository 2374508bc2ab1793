package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/canteen/internal/audit"
	"github.com/ziadkadry99/canteen/internal/billing"
	"github.com/ziadkadry99/canteen/internal/employees"
	"github.com/ziadkadry99/canteen/internal/progress"
	"github.com/ziadkadry99/canteen/internal/transactions"
)

var (
	billMonth    int
	billYear     int
	billEmployee string
)

var billsCmd = &cobra.Command{
	Use:   "bills",
	Short: "Monthly billing",
}

var billsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate monthly bills from active transactions",
	Long: `Moves ACTIVE transactions of the month to GENERATED and prints the resulting bills.
Without --employee every employee with transactions is billed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, database, log, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		now := time.Now()
		if billMonth == 0 {
			billMonth = int(now.Month())
		}
		if billYear == 0 {
			billYear = now.Year()
		}

		svc := billing.NewService(billing.Deps{
			Transactions: transactions.NewStore(database),
			Employees:    employees.NewStore(database),
			Audit:        audit.NewStore(database),
			Log:          log,
		})

		var bills []billing.Bill
		if billEmployee != "" {
			b, err := svc.Generate(cmd.Context(), billEmployee, billMonth, billYear, audit.ActorSystem)
			if err != nil {
				return err
			}
			bills = append(bills, *b)
		} else {
			bills, err = svc.GenerateAll(cmd.Context(), billMonth, billYear, audit.ActorSystem, progress.NewReporter("Generating bills"))
			if err != nil {
				return err
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EMPLOYEE\tNAME\tTRANSACTIONS\tAMOUNT")
		for _, b := range bills {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n", b.EmployeeID, b.EmployeeName, len(b.Transactions), b.TotalAmount)
		}
		return w.Flush()
	},
}

func init() {
	billsGenerateCmd.Flags().IntVar(&billMonth, "month", 0, "month to bill, 1-12 (default current month)")
	billsGenerateCmd.Flags().IntVar(&billYear, "year", 0, "year to bill (default current year)")
	billsGenerateCmd.Flags().StringVar(&billEmployee, "employee", "", "bill a single employee")
	billsCmd.AddCommand(billsGenerateCmd)
	rootCmd.AddCommand(billsCmd)
}
