package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/canteen/internal/audit"
	"github.com/ziadkadry99/canteen/internal/auth"
	"github.com/ziadkadry99/canteen/internal/employees"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var promoteCmd = &cobra.Command{
	Use:   "promote <employee-id>",
	Short: "Grant admin rights to an employee",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAdmin(cmd.Context(), args[0], true)
	},
}

var demoteCmd = &cobra.Command{
	Use:   "demote <employee-id>",
	Short: "Revoke admin rights from an employee",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAdmin(cmd.Context(), args[0], false)
	},
}

func setAdmin(ctx context.Context, employeeID string, admin bool) error {
	_, database, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	store := employees.NewStore(database)
	e, err := store.SetAdmin(ctx, employeeID, admin)
	if err != nil {
		return err
	}

	action, verb := audit.ActionEmployeePromoted, "promoted"
	if !admin {
		action, verb = audit.ActionEmployeeDemoted, "demoted"
	}
	if err := audit.NewStore(database).Log(ctx, audit.Entry{
		ActorID: audit.ActorSystem,
		Action:  action,
		Scope:   audit.ScopeEmployee,
		ScopeID: employeeID,
		Summary: fmt.Sprintf("%s %s from the command line", e.FullName(), verb),
	}); err != nil {
		return err
	}
	fmt.Printf("%s (%s) %s\n", e.FullName(), e.EmployeeID, verb)
	return nil
}

var createSuperCmd = &cobra.Command{
	Use:   "create-super",
	Short: "Create a super-admin account interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, database, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		required := func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("required")
			}
			return nil
		}
		ask := func(label string, mask rune) (string, error) {
			p := promptui.Prompt{Label: label, Validate: required, Mask: mask}
			return p.Run()
		}

		var e employees.Employee
		if e.EmployeeID, err = ask("Employee ID", 0); err != nil {
			return err
		}
		if e.FirstName, err = ask("First name", 0); err != nil {
			return err
		}
		if e.LastName, err = ask("Last name", 0); err != nil {
			return err
		}
		password, err := ask("Password", '*')
		if err != nil {
			return err
		}
		confirm := promptui.Prompt{
			Label: "Confirm password",
			Mask:  '*',
			Validate: func(s string) error {
				if s != password {
					return errors.New("passwords do not match")
				}
				return nil
			},
		}
		if _, err := confirm.Run(); err != nil {
			return err
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		e.Department = "Administration"
		e.IsActive = true
		e.IsSuperAdmin = true

		store := employees.NewStore(database)
		if err := store.Create(cmd.Context(), &e, hash); err != nil {
			return err
		}
		fmt.Printf("Super-admin %s created\n", e.EmployeeID)
		return nil
	},
}

func init() {
	adminCmd.AddCommand(promoteCmd, demoteCmd, createSuperCmd)
	rootCmd.AddCommand(adminCmd)
}
