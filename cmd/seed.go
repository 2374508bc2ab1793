package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"
	"github.com/tamathecxder/randomail"

	"github.com/ziadkadry99/canteen/internal/audit"
	"github.com/ziadkadry99/canteen/internal/auth"
	"github.com/ziadkadry99/canteen/internal/db"
	"github.com/ziadkadry99/canteen/internal/employees"
	"github.com/ziadkadry99/canteen/internal/menu"
	"github.com/ziadkadry99/canteen/internal/progress"
)

var (
	seedEmployees int
	seedPassword  string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with demo employees and menu items",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, database, log, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()
		return seed(cmd.Context(), database, log)
	},
}

var (
	firstNames  = []string{"Asha", "Ravi", "Priya", "Arjun", "Neha", "Vikram", "Kavya", "Rahul", "Sneha", "Karan"}
	lastNames   = []string{"Rao", "Kumar", "Sharma", "Iyer", "Patel", "Nair", "Gupta", "Menon", "Reddy", "Das"}
	departments = []string{"IT", "HR", "Finance", "Operations", "Sales"}
)

var demoMenu = []menu.CreateRequest{
	{Name: "Idli Vada", Price: 30, Quantity: 1, Unit: "plate", Categories: []menu.Category{menu.Breakfast}},
	{Name: "Masala Dosa", Price: 45, Quantity: 1, Unit: "plate", Categories: []menu.Category{menu.Breakfast}},
	{Name: "Veg Thali", Price: 80, Quantity: 1, Unit: "plate", Categories: []menu.Category{menu.Thali, menu.Lunch}},
	{Name: "Curd Rice", Price: 40, Quantity: 1, Unit: "bowl", Categories: []menu.Category{menu.Lunch}},
	{Name: "Samosa", Price: 15, Quantity: 2, Unit: "pcs", Categories: []menu.Category{menu.Snacks}},
	{Name: "Filter Coffee", Price: 12, Quantity: 150, Unit: "ml", Categories: []menu.Category{menu.Beverages}},
	{Name: "Masala Tea", Price: 10, Quantity: 150, Unit: "ml", Categories: []menu.Category{menu.Beverages}},
}

func seed(ctx context.Context, database *db.DB, log *slog.Logger) error {
	hash, err := auth.HashPassword(seedPassword)
	if err != nil {
		return err
	}

	store := employees.NewStore(database)
	reporter := progress.NewReporter("Seeding employees")
	reporter.Start(seedEmployees)
	created := 0
	for i := range seedEmployees {
		e := employees.Employee{
			EmployeeID:   fmt.Sprintf("EMP%04d", i+1),
			FirstName:    firstNames[rand.IntN(len(firstNames))],
			LastName:     lastNames[rand.IntN(len(lastNames))],
			Department:   departments[rand.IntN(len(departments))],
			CustomerType: "EMPLOYEE",
			MobileNumber: fmt.Sprintf("9%09d", rand.IntN(1_000_000_000)),
			Email:        randomail.GenerateRandomEmail(),
			IsActive:     true,
		}
		err := store.Create(ctx, &e, hash)
		switch {
		case errors.Is(err, employees.ErrDuplicateEmployee):
		case err != nil:
			return fmt.Errorf("seeding %s: %w", e.EmployeeID, err)
		default:
			created++
		}
		reporter.Update(i+1, e.EmployeeID)
	}
	reporter.Finish()

	items := menu.NewStore(database)
	start := time.Now()
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.Local)
	for _, req := range demoMenu {
		req.StartDate = start
		req.EndDate = start.AddDate(1, 0, -1)
		if _, err := items.Create(ctx, req, audit.ActorSystem); err != nil {
			return fmt.Errorf("seeding menu item %s: %w", req.Name, err)
		}
	}

	log.Info("seed complete",
		slog.Int("employees", created),
		slog.Int("menu_items", len(demoMenu)),
	)
	return nil
}

func init() {
	seedCmd.Flags().IntVar(&seedEmployees, "employees", 25, "number of demo employees")
	seedCmd.Flags().StringVar(&seedPassword, "password", "canteen123", "password for every demo employee")
	rootCmd.AddCommand(seedCmd)
}
