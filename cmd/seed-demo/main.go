// seed-demo fills the local mirror with a demo profile, customers and a
// few installments so the UI has something to show on a fresh install.
// Seeded rows go through the normal write path, so they land in the change
// log and replicate on the first sync.
//
// Usage (from backend directory):
//   LOCAL_DB_PATH=... go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/config"
	"bitbucket.org/mmdatafocus/qist_backend/localstore"
	"bitbucket.org/mmdatafocus/qist_backend/models"
	"github.com/shopspring/decimal"
)

func main() {
	ctx := context.Background()

	if err := config.ConnectLocalDatabase(); err != nil {
		fmt.Fprintf(os.Stderr, "cannot open local mirror: %v\n", err)
		os.Exit(1)
	}
	store := localstore.New(config.GetLocalDB())
	if err := store.AutoMigrate(); err != nil {
		fmt.Fprintf(os.Stderr, "cannot migrate local mirror: %v\n", err)
		os.Exit(1)
	}

	existing, err := store.Profiles(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read profiles: %v\n", err)
		os.Exit(1)
	}
	if len(existing) > 0 {
		fmt.Println("profiles already exist; nothing to seed")
		return
	}

	profileInput := models.NewProfile{Name: "Demo Shop"}
	profile := profileInput.ToProfile()
	if err := store.Put(ctx, profile, models.ChangeActionCreate); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create profile: %v\n", err)
		os.Exit(1)
	}

	customers := []models.NewCustomer{
		{ProfileId: profile.ID, Name: "Ahmed Khan", Phone: "+923001234567", TotalAmount: decimal.NewFromInt(50000), InstallmentAmount: decimal.NewFromInt(5000)},
		{ProfileId: profile.ID, Name: "Sara Malik", Phone: "+923007654321", TotalAmount: decimal.NewFromInt(120000), InstallmentAmount: decimal.NewFromInt(10000)},
	}

	today := time.Now().Format("2006-01-02")
	for _, input := range customers {
		if err := input.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid customer %q: %v\n", input.Name, err)
			os.Exit(1)
		}
		customer := input.ToCustomer()
		if err := store.Put(ctx, customer, models.ChangeActionCreate); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create customer %q: %v\n", input.Name, err)
			os.Exit(1)
		}

		installment := models.NewInstallment{
			CustomerId: customer.ID,
			Amount:     input.InstallmentAmount,
			Date:       today,
		}
		rec := installment.ToInstallment()
		if err := store.Put(ctx, rec, models.ChangeActionCreate); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create installment for %q: %v\n", input.Name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Seeded profile %q with %d customers\n", profile.Name, len(customers))
}
