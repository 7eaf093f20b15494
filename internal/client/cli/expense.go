package cli

import (
	"context"
	"fmt"
	"os"
)

// AddExpense prompts for an amount, category, date and note, and stores the
// expense.
func (a *App) AddExpense(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	amountRaw, err := getSimpleText(a.reader, "Amount (e.g. 12.50)", os.Stdout)
	if err != nil {
		return err
	}
	amountCents, err := ParseAmountCents(amountRaw)
	if err != nil {
		return err
	}

	category, err := getSimpleText(a.reader, "Category", os.Stdout)
	if err != nil {
		return err
	}

	dateRaw, err := getSimpleText(a.reader, "Date YYYY-MM-DD (empty for today)", os.Stdout)
	if err != nil {
		return err
	}
	date := a.entities.Now()
	if dateRaw != "" {
		if date, err = ParseDate(dateRaw); err != nil {
			return err
		}
	}

	note, err := getSimpleText(a.reader, "Note (optional)", os.Stdout)
	if err != nil {
		return err
	}

	exp, err := a.entities.CreateExpense(ctx, a.userID, amountCents, category, date, note)
	if err != nil {
		return err
	}
	fmt.Printf("Added expense %s\n", exp.ID)
	return nil
}

// ListExpenses prints the user's expenses.
func (a *App) ListExpenses(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	expenses, err := a.entities.ListExpenses(ctx, a.userID)
	if err != nil {
		return err
	}
	if len(expenses) == 0 {
		fmt.Println("No expenses.")
		return nil
	}

	var total int64
	for _, e := range expenses {
		fmt.Printf("%s  %8.2f  %-12s %s\n",
			e.Date.Format(dateLayout), float64(e.AmountCents)/100, e.Category, e.Note)
		total += e.AmountCents
	}
	fmt.Printf("Total: %.2f\n", float64(total)/100)
	return nil
}
