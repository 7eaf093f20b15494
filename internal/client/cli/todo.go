package cli

import (
	"context"
	"fmt"
	"os"
	"time"
)

// AddTodo prompts for a title, optional notes and an optional due date, and
// stores the todo. A due date also puts the todo on the calendar.
func (a *App) AddTodo(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	title, err := getSimpleText(a.reader, "Title", os.Stdout)
	if err != nil {
		return err
	}
	if title == "" {
		return fmt.Errorf("title must not be empty")
	}

	notes, err := getSimpleText(a.reader, "Notes (optional)", os.Stdout)
	if err != nil {
		return err
	}

	dueRaw, err := getSimpleText(a.reader, "Due date YYYY-MM-DD (optional)", os.Stdout)
	if err != nil {
		return err
	}
	var due *time.Time
	if dueRaw != "" {
		d, err := ParseDate(dueRaw)
		if err != nil {
			return err
		}
		due = &d
	}

	todo, err := a.entities.CreateTodo(ctx, a.userID, title, notes, due)
	if err != nil {
		return err
	}
	fmt.Printf("Added todo %s\n", todo.ID)
	return nil
}

// ListTodos prints the user's todos.
func (a *App) ListTodos(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	todos, err := a.entities.ListTodos(ctx, a.userID)
	if err != nil {
		return err
	}
	if len(todos) == 0 {
		fmt.Println("No todos.")
		return nil
	}

	for _, t := range todos {
		mark := " "
		if t.Done {
			mark = "x"
		}
		line := fmt.Sprintf("[%s] %s  %s", mark, t.ID, t.Title)
		if t.DueDate != nil {
			line += "  (due " + t.DueDate.Format(dateLayout) + ")"
		}
		fmt.Println(line)
	}
	return nil
}

// CompleteTodo marks a todo done by id.
func (a *App) CompleteTodo(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	id, err := getSimpleText(a.reader, "Todo id", os.Stdout)
	if err != nil {
		return err
	}

	todo, err := a.entities.GetTodo(ctx, id)
	if err != nil {
		return err
	}
	todo.Done = true
	if err := a.entities.UpdateTodo(ctx, todo); err != nil {
		return err
	}
	fmt.Println("Done.")
	return nil
}

// DeleteTodo removes a todo by id.
func (a *App) DeleteTodo(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	id, err := getSimpleText(a.reader, "Todo id", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.entities.DeleteTodo(ctx, id); err != nil {
		return err
	}
	fmt.Println("Deleted.")
	return nil
}
