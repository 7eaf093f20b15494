package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	AddTodo(ctx context.Context) error
	ListTodos(ctx context.Context) error
	CompleteTodo(ctx context.Context) error
	DeleteTodo(ctx context.Context) error
	AddExpense(ctx context.Context) error
	ListExpenses(ctx context.Context) error
	AddEvent(ctx context.Context) error
	Agenda(ctx context.Context) error
	Mirror(ctx context.Context) error
	Sync(ctx context.Context) error
	Status(ctx context.Context) error
}

// runREPL reads commands line by line and dispatches to methods on a. The
// loop exits on EOF or when the user types "exit" or "quit". Handlers share
// the same reader for their prompts, so command and prompt input never race
// over buffered bytes. Handlers report their own errors; the loop only
// prints them and carries on, so a failed command never kills the session.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("dk %s> ", statusFn()))
		line, readErr := r.ReadString('\n')
		if readErr != nil && (line == "" || !errors.Is(readErr, io.EOF)) {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		var err error
		switch cmd := parts[0]; cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: addtodo, todos, done, deltodo, addexpense, expenses,")
				printlnFn("  addevent, agenda, mirror, sync, status, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "logout":
			err = a.Logout(ctx)

		case "addtodo":
			err = a.AddTodo(ctx)
		case "todos":
			err = a.ListTodos(ctx)
		case "done":
			err = a.CompleteTodo(ctx)
		case "deltodo":
			err = a.DeleteTodo(ctx)

		case "addexpense":
			err = a.AddExpense(ctx)
		case "expenses":
			err = a.ListExpenses(ctx)

		case "addevent":
			err = a.AddEvent(ctx)
		case "agenda":
			err = a.Agenda(ctx)
		case "mirror":
			err = a.Mirror(ctx)

		case "sync":
			err = a.Sync(ctx)
		case "status":
			err = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}
