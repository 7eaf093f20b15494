package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubExec records which handlers the REPL dispatched to. Commands named in
// errOn fail with failErr.
type stubExec struct {
	loggedIn bool
	calls    []string
	errOn    string
	failErr  error
}

func (s *stubExec) record(name string) error {
	s.calls = append(s.calls, name)
	if name == s.errOn {
		return s.failErr
	}
	return nil
}

func (s *stubExec) isLoggedIn() bool                      { return s.loggedIn }
func (s *stubExec) Register(ctx context.Context) error    { return s.record("register") }
func (s *stubExec) Login(ctx context.Context) error       { return s.record("login") }
func (s *stubExec) Logout(ctx context.Context) error      { return s.record("logout") }
func (s *stubExec) AddTodo(ctx context.Context) error     { return s.record("addtodo") }
func (s *stubExec) ListTodos(ctx context.Context) error   { return s.record("todos") }
func (s *stubExec) CompleteTodo(ctx context.Context) error { return s.record("done") }
func (s *stubExec) DeleteTodo(ctx context.Context) error  { return s.record("deltodo") }
func (s *stubExec) AddExpense(ctx context.Context) error  { return s.record("addexpense") }
func (s *stubExec) ListExpenses(ctx context.Context) error { return s.record("expenses") }
func (s *stubExec) AddEvent(ctx context.Context) error    { return s.record("addevent") }
func (s *stubExec) Agenda(ctx context.Context) error      { return s.record("agenda") }
func (s *stubExec) Mirror(ctx context.Context) error      { return s.record("mirror") }
func (s *stubExec) Sync(ctx context.Context) error        { return s.record("sync") }
func (s *stubExec) Status(ctx context.Context) error      { return s.record("status") }

func runScript(t *testing.T, script string) (*stubExec, []string) {
	t.Helper()

	var printed []string
	old := printlnFn
	printlnFn = func(a ...any) (int, error) {
		for _, v := range a {
			if s, ok := v.(string); ok {
				printed = append(printed, s)
			}
		}
		return 0, nil
	}
	defer func() { printlnFn = old }()

	stub := &stubExec{loggedIn: true}
	r := bufio.NewReader(strings.NewReader(script))
	runREPL(context.Background(), stub, func() string { return "(test)" }, r)
	return stub, printed
}

func TestREPL_DispatchesCommands(t *testing.T) {
	stub, _ := runScript(t, "addtodo\ntodos\nagenda\nsync\nstatus\nexit\n")
	assert.Equal(t, []string{"addtodo", "todos", "agenda", "sync", "status"}, stub.calls)
}

func TestREPL_UnknownCommandReported(t *testing.T) {
	stub, printed := runScript(t, "frobnicate\nexit\n")
	assert.Empty(t, stub.calls)

	found := false
	for _, p := range printed {
		if strings.Contains(p, "Unknown command") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestREPL_EmptyLinesIgnored(t *testing.T) {
	stub, _ := runScript(t, "\n\n  \ntodos\nexit\n")
	assert.Equal(t, []string{"todos"}, stub.calls)
}

func TestREPL_ExitsOnEOF(t *testing.T) {
	stub, _ := runScript(t, "todos\n")
	assert.Equal(t, []string{"todos"}, stub.calls)
}

func TestREPL_HandlerErrorPrintedAndLoopContinues(t *testing.T) {
	var printed []string
	old := printlnFn
	printlnFn = func(a ...any) (int, error) {
		for _, v := range a {
			if s, ok := v.(string); ok {
				printed = append(printed, s)
			}
		}
		return 0, nil
	}
	defer func() { printlnFn = old }()

	stub := &stubExec{loggedIn: true, errOn: "sync", failErr: errors.New("server rejected change")}
	r := bufio.NewReader(strings.NewReader("sync\ntodos\nexit\n"))
	runREPL(context.Background(), stub, func() string { return "(test)" }, r)

	// The failed command is reported and the session carries on.
	assert.Equal(t, []string{"sync", "todos"}, stub.calls)
	assert.Contains(t, printed, "server rejected change")
}
