package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/daykeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for credentials and creates a server account. The
// password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.remote.Register(ctx, userName, string(password)); err != nil {
		return err
	}

	fmt.Println("Account created. You are logged in.")
	a.userID = userName
	return nil
}

// Login prompts for credentials and authenticates with the server. When the
// server is unreachable the session continues offline: local data stays
// usable and queued changes are delivered once connectivity returns.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.remote.Login(ctx, userName, string(password)); err != nil {
		if errors.Is(err, common.ErrOffline) {
			fmt.Println("Server unreachable, continuing offline.")
			a.userID = userName
			return nil
		}
		return err
	}

	fmt.Println("Logged in.")
	a.userID = userName
	a.syncer.TriggerSync()
	return nil
}

// Logout ends the session. Local data and queued changes are kept; they
// belong to the device, not the session.
func (a *App) Logout(ctx context.Context) error {
	a.userID = ""
	fmt.Println("Logged out.")
	return nil
}

// errNotLoggedIn guards commands that need a user context.
var errNotLoggedIn = errors.New("not logged in (use 'login' or 'register')")

func (a *App) requireLogin() error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	return nil
}
