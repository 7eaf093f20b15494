package cli

import (
	"context"
	"fmt"
)

// Sync runs one sync cycle right now and prints the outcome.
func (a *App) Sync(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	rep, err := a.syncer.Sync(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Pushed %d, applied %d, conflicts %d, dead-lettered %d\n",
		rep.Pushed, rep.Applied, rep.Conflicts, rep.Dead)
	return nil
}

// Status prints the sync loop state, queue depths and the last sync time.
func (a *App) Status(ctx context.Context) error {
	st, err := a.syncer.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Phase:      %s\n", st.Phase)
	fmt.Printf("Pending:    %d\n", st.Pending)
	fmt.Printf("Dead:       %d\n", st.Dead)
	fmt.Printf("Conflicts:  %d\n", st.Conflicts)
	if st.LastSyncTime.IsZero() {
		fmt.Println("Last sync:  never")
	} else {
		fmt.Printf("Last sync:  %s\n", st.LastSyncTime.Format(dateTimeLayout))
	}
	return nil
}
