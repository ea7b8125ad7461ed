package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/pkg/renderers/tui"
	"github.com/goliatone/go-formflow/pkg/store"
)

var counterMenu = []string{"increment", "decrement", "reset", "set text", "quit"}

var errUnknownAction = errors.New("unknown counter action")

func newCounterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counter [inc|dec|reset|text=VALUE]...",
		Short: "Play with the shared counter/text store",
		Long: "Applies the given actions to the shared store and prints every change.\n" +
			"Without arguments an interactive menu is shown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}
			app := formflow.NewAppStore()
			unsubscribe := app.Subscribe(func(st store.AppState) {
				fmt.Fprintf(cmd.OutOrStdout(), "count=%d text=%q\n", st.Count, st.Text)
			})
			defer unsubscribe()

			if len(args) > 0 {
				return applyActions(app, args)
			}
			return counterLoop(cmd.Context(), tui.NewSurveyDriver(cmd.OutOrStdout()), app)
		},
	}
}

func applyActions(app *store.App, actions []string) error {
	for _, action := range actions {
		if err := applyAction(app, action); err != nil {
			return err
		}
	}
	return nil
}

func applyAction(app *store.App, action string) error {
	switch {
	case action == "inc" || action == "increment":
		store.Increment(app)
	case action == "dec" || action == "decrement":
		store.Decrement(app)
	case action == "reset":
		store.ResetCount(app)
	case strings.HasPrefix(action, "text="):
		store.SetText(app, strings.TrimPrefix(action, "text="))
	default:
		return fmt.Errorf("%w: %q", errUnknownAction, action)
	}
	return nil
}

func counterLoop(ctx context.Context, driver tui.PromptDriver, app *store.App) error {
	for {
		idx, err := driver.Select(ctx, tui.SelectConfig{Message: "Action", Options: counterMenu})
		if err != nil {
			if errors.Is(err, tui.ErrAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if idx < 0 || idx >= len(counterMenu) {
			continue
		}
		switch counterMenu[idx] {
		case "increment":
			store.Increment(app)
		case "decrement":
			store.Decrement(app)
		case "reset":
			store.ResetCount(app)
		case "set text":
			text, err := driver.Input(ctx, tui.InputConfig{Message: "Text", Default: app.Get().Text})
			if err != nil {
				return err
			}
			store.SetText(app, text)
		case "quit":
			return nil
		}
	}
}
