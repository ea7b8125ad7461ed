package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/untillpro/goutils/logger"

	"github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/pkg/forms"
	"github.com/goliatone/go-formflow/pkg/renderers/tui"
)

func newFormCmd(use, short, formName string) *cobra.Command {
	var attempts int
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			def, ok := forms.Lookup(formName, time.Now)
			if !ok {
				return fmt.Errorf("unknown form %q", formName)
			}

			ctrl, err := formflow.NewController(def, formflow.Settings{
				BaseURL:   cfg.API.BaseURL,
				Timeout:   cfg.API.Timeout,
				Debounce:  cfg.Form.Debounce,
				CacheSize: cfg.Availability.CacheSize,
				CacheTTL:  cfg.Availability.CacheTTL,
			})
			if err != nil {
				return err
			}
			defer ctrl.Close()

			session := tui.New(
				tui.WithPromptDriver(tui.NewSurveyDriver(cmd.OutOrStdout())),
				tui.WithMaxAttempts(attempts),
			)
			outcome, err := session.Run(cmd.Context(), def.Title, ctrl)
			if err != nil {
				return err
			}
			logger.Verbose(def.Name, "finished:", outcome.Kind)
			return nil
		},
	}
	cmd.Flags().IntVar(&attempts, "attempts", 3, "How many times to re-prompt before giving up")
	return cmd
}
