package main

import (
	"net/url"
	"os"

	"github.com/spf13/cobra"
	"termfolio/internal/canvas"
	"termfolio/internal/command"
	"termfolio/internal/config"
	"termfolio/internal/gateway"
	"termfolio/internal/logging"
	"termfolio/internal/presence"
	"termfolio/internal/resume"
	"termfolio/internal/session"
	"termfolio/internal/terminal"
	"termfolio/internal/tui"
)

func newTermCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "term",
		Short: "Open the interactive portfolio terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClientConfig()
			if err != nil {
				return err
			}
			logger, closer, err := logging.OpenFile(cfg.LogFile, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer closer.Close()

			cv, err := resume.Load(cfg.ResumeFile)
			if err != nil {
				return err
			}
			identity, err := session.Open(cfg.IdentityFile)
			if err != nil {
				return err
			}

			client := gateway.New(gateway.Options{BaseURL: cfg.APIURL, APIKey: cfg.APIKey})
			if cfg.APIURL == "" {
				logger.Warn("TERMFOLIO_API_URL not set; shared features are offline")
			}

			tracker := presence.NewTracker(client, identity.SessionID(), presence.Options{Logger: logger})
			board := canvas.New(client, canvas.Options{Logger: logger})

			ctrl := terminal.New(terminal.Options{
				Interpreter: command.New(cv, command.Options{CVURL: cfg.CVPath}),
				Identity:    identity,
				Presence:    tracker,
				Canvas:      board,
				Guestbook:   client,
				Visitors:    client,
				Opener:      terminal.NewBrowserOpener(),
				SiteURL:     cfg.SiteURL,
				Hostname:    hostname(cfg.SiteURL),
				Logger:      logger,
			})

			ctx := cmd.Context()
			ctrl.Start(ctx)
			defer ctrl.Close()

			return tui.Run(ctx, ctrl, os.Stdin, os.Stdout, logger)
		},
	}
}

// hostname is shown in the prompt: the site's host when known.
func hostname(site string) string {
	if u, err := url.Parse(site); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return ""
}
