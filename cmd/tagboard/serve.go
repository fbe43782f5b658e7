package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tagging-ai/tagboard/internal/dashboard"
	"github.com/tagging-ai/tagboard/internal/session"
	"github.com/tagging-ai/tagboard/internal/storage"
)

func (c *cli) serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			if !cmd.Flags().Changed("port") {
				port = c.cfg.Dashboard.Port
			}

			// Dashboard users must not share the CLI cookie jar.
			dcfg := dashboard.Config{
				Backend:        c.newClient(&http.Client{}),
				Settings:       c.settings,
				CookieSecure:   c.cfg.Dashboard.CookieSecure,
				CookieTTL:      c.cfg.Dashboard.CookieTTL,
				AllowedOrigins: c.cfg.Dashboard.AllowedOrigins,
				Logger:         c.logger,
			}
			if c.cfg.Auth.JWKSURL != "" {
				v, err := session.NewJWKSVerifier(ctx, c.cfg.Auth.JWKSURL)
				if err != nil {
					return fmt.Errorf("failed to load JWKS: %w", err)
				}
				dcfg.Verifier = v
			}
			if c.cfg.Archive.Enabled() {
				db, err := c.openArchive(ctx)
				if err != nil {
					c.logger.Warn("archive unavailable", zap.Error(err))
				} else {
					dcfg.Archive = db
				}
			}
			if c.cfg.Storage.Enabled() {
				s, err := storage.New(ctx, storage.Options{
					Endpoint:  c.cfg.Storage.Endpoint,
					Region:    c.cfg.Storage.Region,
					Bucket:    c.cfg.Storage.Bucket,
					AccessKey: c.cfg.Storage.AccessKey,
					SecretKey: c.cfg.Storage.SecretKey,
					UseSSL:    c.cfg.Storage.UseSSL,
				})
				if err != nil {
					c.logger.Warn("export uploads disabled", zap.Error(err))
				} else {
					dcfg.Uploader = s
				}
			}

			handler, err := dashboard.New(dcfg)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr:              net.JoinHostPort(c.cfg.Dashboard.Host, strconv.Itoa(port)),
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Graceful shutdown on interrupt (Ctrl+C)
			go func() {
				<-ctx.Done()
				fmt.Fprintln(cmd.ErrOrStderr(), "\nShutting down...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Shutdown error: %v\n", err)
				}
			}()

			fmt.Fprintf(cmd.ErrOrStderr(), "Dashboard: http://%s\n", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on (default from config)")
	return cmd
}
