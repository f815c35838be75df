package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/siba-ai/siba-chat/internal/config"
	"github.com/siba-ai/siba-chat/internal/domain"
	"github.com/siba-ai/siba-chat/internal/logger"
	"github.com/siba-ai/siba-chat/internal/server"
	"github.com/siba-ai/siba-chat/internal/session"
)

const requestTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the auth backend",
	Long: `Run the HTTP backend that completes Google sign-in, issues the session
cookie and answers the session check. Sessions can live in memory or in Redis.`,
	Run: runServe,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Run:   runWhoami,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with your IBA Google account",
	Run:   runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Run:   runLogout,
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd, config.KindServer)
	defer func() { _ = logger.Sync() }()

	var srv *server.Server
	app := fx.New(
		fx.Supply(cfg),
		config.Module,
		server.Module,
		fx.WithLogger(fxLogger),
		fx.Populate(&srv),
	)
	if err := app.Err(); err != nil {
		pterm.Error.Printf("Error building server: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		pterm.Error.Printf("Error starting server: %v\n", err)
		os.Exit(1)
	}

	pterm.Info.Printfln("Listening on %s", pterm.LightCyan(srv.Addr()))
	serveErr := srv.Start(ctx)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Warn("Failed to stop cleanly", zap.Error(err))
	}
	if serveErr != nil {
		pterm.Error.Println(serveErr)
		os.Exit(1)
	}
}

// headlessNavigator drops navigation; subcommands have no pages.
var headlessNavigator = session.NavigatorFunc(func(route string) {
	logger.Debug("Ignoring navigation outside the UI", zap.String("route", route))
})

func mustClient(cmd *cobra.Command) *client {
	cfg := loadConfig(cmd, config.KindClient)
	c, err := newClient(cfg, headlessNavigator)
	if err != nil {
		pterm.Error.Printf("Error starting client: %v\n", err)
		os.Exit(1)
	}
	return c
}

func runWhoami(cmd *cobra.Command, args []string) {
	c := mustClient(cmd)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	snap := c.Manager.Hydrate(ctx)
	if !snap.Authenticated() {
		pterm.Warning.Println("Not signed in. Run \"siba-chat login\" to sign in.")
		os.Exit(1)
	}
	pterm.DefaultTable.WithData(pterm.TableData{
		{"Name", snap.Session.Name()},
		{"Email", snap.Session.Email},
		{"User ID", snap.Session.UserID},
	}).Render()
}

func runLogin(cmd *cobra.Command, args []string) {
	c := mustClient(cmd)
	defer func() { _ = logger.Sync() }()

	email, _ := cmd.Flags().GetString("email")
	hint := domain.NormalizeHint(email)
	if hint != "" && !c.Domain.IsInstitutional(hint) {
		pterm.Error.Println(c.Domain.ValidationMessage())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	pending, err := c.Initiator.BeginRedirect(ctx, hint)
	cancel()
	if err != nil {
		pterm.Error.Printf("Could not start sign-in: %v\n", err)
		os.Exit(1)
	}

	spinner, _ := pterm.DefaultSpinner.Start("Finish signing in in your browser…")
	pterm.Info.Printfln("If the browser did not open, visit:\n%s", pending.URL)
	snap, err := c.Completer.Await(cmd.Context(), pending)
	if err != nil {
		spinner.Fail("Sign-in failed: ", err)
		os.Exit(1)
	}
	if !snap.Authenticated() {
		spinner.Fail("Sign-in could not be confirmed.")
		os.Exit(1)
	}
	spinner.Success("Signed in as ", snap.Session.Email)
}

func runLogout(cmd *cobra.Command, args []string) {
	c := mustClient(cmd)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	// the server is told even when the local cookie is already stale
	c.Manager.Logout(ctx)
	pterm.Success.Println("Signed out.")
}
