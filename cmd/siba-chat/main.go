package main

import (
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pterm/pterm"
	"github.com/siba-ai/siba-chat/internal/auth/completion"
	"github.com/siba-ai/siba-chat/internal/auth/initiator"
	"github.com/siba-ai/siba-chat/internal/config"
	"github.com/siba-ai/siba-chat/internal/domain"
	"github.com/siba-ai/siba-chat/internal/logger"
	"github.com/siba-ai/siba-chat/internal/requester"
	"github.com/siba-ai/siba-chat/internal/session"
	"github.com/siba-ai/siba-chat/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "siba-chat",
	Short: "Terminal client for the SIBA AI Assistant",
	Long: `siba-chat is a terminal chat client for the SIBA AI Assistant.
Anyone can chat on the landing page; the dashboard is limited to IBA Sukkur
Google accounts. Run "siba-chat serve" to start the auth backend it signs in against.`,
	Run: runTUI,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.BindFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")

	loginCmd.Flags().String("email", "", "IBA email address to pre-fill on the Google consent screen")

	rootCmd.AddCommand(serveCmd, whoamiCmd, loginCmd, logoutCmd)
}

// loadConfig reads the configuration for kind and installs the global
// logger, exiting on failure.
func loadConfig(cmd *cobra.Command, kind config.Kind) *config.Config {
	cfg, err := config.Load(cmd.Flags(), kind)
	if err != nil {
		pterm.Error.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if kind == config.KindClient {
		// the terminal belongs to the UI or to pterm
		cfg.Logging.DisableConsole = true
	}
	if err := logger.InitLogger(&cfg.Logging); err != nil {
		pterm.Error.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func fxLogger() fxevent.Logger {
	return &fxevent.ZapLogger{Logger: logger.GetLogger()}
}

// client holds the session side of the program.
type client struct {
	fx.In

	Manager   *session.Manager
	Initiator *initiator.Initiator
	Completer *completion.Completer
	Domain    domain.Domain
}

// newClient builds the session stack. nav receives logout navigation.
func newClient(cfg *config.Config, nav session.Navigator) (*client, error) {
	var c client
	app := fx.New(
		fx.Supply(cfg),
		config.Module,
		requester.Module,
		session.Module,
		initiator.Module,
		completion.Module,
		fx.Provide(func() session.Navigator { return nav }),
		fx.WithLogger(fxLogger),
		fx.Populate(&c),
	)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return &c, nil
}

// runTUI is the main function that runs the TUI
func runTUI(cmd *cobra.Command, args []string) {
	defer func() {
		if r := recover(); r != nil {
			pterm.Error.Printf("\nCaught panic: %v\n", r)
			pterm.Error.Printf("%s\n", debug.Stack())
			os.Exit(2)
		}
	}()
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig(cmd, config.KindClient)

	bridge := tui.NewBridge()
	c, err := newClient(cfg, bridge)
	if err != nil {
		pterm.Error.Printf("Error starting client: %v\n", err)
		os.Exit(1)
	}
	c.Manager.SetModalController(bridge)

	login := tui.NewLoginModal(c.Domain, c.Initiator, c.Completer)
	p := tea.NewProgram(
		tui.NewAppModel(c.Manager, bridge, login, tui.DefaultReplyDelay),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	// Run the program
	if _, err := p.Run(); err != nil {
		pterm.Error.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}

	if user := c.Manager.User(); user != nil {
		pterm.Info.Printfln("Signed in as %s.", pterm.LightGreen(user.Email))
	}
}
