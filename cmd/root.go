package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/splatctl/bugsplat"
	"github.com/s0up4200/splatctl/config"
	"github.com/s0up4200/splatctl/job"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger

	version   = "dev"
	buildTime = "unknown"

	// Persistent flags
	selDatabases  []string
	selTags       []string
	selMatch      string
	userFlag      string
	passwordFlag  string
	passwordStdin bool
	verbosity     int
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "splatctl",
	Short: "Manage users and fetch crash data across BugSplat databases",
	Long: `splatctl logs into BugSplat, selects databases by name or tag, and then
manages their users, fetches crash, summary and version listings, or downloads
crash archives.

Databases and their tags are read from the configuration file:

  databases:
    MyGame_Prod: [default, prod]
    MyGame_QA:   [qa]

Without --db or --tags, databases tagged "default" are used.`,
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
}

// SetVersion records the build version shown by --version and used by update
func SetVersion(v, built string) {
	version = v
	buildTime = built
	rootCmd.Version = fmt.Sprintf("%s (built %s)", v, built)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./splatctl.yaml)")
	pf.StringSliceVarP(&selDatabases, "db", "d", nil, "database names to use (repeatable or comma-separated)")
	pf.StringSliceVarP(&selTags, "tags", "t", nil, "select databases carrying these tags")
	pf.StringVar(&selMatch, "match", "", "tag match mode: all or any (default from config)")
	pf.StringVarP(&userFlag, "user", "u", "", "BugSplat login (default from config)")
	pf.StringVarP(&passwordFlag, "password", "p", "", "BugSplat password (prefer SPLATCTL_BUGSPLAT_PASSWORD or --password-stdin)")
	pf.BoolVar(&passwordStdin, "password-stdin", false, "read the BugSplat password from stdin")
	pf.CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v debug, -vv trace)")

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(updateCmd)
}

// initializeApp loads the configuration and sets up the logger
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch {
	case verbosity >= 2:
		cfg.Logging.Level = "trace"
	case verbosity == 1:
		cfg.Logging.Level = "debug"
	}

	logger = setupLogger(cfg.Logging, os.Stderr).With().
		Str("run_id", uuid.NewString()).
		Logger()

	logger.Debug().
		Str("version", version).
		Str("config", cfgFile).
		Int("databases", len(cfg.Databases)).
		Msg("Configuration loaded")

	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	if cfg.Format == "json" {
		return zerolog.New(w).Level(level).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isTerminal(w),
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// selection builds the database selection from flags and configuration
func selection() job.Selection {
	match := selMatch
	if match == "" {
		match = cfg.Selection.MatchMode
	}
	return job.Selection{
		Databases:  selDatabases,
		Tags:       selTags,
		MatchMode:  match,
		DefaultTag: cfg.Selection.DefaultTag,
	}
}

// credentials resolves the login. Flags win over the configuration file and
// environment; --password-stdin reads one line from in. The login is used
// as given; domain only completes the users being managed.
func credentials(in io.Reader) (string, string, error) {
	user := userFlag
	if user == "" {
		user = cfg.BugSplat.Username
	}
	if user == "" {
		return "", "", fmt.Errorf("no BugSplat user: set bugsplat.username or pass --user")
	}

	if passwordStdin {
		if passwordFlag != "" {
			return "", "", fmt.Errorf("--password and --password-stdin are mutually exclusive")
		}
		pass, err := readPassword(in)
		if err != nil {
			return "", "", err
		}
		return user, pass, nil
	}

	pass := passwordFlag
	if pass == "" {
		pass = cfg.BugSplat.Password
	}
	if pass == "" {
		return "", "", fmt.Errorf("no BugSplat password: use --password-stdin or set SPLATCTL_BUGSPLAT_PASSWORD")
	}
	return user, pass, nil
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	pass := strings.TrimRight(line, "\r\n")
	if pass == "" {
		return "", fmt.Errorf("empty password on stdin")
	}
	return pass, nil
}

// newClient creates a BugSplat client from the configuration
func newClient() (*bugsplat.Client, error) {
	ua := cfg.HTTP.UserAgent
	if ua == "" {
		ua = "splatctl/" + version
	}

	client, err := bugsplat.NewClient(cfg.BugSplat.URL, logger,
		bugsplat.WithTimeout(cfg.HTTP.Timeout),
		bugsplat.WithRetry(cfg.HTTP.MaxRetries, cfg.HTTP.RetryWaitMin, cfg.HTTP.RetryWaitMax),
		bugsplat.WithRateLimit(cfg.HTTP.RateLimit),
		bugsplat.WithUserAgent(ua),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create BugSplat client: %w", err)
	}
	return client, nil
}

// newDeps wires the client and login for a job
func newDeps(cmd *cobra.Command) (job.Deps, error) {
	user, pass, err := credentials(cmd.InOrStdin())
	if err != nil {
		return job.Deps{}, err
	}

	client, err := newClient()
	if err != nil {
		return job.Deps{}, err
	}

	return job.Deps{
		Client:    client,
		Databases: cfg.Databases,
		Username:  user,
		Password:  pass,
		Logger:    logger,
	}, nil
}
