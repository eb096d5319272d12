package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cosync/cosyncjwt"
)

// Env carries the process environment into the command tree.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
}

// OSEnv returns the real process environment.
func OSEnv() Env {
	return Env{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr, Getenv: os.Getenv}
}

type globalFlags struct {
	configPath  string
	appToken    string
	restAddress string
	logLevel    string
}

type app struct {
	env    Env
	flags  globalFlags
	prompt *prompter
	logger zerolog.Logger
}

// NewRootCommand builds the cosyncjwt command tree.
func NewRootCommand(env Env) *cobra.Command {
	a := &app{env: env, prompt: newPrompter(env.Stdin, env.Stderr)}

	root := &cobra.Command{
		Use:   "cosyncjwt",
		Short: "Drive a CosyncJWT application from the command line",
		Long: `cosyncjwt runs CosyncJWT authentication flows against a REST backend.

Settings come from --config (YAML), then COSYNCJWT_APP_TOKEN,
COSYNCJWT_REST_ADDRESS and COSYNCJWT_LOG_LEVEL, then flags.

Examples:
  cosyncjwt app --app-token $TOKEN
  cosyncjwt login --handle alice@example.com
  cosyncjwt signup --handle bob@example.com --metadata '{"plan":"free"}'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupLogger()
		},
	}
	root.SetIn(env.Stdin)
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.flags.appToken, "app-token", "", "application token")
	pf.StringVar(&a.flags.restAddress, "rest-address", "", "REST address (default "+cosyncjwt.DefaultRestAddress+")")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		a.appCmd(),
		a.loginCmd(),
		a.loginAnonymousCmd(),
		a.signupCmd(),
		a.registerCmd(),
		a.inviteCmd(),
		a.forgotPasswordCmd(),
		a.changePasswordCmd(),
		a.deleteAccountCmd(),
	)
	return root
}

// Execute runs the command tree with ctx and the process environment.
func Execute(ctx context.Context) error {
	return NewRootCommand(OSEnv()).ExecuteContext(ctx)
}

func (a *app) resolve() (FileConfig, error) {
	cfg, err := LoadFile(a.flags.configPath)
	if err != nil {
		return cfg, err
	}
	if a.env.Getenv != nil {
		cfg.applyEnv(a.env.Getenv)
	}
	if a.flags.appToken != "" {
		cfg.AppToken = a.flags.appToken
	}
	if a.flags.restAddress != "" {
		cfg.RestAddress = a.flags.restAddress
	}
	if a.flags.logLevel != "" {
		cfg.LogLevel = a.flags.logLevel
	}
	return cfg, nil
}

func (a *app) setupLogger() error {
	cfg, err := a.resolve()
	if err != nil {
		return err
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("%w: invalid log level %q", errConfig, cfg.LogLevel)
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: a.env.Stderr, NoColor: true}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return nil
}

func (a *app) newClient() (*cosyncjwt.Client, error) {
	fc, err := a.resolve()
	if err != nil {
		return nil, err
	}
	cfg, err := fc.clientConfig()
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Lint().BySeverity(cosyncjwt.LintWarn) {
		a.logger.Warn().Str("code", w.Code).Msg(w.Message)
	}

	b := cosyncjwt.New().WithConfig(cfg).WithLogger(a.logger)
	if cfg.Audit.Enabled {
		b = b.WithAuditSink(cosyncjwt.NewJSONWriterSink(a.env.Stderr))
	}
	return b.Build()
}

func (a *app) printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

func requireFlag(cmd *cobra.Command, name string) (string, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return "", fmt.Errorf("%w: --%s is required", errUsage, name)
	}
	return v, nil
}
