// Command flexiflow runs, explains, diagrams and serves flexiflow components.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/amp-labs/flexiflow/cli"
	"github.com/amp-labs/flexiflow/envutil"
	"github.com/amp-labs/flexiflow/logger"
	"github.com/amp-labs/flexiflow/shutdown"
	"github.com/amp-labs/flexiflow/telemetry"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

const appName = "flexiflow"

type options struct {
	EnvFile     string `long:"env-file"    default:".env" description:"dotenv file loaded before anything else, if it exists"`
	Environment string `long:"environment" default:"dev"  description:"deployment environment reported to telemetry" env:"ENVIRONMENT"`
}

type app struct {
	ctx      context.Context //nolint:containedctx
	out      io.Writer
	opts     options
	prompter cli.Prompter
	coord    *shutdown.Coordinator
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout))
}

func run(ctx context.Context, args []string, out io.Writer) int {
	a := &app{ctx: ctx, out: out, prompter: cli.NewTerminalPrompter()}

	parser := newParser(a)

	_, err := parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			_, _ = fmt.Fprintln(out, flagsErr.Message)

			return 0
		}

		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)

		return 1
	}

	return 0
}

func newParser(a *app) *flags.Parser {
	parser := flags.NewParser(&a.opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = appName

	mustAdd := func(name, short, long string, cmd flags.Commander) {
		if _, err := parser.AddCommand(name, short, long, cmd); err != nil {
			panic(err)
		}
	}

	mustAdd("run", "Send messages to a component",
		"Builds a component from a config file and sends it messages. "+
			"Without --message the messages are chosen interactively.",
		&runCommand{app: a})
	mustAdd("explain", "Show where each state key comes from",
		"Lists every state key a component config provides, grouped by pack.",
		&explainCommand{app: a})
	mustAdd("diagram", "Render declared transitions as Mermaid",
		"Prints a Mermaid state diagram of the transitions the component's packs declare.",
		&diagramCommand{app: a})
	mustAdd("serve", "Serve components over HTTP",
		"Builds every given component on one engine and exposes it over HTTP until interrupted.",
		&serveCommand{app: a})

	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if cmd == nil {
			return nil
		}

		if err := a.setup(); err != nil {
			return err
		}

		defer a.teardown()

		return cmd.Execute(args)
	}

	return parser
}

// setup loads the env file and configures telemetry and logging, in that order.
func (a *app) setup() error {
	if a.opts.EnvFile != "" {
		err := godotenv.Load(a.opts.EnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", a.opts.EnvFile, err)
		}
	}

	a.coord = shutdown.New(nil)

	cfg, err := telemetry.LoadConfigFromEnv(a.opts.Environment)
	if err != nil {
		return err
	}

	if err := telemetry.Initialize(a.ctx, cfg); err != nil {
		return err
	}

	a.coord.BeforeShutdown("telemetry", telemetry.Shutdown)

	logOpts := []logger.Option{logger.WithHandler(telemetry.LogHandler())}

	// Command output goes to stdout; keep logs off it unless asked.
	if !envutil.String("LOG_OUTPUT").HasValue() {
		logOpts = append(logOpts, logger.WithOutput(os.Stderr))
	}

	if _, err := logger.ConfigureLogging(appName, logOpts...); err != nil {
		return err
	}

	return nil
}

func (a *app) teardown() {
	_ = a.coord.Run(context.WithoutCancel(a.ctx))
}
