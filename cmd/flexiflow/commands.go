package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/amp-labs/flexiflow/cli"
	"github.com/amp-labs/flexiflow/component"
	"github.com/amp-labs/flexiflow/config"
	"github.com/amp-labs/flexiflow/engine"
	"github.com/amp-labs/flexiflow/logger"
	"github.com/amp-labs/flexiflow/server"
	"github.com/amp-labs/flexiflow/statemachine"
	"github.com/amp-labs/flexiflow/statepack"
	"github.com/amp-labs/flexiflow/symbols"
)

func (a *app) newEngine() (*engine.Engine, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}

	return engine.New(
		engine.WithSettings(settings),
		engine.WithLogSink(component.SlogSink{Logger: logger.Get(a.ctx)}),
	), nil
}

func loadConfig(path string, rulesFiles []string) (*config.Component, error) {
	cfg, err := config.LoadComponent(path)
	if err != nil {
		return nil, err
	}

	for _, file := range rulesFiles {
		rules, err := config.LoadRules(file)
		if err != nil {
			return nil, err
		}

		cfg.Rules = append(cfg.Rules, rules...)
	}

	return cfg, nil
}

type runCommand struct {
	app *app

	Config   string   `short:"c" long:"config"  required:"true" description:"component YAML file"`
	Rules    []string `short:"r" long:"rules"                   description:"rules file appended to the component's rules (repeatable)"`
	Messages []string `short:"m" long:"message"                 description:"message type to send (repeatable); prompts when omitted"`
}

func (c *runCommand) Execute([]string) error {
	cfg, err := loadConfig(c.Config, c.Rules)
	if err != nil {
		return err
	}

	eng, err := c.app.newEngine()
	if err != nil {
		return err
	}

	defer eng.Close()

	comp, err := eng.BuildComponent(c.app.ctx, cfg)
	if err != nil {
		return err
	}

	if len(c.Messages) == 0 {
		runner := &cli.Runner{
			Engine:    eng,
			Component: comp.Name(),
			Prompter:  c.app.prompter,
			Out:       c.app.out,
		}

		return runner.Run(c.app.ctx)
	}

	for _, msgType := range c.Messages {
		from := comp.CurrentState()

		if err := eng.HandleMessage(c.app.ctx, comp.Name(), statemachine.Message{"type": msgType}); err != nil {
			return fmt.Errorf("message %q: %w", msgType, err)
		}

		_, _ = fmt.Fprintf(c.app.out, "%s --[%s]--> %s\n", from, msgType, comp.CurrentState())
	}

	_, _ = fmt.Fprintf(c.app.out, "%s: %s\n", comp.Name(), comp.CurrentState())

	return nil
}

type explainCommand struct {
	app *app

	Config string `short:"c" long:"config" required:"true"                 description:"component YAML file"`
	Format string `short:"f" long:"format" default:"text" choice:"text" choice:"json" description:"output format"`
}

func (c *explainCommand) Execute([]string) error {
	cfg, err := config.LoadComponent(c.Config)
	if err != nil {
		return err
	}

	catalog, err := c.app.catalog(cfg)
	if err != nil {
		return err
	}

	if c.Format == "json" {
		enc := json.NewEncoder(c.app.out)
		enc.SetIndent("", "  ")

		return enc.Encode(catalog.Explain())
	}

	_, err = fmt.Fprint(c.app.out, catalog.ExplainText())

	return err
}

type diagramCommand struct {
	app *app

	Config    string   `short:"c" long:"config"    required:"true"                        description:"component YAML file"`
	Direction string   `short:"d" long:"direction" default:"TD" choice:"TD" choice:"LR" description:"diagram direction"`
	Final     []string `long:"final"                                                 description:"state drawn as final (repeatable)"`
	Plain     bool     `long:"plain"                                                 description:"omit the mermaid code fence"`
}

func (c *diagramCommand) Execute([]string) error {
	cfg, err := config.LoadComponent(c.Config)
	if err != nil {
		return err
	}

	catalog, err := c.app.catalog(cfg)
	if err != nil {
		return err
	}

	opts := statepack.DefaultDiagramOptions()
	opts.Direction = c.Direction
	opts.Fenced = !c.Plain
	opts.Finals = c.Final

	if !symbols.IsReference(cfg.InitialState) {
		opts.Initial = cfg.InitialState
	}

	out, err := statepack.Mermaid(catalog, opts)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(c.app.out, out)

	return err
}

func (a *app) catalog(cfg *config.Component) (*statepack.Catalog, error) {
	eng, err := a.newEngine()
	if err != nil {
		return nil, err
	}

	defer eng.Close()

	return eng.BuildCatalog(a.ctx, cfg)
}

type serveCommand struct {
	app *app

	Configs []string `short:"c" long:"config" required:"true" description:"component YAML file (repeatable)"`
	Addr    string   `short:"a" long:"addr"   default:":8080"  description:"listen address"`
}

func (c *serveCommand) Execute([]string) error {
	eng, err := c.app.newEngine()
	if err != nil {
		return err
	}

	c.app.coord.BeforeShutdown("engine", func(context.Context) error {
		eng.Close()

		return nil
	})

	for _, path := range c.Configs {
		cfg, err := config.LoadComponent(path)
		if err != nil {
			return err
		}

		if _, err := eng.BuildComponent(c.app.ctx, cfg); err != nil {
			return err
		}
	}

	ctx := c.app.coord.SetupHandler(c.app.ctx)

	return server.New(eng).ListenAndServe(ctx, c.Addr)
}
