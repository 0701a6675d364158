package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"txmon/auth"
	"txmon/client"
	"txmon/config"
	"txmon/db"
	"txmon/models"
)

const usage = `usage: txmonctl <command> [flags]

commands:
  token   print a signed API token
  set     write a monitor setting into the config table
  show    print the published port states
  watch   follow the state stream of a running daemon
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "txmonctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "token":
		return runToken(args[1:], out)
	case "set":
		return runSet(ctx, args[1:], out)
	case "show":
		return runShow(ctx, args[1:], out)
	case "watch":
		return runWatch(ctx, args[1:], out)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	configFile := fs.String("config", "", "config file holding server.jwt_secret")
	secret := fs.String("secret", "", "signing secret, overrides the config")
	subject := fs.String("subject", "operator", "token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime, 0 for none")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key := *secret
	if key == "" {
		cfg, err := loadConfig(*configFile)
		if err != nil {
			return err
		}
		key = cfg.Server.JWTSecret
	}

	token, err := auth.IssueToken([]byte(key), *subject, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func connect(ctx context.Context, cfg *config.Config) (*db.Connector, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.InitDB(ctx, cfg.Redis)
}

func runSet(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	configFile := fs.String("config", "", "config file")
	key := fs.String("key", "", "polling_period or threshold")
	value := fs.String("value", "", "new value")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key != models.KeyPollingPeriod && *key != models.KeyThreshold {
		return fmt.Errorf("key must be %s or %s", models.KeyPollingPeriod, models.KeyThreshold)
	}
	if *value == "" {
		return errors.New("value is required")
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	conn, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.NewConfigTable(conn, cfg.Monitor.ConfigTable, zap.NewNop()).Set(ctx, *key, *value); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s|%s value=%s\n", cfg.Monitor.ConfigTable, *key, *value)
	return nil
}

func runShow(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	configFile := fs.String("config", "", "config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	conn, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	states, aliases, err := db.NewStateTable(conn, cfg.Monitor.StateTable).List(ctx)
	if err != nil {
		return err
	}
	for _, alias := range aliases {
		fmt.Fprintf(out, "%-20s %s\n", alias, states[alias])
	}
	return nil
}

func runWatch(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	addr := fs.String("addr", "localhost:8080", "daemon address or base URL")
	token := fs.String("token", "", "API token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	c := client.NewStreamClient(*addr, *token, nil, logger)
	return c.Run(ctx, func(st models.PortStatus) {
		fmt.Fprintf(out, "%s %-20s %s\n", st.UpdatedAt.Format(time.RFC3339), st.Alias, st.State)
	})
}
