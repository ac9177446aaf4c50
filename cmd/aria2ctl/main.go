// Command aria2ctl is a small command-line companion for a running aria2
// daemon, built on the client library in this repository.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/slipstream/aria2"
	"github.com/slipstream/aria2/internal/config"
	"github.com/slipstream/aria2/internal/logger"
)

const usage = `Usage: aria2ctl [flags] <command> [args]

Commands:
  add <uri>...        queue a download and print its GID
  status <gid>        show one download
  list                show active, waiting, and stopped downloads
  pause <gid>         pause a download ("all" pauses everything)
  resume <gid>        resume a download ("all" resumes everything)
  remove <gid>        remove a download
  watch <gid>         wait until a download finishes
  stat                show global transfer statistics
  version             show aria2 server version
  shutdown            ask the server to shut down

Flags:
`

func main() {
	// A .env next to the binary may carry ARIA2CTL_RPC_SECRET.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	output := flag.String("o", "yaml", "Output format: yaml or json")
	dir := flag.String("dir", "", "Download directory for add")
	paused := flag.Bool("paused", false, "Add the download paused")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aria2ctl: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   cfg.Logging.Path,
	})
	defer log.Close()

	client, err := aria2.New(aria2.Config{
		Endpoint: cfg.RPC.Endpoint,
		Secret:   cfg.RPC.Secret,
		Timeout:  cfg.RPC.Timeout(),
		Headers:  cfg.RPC.Headers,
		Logger:   log.Logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "aria2ctl: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, client, *output, *dir, *paused, flag.Args()); err != nil {
		log.Error().Err(err).Str("command", flag.Arg(0)).Msg("command failed")
		fmt.Fprintf(os.Stderr, "aria2ctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client *aria2.Client, output, dir string, paused bool, args []string) error {
	command, rest := args[0], args[1:]

	switch command {
	case "add":
		if len(rest) == 0 {
			return fmt.Errorf("add: at least one URI required")
		}
		opts := aria2.Options{}
		if dir != "" {
			opts["dir"] = dir
		}
		if paused {
			opts["pause"] = "true"
		}
		if len(opts) == 0 {
			opts = nil
		}
		gid, err := client.AddURI(ctx, rest, opts)
		if err != nil {
			return err
		}
		fmt.Println(gid)
		return nil

	case "status":
		if len(rest) != 1 {
			return fmt.Errorf("status: exactly one GID required")
		}
		status, err := client.TellStatus(ctx, rest[0])
		if err != nil {
			return err
		}
		return render(output, status)

	case "list":
		return list(ctx, client, output)

	case "pause":
		if len(rest) != 1 {
			return fmt.Errorf("pause: exactly one GID required")
		}
		if rest[0] == "all" {
			return client.PauseAll(ctx)
		}
		return client.Pause(ctx, rest[0])

	case "resume":
		if len(rest) != 1 {
			return fmt.Errorf("resume: exactly one GID required")
		}
		if rest[0] == "all" {
			return client.UnpauseAll(ctx)
		}
		return client.Unpause(ctx, rest[0])

	case "remove":
		if len(rest) != 1 {
			return fmt.Errorf("remove: exactly one GID required")
		}
		return client.Remove(ctx, rest[0])

	case "watch":
		if len(rest) != 1 {
			return fmt.Errorf("watch: exactly one GID required")
		}
		status, err := client.WaitForDownload(ctx, rest[0])
		if err != nil {
			return err
		}
		return render(output, status)

	case "stat":
		stat, err := client.GetGlobalStat(ctx)
		if err != nil {
			return err
		}
		return render(output, stat)

	case "version":
		info, err := client.GetVersion(ctx)
		if err != nil {
			return err
		}
		return render(output, info)

	case "shutdown":
		return client.Shutdown(ctx)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func list(ctx context.Context, client *aria2.Client, output string) error {
	active, err := client.TellActive(ctx)
	if err != nil {
		return err
	}
	waiting, err := client.TellWaiting(ctx, 0, 1000)
	if err != nil {
		return err
	}
	stopped, err := client.TellStopped(ctx, 0, 1000)
	if err != nil {
		return err
	}
	return render(output, map[string][]aria2.Status{
		"active":  active,
		"waiting": waiting,
		"stopped": stopped,
	})
}

func render(format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
