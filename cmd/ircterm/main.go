package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drake/ircterm/config"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ircterm:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags config.Config

	cmd := &cobra.Command{
		Use:   "ircterm [flags] HOST [PORT]",
		Short: "A minimal interactive IRC client for the terminal",
		Long: `ircterm connects to an IRC server and lets you type raw protocol lines.
Every line you enter is parsed and sent as is; everything the server sends
is shown. Ctrl+C or Ctrl+D leaves with QUIT :goodbye.`,
		Args:          cobra.RangeArgs(0, 2),
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyArgs(&flags, args)
			cfg, err := config.Load(flags)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.TLS, "tls", false, "connect using TLS")
	f.BoolVar(&flags.NoVerify, "noverify", false, "do not verify the server certificate")
	f.StringVar(&flags.Cert, "cert", "", "PEM `FILE` with a client certificate and key, for CertFP")
	f.StringVarP(&flags.TrafficLog, "log", "l", "", "write raw protocol traffic to `FILE`")
	f.BoolVarP(&flags.NoPing, "noping", "n", false, "do not answer PING automatically")
	f.BoolVar(&flags.Simple, "simple", false, "use the plain console UI")
	f.StringVar(&flags.File, "config", "", "config `FILE` (default "+config.DefaultFile()+")")
	f.DurationVar(&flags.DrainTimeout, "drain-timeout", 0, "how long to wait for the server to close after QUIT (default 5s)")
	f.Float64Var(&flags.SendRate, "send-rate", 0, "maximum lines sent per second, 0 for no limit")
	f.IntVar(&flags.SendBurst, "send-burst", 0, "lines that may be sent back to back (default 4)")
	f.BoolP("version", "V", false, "print version and exit")

	return cmd
}

// applyArgs fills host and port from positional arguments.
func applyArgs(flags *config.Config, args []string) {
	if len(args) > 0 {
		flags.Host = args[0]
	}
	if len(args) > 1 {
		flags.Port = args[1]
	}
}
