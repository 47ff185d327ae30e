package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// codecFlags holds the flags shared by every subcommand that runs the codec.
type codecFlags struct {
	logLevel  string
	level     string
	filter    string
	idatSize  int
	maxBuffer int
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var flags codecFlags
	logger := zerolog.Nop()

	root := &cobra.Command{
		Use:          "pnglite",
		Short:        "Inspect, verify and convert PNG images",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := zerolog.ParseLevel(flags.logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", flags.logLevel, err)
			}
			logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).
				Level(lvl).
				With().Timestamp().Logger()
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
	pf.IntVar(&flags.maxBuffer, "max-buffer", 0, "largest buffer a decode may allocate, in bytes (0 = no limit)")

	// Subcommands hold a pointer so they see the logger built in
	// PersistentPreRunE.
	root.AddCommand(
		newInfoCommand(&flags, &logger),
		newCheckCommand(&flags, &logger),
		newConvertCommand(&flags, &logger),
		newDumpCommand(&flags, &logger),
	)

	return root
}
