package main

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/OFFIS-RIT/ris/internal/config"
	"github.com/OFFIS-RIT/ris/internal/storage"
	"github.com/OFFIS-RIT/ris/pkg/loader"
	"github.com/OFFIS-RIT/ris/pkg/logger"
	"github.com/OFFIS-RIT/ris/pkg/logger/console"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
)

// cli carries the state shared by all subcommands.
type cli struct {
	out io.Writer

	configPath string
	debug      bool
	jsonLogs   bool

	cfg config.Config
	s3  *s3.Client
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "ris",
		Short: "Reliability scoring for path-rule knowledge graph predictions",
		Long: `ris scores predicted (head, tail) pairs of a relation by comparing them
with reference cases selected through mined path rules, and by the
connectivity of the subgraph between head and tail.

Input and output paths may be local files or s3://bucket/key locations.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&c.jsonLogs, "json-logs", false, "log as JSON")

	root.AddCommand(
		newScoreCmd(c),
		newMatchCmd(c),
		newRescoreCmd(c),
		newStatsCmd(c),
		newMigrateCmd(c),
	)
	return root
}

func (c *cli) init(ctx context.Context) error {
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: c.debug,
		JSON:  c.jsonLogs,
	}))

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	if storage.S3Configured() {
		client, err := storage.NewS3Client(ctx)
		if err != nil {
			return err
		}
		c.s3 = client
	}
	return nil
}

func (c *cli) resolver() *loader.Resolver {
	return storage.NewResolver(c.s3)
}

// write renders output through fn and sends it to dest. An empty dest or
// "-" writes to stdout.
func (c *cli) write(ctx context.Context, dest string, fn func(w io.Writer) error) error {
	if dest == "" || dest == "-" {
		return fn(c.out)
	}
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return err
	}
	var putter storage.ObjectPutter
	if c.s3 != nil {
		putter = c.s3
	}
	if err := storage.WriteOutput(ctx, putter, dest, buf.Bytes()); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logger.Info("[CLI] Wrote output", "dest", dest)
	return nil
}
