package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohamedkhairy/streamta/internal/bars"
	"github.com/mohamedkhairy/streamta/internal/config"
	"github.com/mohamedkhairy/streamta/internal/models"
	"github.com/mohamedkhairy/streamta/internal/pubsub"
	"github.com/mohamedkhairy/streamta/pkg/logger"
	"github.com/urfave/cli/v3"
)

// replayAction reads JSON bars and writes them to the finalized bar stream
func replayAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cmd.String("log-level")
	if level == "" {
		level = cfg.LogLevel
	}
	if err := logger.Init(level, cfg.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	var input io.Reader = os.Stdin
	if path := cmd.String("file"); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		input = f
	}

	redisClient, err := pubsub.NewRedisClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	stream := cmd.String("stream")
	if stream == "" {
		stream = cfg.Indicator.StreamName
	}
	publisherConfig := bars.DefaultPublisherConfig()
	publisherConfig.FinalizedStream = stream
	publisherConfig.Partitions = cmd.Int("partitions")
	publisherConfig.BatchSize = cmd.Int("batch-size")

	publisher := bars.NewPublisher(redisClient, publisherConfig)
	if err := publisher.Start(); err != nil {
		return err
	}

	delay := cmd.Duration("delay")
	start := time.Now()
	n, readErr := bars.ReadBars(ctx, input, func(bar *models.Bar1m) error {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		return publisher.PublishFinalizedBar(bar)
	})

	if err := publisher.Stop(); err != nil {
		return err
	}
	if readErr != nil {
		return readErr
	}

	logger.Info("Replay finished",
		logger.Stream(stream),
		logger.Int("bars", n),
		logger.Int64("published", publisher.Published()),
		logger.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "replay",
		Usage: "Publish historical 1-minute bars (one JSON object per line) to the bar stream",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Input file, `-` reads standard input",
				Value:   "-",
			},
			&cli.StringFlag{
				Name:    "stream",
				Aliases: []string{"s"},
				Usage:   "Target stream (defaults to INDICATOR_STREAM_NAME)",
			},
			&cli.IntFlag{
				Name:  "partitions",
				Usage: "Number of stream partitions, bars are routed by symbol",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Bars per stream write",
				Value: 100,
			},
			&cli.DurationFlag{
				Name:  "delay",
				Usage: "Pause between bars, e.g. 10ms, to simulate a live feed",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Overrides LOG_LEVEL",
			},
		},
		Action: replayAction,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}
}
