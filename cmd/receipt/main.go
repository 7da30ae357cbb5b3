// Command receipt renders a receipt PDF from a booking JSON document and
// saves it to a directory or the configured sink.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/housika/receipts/internal/bootstrap"
	domain "github.com/housika/receipts/internal/domain/receipt"
	"github.com/housika/receipts/internal/infrastructure/config"
	"github.com/housika/receipts/internal/infrastructure/delivery"
	"github.com/housika/receipts/internal/infrastructure/logger"
)

func main() {
	var (
		input      string
		outputDir  string
		fileName   string
		configPath string
		logLevel   string
		timeout    time.Duration
	)

	flag.StringVar(&input, "in", "-", "Booking JSON file, or - for stdin")
	flag.StringVar(&outputDir, "out", "", "Directory to save into (default: configured sink)")
	flag.StringVar(&fileName, "name", "", "File name (default: Housika_Receipt_<number>.pdf)")
	flag.StringVar(&configPath, "config", "", "Path to config.toml (default: ./config.toml if present)")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall time limit")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if err := run(log, input, outputDir, fileName, configPath, timeout); err != nil {
		log.Error("Receipt generation failed", zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
}

type summary struct {
	ReceiptNumber string             `json:"receiptNumber"`
	FileName      string             `json:"fileName"`
	Sink          string             `json:"sink"`
	Location      string             `json:"location,omitempty"`
	Size          int                `json:"size"`
	Report        domain.StageReport `json:"report"`
}

func run(log *zap.Logger, input, outputDir, fileName, configPath string, timeout time.Duration) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	booking, err := readBooking(input)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var opts []bootstrap.Option
	if outputDir != "" {
		sink, err := delivery.NewFileSystemSink(&delivery.FileSystemSinkConfig{BasePath: outputDir, Logger: log})
		if err != nil {
			return err
		}
		opts = append(opts, bootstrap.WithDefaultSink(sink))
	}

	pipeline, err := bootstrap.Build(ctx, cfg, log, opts...)
	if err != nil {
		return err
	}

	result, err := pipeline.Service.Generate(ctx, booking)
	if err != nil {
		return err
	}
	saved, err := pipeline.Service.Deliver(ctx, result.Document.URL, fileName)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary{
		ReceiptNumber: result.Document.ReceiptNumber,
		FileName:      saved.FileName,
		Sink:          saved.Sink,
		Location:      saved.Location,
		Size:          result.Document.Size,
		Report:        result.Report,
	})
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func readBooking(input string) (domain.BookingRecord, error) {
	var r io.Reader = os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return domain.BookingRecord{}, fmt.Errorf("open booking: %w", err)
		}
		defer f.Close()
		r = f
	}

	var booking domain.BookingRecord
	dec := json.NewDecoder(io.LimitReader(r, 1<<20))
	if err := dec.Decode(&booking); err != nil {
		return domain.BookingRecord{}, fmt.Errorf("decode booking: %w", err)
	}
	return booking, nil
}
