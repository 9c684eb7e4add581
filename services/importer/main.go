// Command importer bulk loads CSV dumps of the water table and exports
// filtered ranges back to CSV, going through the same writer and paging
// session as the API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/02loveslollipop/tswater/internal/logging"
	"github.com/02loveslollipop/tswater/services/api/config"
)

type Args struct {
	Import *ImportCmd `arg:"subcommand:import" help:"Import a CSV dump into the water table"`
	Export *ExportCmd `arg:"subcommand:export" help:"Export one station's samples to CSV"`
}

func (Args) Description() string {
	return `Water table import/export.
Store settings are read from the environment (.env is loaded):
    - STORE_DRIVER, DATABASE_URL or SQLITE_PATH, TSWATER_TABLE
    - DB_DATETIME_FORMAT, CODE_TABLE_FILE, UI_PAGE_SIZE, DB_WINDOW_SIZE`
}

func main() {
	var args Args
	parser := arg.MustParse(&args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case args.Import != nil:
		err = args.Import.Execute(ctx, cfg)
	case args.Export != nil:
		err = args.Export.Execute(ctx, cfg)
	default:
		fmt.Println("Error: passing a subcommand is required.")
		fmt.Println()
		parser.WriteHelp(os.Stdout)
		os.Exit(2)
	}

	if err != nil {
		log.Error().Err(err).Msg("importer failed")
		cancel()
		os.Exit(1)
	}
}

func NewBar(size int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(size,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
