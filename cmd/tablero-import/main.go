package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tablero/internal/amqp"
	"tablero/internal/cli"
	"tablero/internal/config"
	"tablero/internal/dashboard"
	"tablero/internal/filter"
	"tablero/internal/loader"
	"tablero/internal/log"
	"tablero/internal/services"
	"tablero/internal/sheets/excel"
	"tablero/internal/storage"
)

var Cmd = &cobra.Command{
	Use:           "tablero-import",
	Short:         "Import and inspect the ideas dataset",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, argv []string) error {
		cli.LoadEnvFile()
		c, err := cli.LoadAndValidateConfig()
		if err != nil {
			return err
		}
		cfg = c
		logger = cli.SetupLogger(cfg.LogLevel)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy an .xlsx workbook into the SQLite store and announce a reload",
	RunE:  runImport,
}

var kpisCmd = &cobra.Command{
	Use:   "kpis",
	Short: "Print the KPIs of the configured backend",
	RunE:  runKPIs,
}

var importsCmd = &cobra.Command{
	Use:   "imports",
	Short: "List past imports, newest first",
	RunE:  runImports,
}

var (
	cfg    *config.Config
	logger *log.Logger
)

var args struct {
	from      string
	sheet     string
	noPublish bool

	area        string
	facilitator string
	since       string
	until       string

	limit int
}

func init() {
	importCmd.Flags().StringVar(&args.from, "from", "", "path of the .xlsx workbook (defaults to EXCEL_PATH)")
	importCmd.Flags().StringVar(&args.sheet, "sheet", "", "sheet name (defaults to EXCEL_SHEET, then the first sheet)")
	importCmd.Flags().BoolVar(&args.noPublish, "no-publish", false, "skip the AMQP reload announcement")

	kpisCmd.Flags().StringVar(&args.area, "area", filter.AllAreas, "area to keep")
	kpisCmd.Flags().StringVar(&args.facilitator, "facilitator", filter.AllFacilitators, "facilitator to keep")
	kpisCmd.Flags().StringVar(&args.since, "from", "", "first day, YYYY-MM-DD")
	kpisCmd.Flags().StringVar(&args.until, "to", "", "last day, YYYY-MM-DD")

	importsCmd.Flags().IntVar(&args.limit, "limit", 20, "number of imports to list")

	Cmd.AddCommand(importCmd, kpisCmd, importsCmd)
}

func main() {
	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

func runImport(cmd *cobra.Command, argv []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	path := args.from
	if path == "" {
		path = cfg.ExcelPath
	}
	sheet := args.sheet
	if sheet == "" {
		sheet = cfg.ExcelSheet
	}

	aliases, err := loader.Aliases(cfg.Columns)
	if err != nil {
		return fmt.Errorf("column aliases: %w", err)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open idea store: %w", err)
	}
	defer repo.Close()

	var publisher services.ReloadPublisher
	switch {
	case args.noPublish:
		logger.Info("Reload announcement skipped")
	case cfg.AMQPURL == "":
		logger.Info("AMQP disabled - servers pick up the import on their next refresh")
	default:
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, import will not be announced", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	svc := services.NewImportService(repo, publisher, aliases, logger)
	res, err := svc.Import(ctx, excel.New(path, sheet), filepath.Base(path))
	if err != nil {
		log.NewStructuredLogger(logger).LogError(ctx, "Import failed", err,
			log.ComponentImport, log.OpImport, log.LogFields{log.FieldSource: path})
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "imported %d ideas from %s (version %s)\n", res.Import.RowCount, path, res.Import.Version)
	if res.Stats.Undated > 0 {
		fmt.Fprintf(out, "  %d ideas without a readable date\n", res.Stats.Undated)
	}
	if res.Stats.Skipped > 0 {
		fmt.Fprintf(out, "  %d blank rows skipped\n", res.Stats.Skipped)
	}
	if !res.Published && publisher != nil {
		fmt.Fprintln(out, "  reload announcement failed; servers will refresh on their own schedule")
	}
	return nil
}

func runKPIs(cmd *cobra.Command, argv []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	ld, closeSource, err := cli.NewLoader(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	t := ld.Load(ctx)
	criteria := filter.Criteria{
		Area:        args.area,
		Facilitator: args.facilitator,
		Range:       filter.ParseRange(args.since, args.until),
	}
	if (args.since != "" || args.until != "") && criteria.Range == nil {
		logger.Warn("Ignoring incomplete or invalid date range", log.FieldFrom, args.since, log.FieldTo, args.until)
	}
	d := dashboard.Compute(filter.Apply(t, criteria), cfg.TopN)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	if t.Synthetic {
		fmt.Fprintf(w, "source\tsynthetic (%s)\n", t.Origin)
	} else {
		fmt.Fprintf(w, "source\t%s\n", t.Source)
	}
	k := d.KPIs
	fmt.Fprintf(w, "total\t%d\n", k.Total)
	fmt.Fprintf(w, "implemented\t%d\n", k.Implemented)
	fmt.Fprintf(w, "viable pending\t%d\n", k.ViablePending)
	fmt.Fprintf(w, "not viable\t%d\n", k.NotViable)
	fmt.Fprintf(w, "approved\t%d\n", k.Approved)
	fmt.Fprintf(w, "rejected\t%d\n", k.Rejected)
	fmt.Fprintf(w, "to review\t%d\n", k.ToReview)
	fmt.Fprintf(w, "implementation\t%.1f%%\n", k.ImplementationPct)
	if d.Overlapping {
		fmt.Fprintln(w, "note\tsome ideas fall in more than one bucket")
	}
	return w.Flush()
}

func runImports(cmd *cobra.Command, argv []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open idea store: %w", err)
	}
	defer repo.Close()

	imports, err := repo.Imports(ctx, args.limit)
	if err != nil {
		return err
	}
	if len(imports) == 0 {
		return errors.New("no imports yet")
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tIMPORTED\tROWS\tSOURCE\tVERSION")
	for _, imp := range imports {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			imp.ID, imp.ImportedAt.Local().Format(time.DateTime), imp.RowCount, imp.Source, imp.Version)
	}
	return w.Flush()
}
