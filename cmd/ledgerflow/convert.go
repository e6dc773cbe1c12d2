package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/ledgerflow/internal/cli"
	"github.com/Veraticus/ledgerflow/internal/engine"
	"github.com/Veraticus/ledgerflow/internal/export"
	"github.com/Veraticus/ledgerflow/internal/ledger"
	"github.com/Veraticus/ledgerflow/internal/rates"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func init() {
	convertCmd := &cobra.Command{
		Use:   "convert [ledger.csv]",
		Short: "Convert a Kraken ledger export into bookkeeping import CSVs",
		Long: `Convert reconciles a Kraken ledger export into three Portfolio Performance
import files: normal depot movements, inbound deliveries, and cash account
movements.

Examples:
  # Convert without valuations (sentinel rates in the output)
  ledgerflow convert ~/Downloads/ledgers.csv

  # Value crypto movements from a Portfolio Performance rates export
  ledgerflow convert --rates-file ~/Downloads/prices.csv ~/Downloads/ledgers.csv

  # Value crypto movements from a previously imported rate store
  ledgerflow convert --rates-db ~/.local/share/ledgerflow/rates.db ~/Downloads/ledgers.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: runConvert,
	}

	convertCmd.Flags().String("rates-file", "", "Portfolio Performance rates export to value crypto movements with")
	convertCmd.Flags().String("rates-db", "", "SQLite rate store to value crypto movements with")
	convertCmd.Flags().String("rates-language", "de", "number locale of the rates export (de, en)")
	convertCmd.Flags().String("currency-mapping", "", "JSON object renaming rates export columns, e.g. '{\"Bitcoin\":\"XBT-EUR\"}'")
	convertCmd.Flags().StringP("fiat-currency", "f", "EUR", "fiat currency of the cash account")
	convertCmd.Flags().String("ignore-refids", "", "comma-separated refids to exclude from processing")
	convertCmd.Flags().StringP("out-dir", "o", ".", "directory to write the import CSVs into")
	convertCmd.Flags().String("depot", "DEPOT", "name of the current depot")
	convertCmd.Flags().String("depot-new", "DEPOT_NEW", "name of the depot transfers move into")
	convertCmd.Flags().String("account", "ACCOUNT", "name of the cash account")
	convertCmd.Flags().StringP("language", "l", "de", "output locale (de, en)")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return engine.ErrNoInput
	}
	ledgerPath := args[0]

	language, _ := cmd.Flags().GetString("language")
	writer, err := export.NewWriter(export.Language(language))
	if err != nil {
		return err
	}

	provider, closeProvider, err := buildProvider(cmd)
	if err != nil {
		return err
	}
	defer closeProvider()

	f, err := os.Open(ledgerPath)
	if err != nil {
		return fmt.Errorf("failed to open ledger export: %w", err)
	}
	defer func() { _ = f.Close() }()

	ctx := cmd.Context()
	entries, err := ledger.NewParser().ParseFile(ctx, f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", ledgerPath, err)
	}

	fiat, _ := cmd.Flags().GetString("fiat-currency")
	ignoreList, _ := cmd.Flags().GetString("ignore-refids")
	depot, _ := cmd.Flags().GetString("depot")
	depotNew, _ := cmd.Flags().GetString("depot-new")
	account, _ := cmd.Flags().GetString("account")

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Reconciling transaction groups..."),
	)

	processor, err := engine.New(engine.Config{
		FiatCurrency: fiat,
		DepotCurrent: depot,
		DepotNew:     depotNew,
		Account:      account,
		IgnoreRefIDs: splitRefIDs(ignoreList),
		RateProvider: provider,
		Progress: func(done, total int) {
			bar.ChangeMax(total)
			_ = bar.Set(done)
		},
	})
	if err != nil {
		return err
	}

	result, err := processor.Process(ctx, entries)
	if err != nil {
		return err
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	outDir, _ := cmd.Flags().GetString("out-dir")
	outputs := []struct {
		name  string
		write func(f *os.File) error
	}{
		{"transactions_normal_depot.csv", func(f *os.File) error { return writer.WriteDepotNormal(f, result.DepotRecords) }},
		{"transactions_special_depot.csv", func(f *os.File) error { return writer.WriteDepotSpecial(f, result.DepotRecords) }},
		{"transactions_account.csv", func(f *os.File) error { return writer.WriteAccount(f, result.AccountRecords) }},
	}
	for _, output := range outputs {
		path := filepath.Join(outDir, output.name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := output.write(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", path, err)
		}
		slog.Info("Wrote import file", "path", path)
	}

	printSummary(result, outDir)
	return nil
}

func printSummary(result *engine.Result, outDir string) {
	fmt.Println(cli.FormatTitle("Conversion complete"))
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%d groups reconciled (%d deposits, %d withdrawals, %d trades, %d staking)",
		result.Counts.Groups,
		result.Counts.Deposits,
		result.Counts.Withdrawals,
		result.Counts.Trades,
		result.Counts.Stakings)))
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%d account records, %d depot records written to %s",
		len(result.AccountRecords),
		len(result.DepotRecords),
		outDir)))
	if result.Counts.InternalTransfers > 0 {
		fmt.Println(cli.FormatSubtle(fmt.Sprintf("%d internal staking transfers dropped", result.Counts.InternalTransfers)))
	}
	if result.Counts.Unrecognized > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d groups could not be classified; see the log for their contents", result.Counts.Unrecognized)))
	}
}

// buildProvider assembles the optional rate provider from the flags. The
// engine runs fine with none; output then carries the sentinel rates.
func buildProvider(cmd *cobra.Command) (rates.Provider, func(), error) {
	noop := func() {}

	ratesDB, _ := cmd.Flags().GetString("rates-db")
	ratesFile, _ := cmd.Flags().GetString("rates-file")
	fiat, _ := cmd.Flags().GetString("fiat-currency")

	if ratesDB != "" && ratesFile != "" {
		return nil, noop, fmt.Errorf("--rates-file and --rates-db are mutually exclusive")
	}

	if ratesDB != "" {
		store, err := rates.OpenStore(ratesDB, fiat)
		if err != nil {
			return nil, noop, err
		}
		return store, func() { _ = store.Close() }, nil
	}

	if ratesFile != "" {
		ratesLanguage, _ := cmd.Flags().GetString("rates-language")
		mappingJSON, _ := cmd.Flags().GetString("currency-mapping")

		opts := []rates.CSVOption{
			rates.WithFiatCurrency(fiat),
			rates.WithLanguage(ratesLanguage),
			rates.WithSource(filepath.Base(ratesFile)),
		}
		if mappingJSON != "" {
			var mapping map[string]string
			if err := json.Unmarshal([]byte(mappingJSON), &mapping); err != nil {
				return nil, noop, fmt.Errorf("invalid --currency-mapping: %w", err)
			}
			opts = append(opts, rates.WithColumnMapping(mapping))
		}

		f, err := os.Open(ratesFile)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open rates export: %w", err)
		}
		defer func() { _ = f.Close() }()

		provider, err := rates.NewCSVProvider(f, opts...)
		if err != nil {
			return nil, noop, err
		}
		return provider, noop, nil
	}

	slog.Warn("No rate source configured; crypto valuations will carry sentinel values")
	return nil, noop, nil
}

func splitRefIDs(list string) []string {
	var ids []string
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
