package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/ledgerflow/internal/cli"
	"github.com/Veraticus/ledgerflow/internal/rates"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	ratesCmd := &cobra.Command{
		Use:   "rates",
		Short: "Manage the local historical rate store",
	}

	importCmd := &cobra.Command{
		Use:   "import [rates-export.csv]",
		Short: "Import a Portfolio Performance rates export into the local store",
		Args:  cobra.ExactArgs(1),
		RunE:  runRatesImport,
	}
	importCmd.Flags().String("rates-language", "de", "number locale of the rates export (de, en)")
	importCmd.Flags().String("currency-mapping", "", "JSON object renaming rates export columns")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show what the local rate store covers",
		Args:  cobra.NoArgs,
		RunE:  runRatesShow,
	}

	for _, c := range []*cobra.Command{importCmd, showCmd} {
		c.Flags().String("rates-db", "", "path of the SQLite rate store (default: $HOME/.local/share/ledgerflow/rates.db)")
		c.Flags().StringP("fiat-currency", "f", "EUR", "fiat currency the rates are quoted in")
		ratesCmd.AddCommand(c)
	}

	rootCmd.AddCommand(ratesCmd)
}

func storePath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("rates-db"); path != "" {
		return path, nil
	}
	if path := viper.GetString("rates.db"); path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "ledgerflow", "rates.db"), nil
}

func runRatesImport(cmd *cobra.Command, args []string) error {
	exportPath := args[0]
	fiat, _ := cmd.Flags().GetString("fiat-currency")
	language, _ := cmd.Flags().GetString("rates-language")
	mappingJSON, _ := cmd.Flags().GetString("currency-mapping")

	opts := []rates.CSVOption{
		rates.WithFiatCurrency(fiat),
		rates.WithLanguage(language),
		rates.WithSource(filepath.Base(exportPath)),
	}
	if mappingJSON != "" {
		var mapping map[string]string
		if err := json.Unmarshal([]byte(mappingJSON), &mapping); err != nil {
			return fmt.Errorf("invalid --currency-mapping: %w", err)
		}
		opts = append(opts, rates.WithColumnMapping(mapping))
	}

	f, err := os.Open(exportPath)
	if err != nil {
		return fmt.Errorf("failed to open rates export: %w", err)
	}
	defer func() { _ = f.Close() }()

	provider, err := rates.NewCSVProvider(f, opts...)
	if err != nil {
		return err
	}

	dbPath, err := storePath(cmd)
	if err != nil {
		return err
	}
	store, err := rates.OpenStore(dbPath, fiat)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	written, err := store.ImportQuotes(cmd.Context(), provider.Quotes())
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d quotes into %s", written, dbPath)))
	return nil
}

func runRatesShow(cmd *cobra.Command, _ []string) error {
	fiat, _ := cmd.Flags().GetString("fiat-currency")

	dbPath, err := storePath(cmd)
	if err != nil {
		return err
	}
	store, err := rates.OpenStore(dbPath, fiat)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}

	if stats.Quotes == 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("Rate store %s holds no %s quotes yet", dbPath, fiat)))
		return nil
	}

	content := fmt.Sprintf("Quotes: %d\nRange:  %s to %s\nAssets: %s",
		stats.Quotes,
		stats.FromDay,
		stats.ToDay,
		strings.Join(stats.Assets, ", "))
	fmt.Println(cli.RenderBox(fmt.Sprintf("Rate store (%s)", fiat), content))
	return nil
}
