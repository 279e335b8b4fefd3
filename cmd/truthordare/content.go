package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	truthordare "github.com/jxucoder/truthordare"
	"github.com/jxucoder/truthordare/content"
	"github.com/jxucoder/truthordare/model"
	sqliteStore "github.com/jxucoder/truthordare/store/sqlite"
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Inspect and import prompt content",
}

var contentShowCmd = &cobra.Command{
	Use:   "show [mode]",
	Short: "List the prompts the game would use",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runContentShow,
}

var contentImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a JSON or YAML prompt pack into the content database",
	Args:  cobra.ExactArgs(1),
	RunE:  runContentImport,
}

func init() {
	contentCmd.AddCommand(contentShowCmd)
	contentCmd.AddCommand(contentImportCmd)
	rootCmd.AddCommand(contentCmd)
}

func runContentShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := truthordare.LoadContent(contentDB(cfg), cfg.ContentFile)
	if err != nil {
		return err
	}

	modes := model.Modes()
	if len(args) == 1 {
		m, err := model.ParseMode(args[0])
		if err != nil {
			return err
		}
		modes = []model.Mode{m}
	}
	for _, m := range modes {
		printPool(cmd.OutOrStdout(), table, m)
	}
	return nil
}

func printPool(w io.Writer, table content.Table, m model.Mode) {
	truths, challenges := table.Counts(m)
	fmt.Fprintf(w, "%s (%d truths, %d challenges)\n", m, truths, challenges)
	for _, t := range table.Lookup(m, model.TypeTruth) {
		fmt.Fprintf(w, "  T  %s\n", t)
	}
	for _, c := range table.Lookup(m, model.TypeChallenge) {
		fmt.Fprintf(w, "  C  %s\n", c)
	}
}

func runContentImport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	table, err := content.LoadFile(args[0])
	if err != nil {
		return err
	}

	dbPath := cfg.ContentDB
	if dbPath == "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		dbPath = cfg.DefaultContentDB()
	}
	st, err := sqliteStore.New(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	prev, err := st.LastImport()
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading import history: %w", err)
	}

	n, err := st.Import(table, args[0])
	if err != nil {
		return err
	}
	logger.Sugar().Infow("content imported", "source", args[0], "prompts", n, "db", dbPath)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d prompts into %s\n", n, dbPath)
	if prev != nil {
		fmt.Fprintf(out, "Replaced %d prompts from %s (imported %s)\n",
			prev.Prompts, prev.Source, prev.ImportedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
