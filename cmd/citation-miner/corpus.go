// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/citation-miner/internal/corpus"
	"github.com/pdiddy/citation-miner/internal/mine"
	"github.com/pdiddy/citation-miner/pkg/types"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Index and search mined corpora (store, retrieve, export)",
	Long: `Corpus manages a SQLite index over the output of a mining run. Use
subcommands to index the run, search queries, or export them.`,
}

// --- store subcommand ---

var corpusStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Index a run's queries and training records",
	Long: `Store reads qid2info.json, train.jsonl, and citation_in_paper_stats
from the output directory into index/corpus.db with FTS5 indexing over
query text, and writes index/export.yaml. An unchanged run is skipped.`,
	RunE: runCorpusStore,
}

func runCorpusStore(cmd *cobra.Command, args []string) error {
	cfg := corpusConfig()
	store, err := corpus.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.Ingest(ctx, os.Stdout); err != nil {
		return err
	}
	return printIndexSummary(ctx, os.Stdout, store, cfg.OutputDir)
}

// printIndexSummary prints the index size and, when the output directory
// holds a run manifest, the run it was built from.
func printIndexSummary(ctx context.Context, w io.Writer, store *corpus.Store, outputDir string) error {
	c, err := store.Counts(ctx)
	if err != nil {
		return err
	}
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %d queries, %d edges, %d articles\n", bold("index"), c.Queries, c.Edges, c.Articles)

	m, err := mine.ReadManifest(filepath.Join(outputDir, mine.ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  run %s (%s, finished %s)\n", m.RunID, m.Config.Policy, m.FinishedAt.Format(time.RFC3339))
	if m.Cancelled {
		fmt.Fprintf(w, "  %s\n", color.YellowString("run was cancelled; the index holds a partial corpus"))
	}
	return nil
}

// --- retrieve subcommand ---

var corpusRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Search mined queries by text or cited document",
	Long: `Retrieve searches the corpus index using FTS5 full-text search over
query text, a --pmid filter for queries citing one document, or both.`,
	RunE: runCorpusRetrieve,
}

func runCorpusRetrieve(cmd *cobra.Command, args []string) error {
	store, err := corpus.NewStore(corpusConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	opts := corpusQueryOpts(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query or --pmid")
	}

	results, err := store.Retrieve(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatCorpusResults(results, jsonOutput)
}

func formatCorpusResults(results []corpus.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-8s  %-60s  %s\n", "Rank", "QID", "Query", "PMIDs")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for i, r := range results {
		text := []rune(r.Text)
		if len(text) > 60 {
			text = append(text[:57], []rune("...")...)
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-8s  %-60s  %s\n", i+1, r.QID, string(text), strings.Join(r.PMIDs, ","))
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var corpusExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export indexed queries to YAML or JSON",
	Long: `Export writes the indexed queries (or a filtered subset) to
index/export.yaml or index/export.json under the output directory.`,
	RunE: runCorpusExport,
}

func runCorpusExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := corpus.NewStore(corpusConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	opts := corpusQueryOpts(cmd, args)

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(context.Background(), opts)
	case "json":
		path, err = store.ExportJSON(context.Background(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// --- shared helpers ---

func corpusConfig() types.CorpusIndexConfig {
	return types.CorpusIndexConfig{
		OutputDir:  viper.GetString("corpus.output_dir"),
		MaxResults: viper.GetInt("corpus.max_results"),
	}
}

func corpusQueryOpts(cmd *cobra.Command, args []string) corpus.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}
	pmid, _ := cmd.Flags().GetString("pmid")
	limit, _ := cmd.Flags().GetInt("limit")

	return corpus.QueryOptions{Query: queryText, PMID: pmid, MaxResults: limit}
}

func init() {
	corpusCmd.PersistentFlags().String("output-dir", "output", "mining output directory (contains qid2info.json, train.jsonl, index/)")
	corpusCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")
	viper.BindPFlag("corpus.output_dir", corpusCmd.PersistentFlags().Lookup("output-dir"))
	viper.BindPFlag("corpus.max_results", corpusCmd.PersistentFlags().Lookup("max-results"))

	corpusRetrieveCmd.Flags().String("query", "", "full-text search query")
	corpusRetrieveCmd.Flags().String("pmid", "", "only queries citing this PubMed id")
	corpusRetrieveCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	corpusRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	corpusExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	corpusExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	corpusExportCmd.Flags().String("pmid", "", "PubMed id filter for partial export")

	corpusCmd.AddCommand(corpusStoreCmd)
	corpusCmd.AddCommand(corpusRetrieveCmd)
	corpusCmd.AddCommand(corpusExportCmd)

	rootCmd.AddCommand(corpusCmd)
}
