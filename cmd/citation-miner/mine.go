// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/citation-miner/internal/corpus"
	"github.com/pdiddy/citation-miner/internal/mine"
	"github.com/pdiddy/citation-miner/internal/segment"
	"github.com/pdiddy/citation-miner/pkg/types"
)

var mineCmd = &cobra.Command{
	Use:   "mine <known-docs> <output-dir> <iterative|total>",
	Short: "Extract query/document pairs from a list of PMC articles",
	Long: `Mine reads the article paths listed in --articles, resolves each
article's reference list to PubMed identifiers, and emits a training pair
for every sentence that cites a document present in <known-docs>.

<known-docs> is a JSON object {"pmid": ["title", "abstract"], ...}.
The policy decides how citations within one sentence become pairs:
iterative emits one pair per citation cluster, total one per sentence.

The output directory receives qid2info.json, train.jsonl, fullrun_stats,
parse_full_text, citation_in_paper_stats, and run.yaml.`,
	Args: cobra.ExactArgs(3),
	RunE: runMine,
}

func runMine(cmd *cobra.Command, args []string) error {
	policy, err := types.ParsePolicy(args[2])
	if err != nil {
		return err
	}

	cfg := types.MiningConfig{
		KnownDocsPath: args[0],
		ArticleList:   viper.GetString("mine.articles"),
		OutputDir:     args[1],
		Policy:        policy,
		Segmenter: types.SegmenterConfig{
			Backend:       types.SegmenterBackend(viper.GetString("mine.segmenter")),
			ModelPath:     viper.GetString("mine.sat_model"),
			TokenizerPath: viper.GetString("mine.sat_tokenizer"),
			Threshold:     viper.GetFloat64("mine.sat_threshold"),
			PoolSize:      viper.GetInt("mine.sat_pool_size"),
		},
	}

	logger := newLogger()
	seg, err := segment.New(cfg.Segmenter, logger)
	if err != nil {
		return err
	}
	if c, ok := seg.(io.Closer); ok {
		defer c.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := mine.Run(ctx, cfg, mine.Deps{Segmenter: seg, Logger: logger}, os.Stdout)
	if res != nil {
		printMineSummary(os.Stdout, res)
	}
	if err != nil {
		return err
	}

	if index, _ := cmd.Flags().GetBool("index"); index {
		store, err := corpus.NewStore(types.CorpusIndexConfig{OutputDir: cfg.OutputDir})
		if err != nil {
			return err
		}
		defer store.Close()
		if _, err := store.Ingest(ctx, os.Stdout); err != nil {
			return err
		}
		return printIndexSummary(ctx, os.Stdout, store, cfg.OutputDir)
	}
	return nil
}

func printMineSummary(w io.Writer, res *mine.RunResult) {
	st := res.Stats
	bold := color.New(color.Bold).SprintFunc()
	good := color.New(color.FgGreen).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "\n%s %s (%s)\n", bold("run"), res.RunID, st.Policy)
	fmt.Fprintf(w, "  articles       %d\n", st.Articles)
	fmt.Fprintf(w, "  fully parsed   %s\n", good(st.ArticlesFullyParsed))
	fmt.Fprintf(w, "  queries        %s\n", good(st.Queries))
	fmt.Fprintf(w, "  records        %s\n", good(st.TrainingRecords))
	fmt.Fprintf(w, "  no ref list    %d\n", len(st.NoRefList))
	fmt.Fprintf(w, "  unusable refs  %d\n", len(st.NonUsableRefList))

	failures := len(st.Unsuccessful)
	if failures > 0 {
		fmt.Fprintf(w, "  unsuccessful   %s\n", warn(failures))
	} else {
		fmt.Fprintf(w, "  unsuccessful   0\n")
	}
	if n := res.Log.Len(); n > 0 {
		fmt.Fprintf(w, "  %s\n", warn(fmt.Sprintf("%d entries in %s", n, mine.ErrorLogFile)))
	}
}

func init() {
	mineCmd.Flags().String("articles", mine.DefaultArticleList, "newline-delimited file of article XML paths")
	mineCmd.Flags().String("segmenter", string(types.SegmenterRules), "sentence segmenter: rules or sat")
	mineCmd.Flags().String("sat-model", "", "SaT ONNX model file (sat segmenter)")
	mineCmd.Flags().String("sat-tokenizer", "", "SentencePiece tokenizer model (sat segmenter)")
	mineCmd.Flags().Float64("sat-threshold", 0.025, "sentence boundary threshold (sat segmenter)")
	mineCmd.Flags().Int("sat-pool-size", 0, "ONNX session pool size (0 = number of CPUs)")
	mineCmd.Flags().Bool("index", false, "index the run output into the corpus database afterwards")

	for key, flag := range map[string]string{
		"mine.articles":      "articles",
		"mine.segmenter":     "segmenter",
		"mine.sat_model":     "sat-model",
		"mine.sat_tokenizer": "sat-tokenizer",
		"mine.sat_threshold": "sat-threshold",
		"mine.sat_pool_size": "sat-pool-size",
	} {
		viper.BindPFlag(key, mineCmd.Flags().Lookup(flag))
	}

	rootCmd.AddCommand(mineCmd)
}
