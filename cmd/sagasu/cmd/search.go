package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sagasu/pkg/errors"
)

const cliPreviewRunes = 30

type searchOptions struct {
	limit  int
	format string
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions
	cmd := &cobra.Command{
		Use:   "search <token>",
		Short: "Look a token up in the latest snapshot",
		Long: `Look a token up in the latest snapshot. Matching is exact: the token
must equal an indexed word n-gram, e.g. 好き or 猫が.

Examples:
  sagasu search 好き
  sagasu search 猫が --limit 5
  sagasu search 好き --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root, false)
			if err != nil {
				return err
			}
			return runSearch(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], opts)
		},
	}
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "maximum number of documents (default search.defaultLimit)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text, json")
	return cmd
}

func runSearch(ctx context.Context, out io.Writer, cfg *config.Config, token string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("%w: format %q", apperrors.ErrInvalidInput, opts.format)
	}
	store, err := snapshot.NewStore(cfg.Indexer.SnapshotDir)
	if err != nil {
		return err
	}
	engine, err := searcher.NewQueryEngine(config.SearchConfig{})
	if err != nil {
		return err
	}
	if _, err := engine.Load(ctx, store); err != nil {
		if errors.Is(err, apperrors.ErrSnapshotNotFound) {
			return fmt.Errorf("no snapshot in %s: run `sagasu index` first", store.Dir())
		}
		return err
	}

	limit := opts.limit
	if limit <= 0 {
		limit = cfg.Search.DefaultLimit
	}
	res, err := engine.Search(ctx, token, searcher.SearchOptions{Limit: limit, PreviewRunes: cliPreviewRunes})
	if err != nil {
		return err
	}
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printSearchResult(out, res)
	return nil
}

func printSearchResult(out io.Writer, res *searcher.SearchResult) {
	if res.TotalHits == 0 {
		fmt.Fprintf(out, "no documents contain %q\n", res.Query)
		return
	}
	fmt.Fprintf(out, "%d documents contain %q (snapshot %s)\n", res.TotalHits, res.Query, res.Snapshot)
	for _, h := range res.Results {
		fmt.Fprintf(out, "%s\n    %s\n", h.URI, h.Preview)
	}
	if shown := len(res.Results); shown < res.TotalHits {
		fmt.Fprintf(out, "... %d more\n", res.TotalHits-shown)
	}
}
