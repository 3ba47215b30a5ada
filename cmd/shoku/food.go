package shoku

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/p42rthicle/shoku/internal/service"
	"github.com/p42rthicle/shoku/internal/suggest"
)

var foodCmd = &cobra.Command{
	Use:   "food",
	Short: "Browse the food catalog built from your log",
}

var foodListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog foods, most used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepo(cmd, func(ctx context.Context, repo *service.Repository) error {
			items, err := repo.Catalog().All(ctx)
			if err != nil {
				return err
			}
			printFoodItems(cmd, items)
			return nil
		})
	},
}

var suggestWatch bool

var foodSuggestCmd = &cobra.Command{
	Use:   "suggest [prefix]",
	Short: "Suggest catalog foods starting with prefix (case-sensitive)",
	Long: `Suggest catalog foods starting with prefix (case-sensitive).

With --watch, every line read from stdin is treated as the current text of a
name field and suggestion lists are printed as they settle.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if suggestWatch {
			return withRepo(cmd, func(ctx context.Context, repo *service.Repository) error {
				return watchSuggestions(ctx, cmd, repo)
			})
		}
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		return withRepo(cmd, func(ctx context.Context, repo *service.Repository) error {
			items, err := repo.SuggestionsFor(ctx, prefix)
			if err != nil {
				return err
			}
			printFoodItems(cmd, items)
			return nil
		})
	},
}

func watchSuggestions(ctx context.Context, cmd *cobra.Command, repo *service.Repository) error {
	registry := prometheus.NewRegistry()
	metrics, err := suggest.NewMetrics(registry)
	if err != nil {
		return err
	}
	p := suggest.New(repo,
		suggest.WithDebounce(cfg.Suggest.Debounce),
		suggest.WithMinLength(cfg.Suggest.MinLength),
		suggest.WithLogger(logger),
		suggest.WithMetrics(metrics),
	)

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for items := range p.Results() {
			fmt.Fprintf(cmd.OutOrStdout(), "-- %d suggestion(s)\n", len(items))
			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", item.Name, item.Frequency)
			}
		}
	}()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		p.Input(strings.TrimRight(scanner.Text(), "\r"))
	}
	if ctx.Err() == nil {
		p.Flush()
	}
	p.Close()
	<-printed

	if families, err := registry.Gather(); err == nil {
		for _, mf := range families {
			for _, m := range mf.GetMetric() {
				if c := m.GetCounter(); c != nil {
					logger.Debug("suggest stats", "metric", mf.GetName(), "labels", m.GetLabel(), "value", c.GetValue())
				}
			}
		}
	}
	return scanner.Err()
}

var foodRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a food from the catalog (logged entries keep their values)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("food id", args[0])
		if err != nil {
			return err
		}
		return withRepo(cmd, func(ctx context.Context, repo *service.Repository) error {
			if err := repo.Catalog().Remove(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed food %d\n", id)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(foodCmd)
	foodCmd.AddCommand(foodListCmd, foodSuggestCmd, foodRemoveCmd)
	foodSuggestCmd.Flags().BoolVar(&suggestWatch, "watch", false, "Read names from stdin and stream debounced suggestions")
}
