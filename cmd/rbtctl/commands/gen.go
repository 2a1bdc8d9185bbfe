package commands

import (
	"fmt"
	"io"
	randv2 "math/rand/v2"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benz9527/xrbt/lib/tree"
)

type genOptions struct {
	count   int
	deletes int
	seed    uint64
}

func newGenCommand(a *app) *cobra.Command {
	opts := genOptions{}
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Print the canonical text of a generated tree",
		Long: `Insert the keys 1..count in a seeded random order, delete some of
them in another random order and print the resulting tree.

Examples:
  rbtctl gen --count 1000 --seed 7 > tree.txt
  rbtctl gen --count 64 --deletes 16 --desc
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGen(a, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&opts.count, "count", 16, "number of keys to insert")
	cmd.Flags().IntVar(&opts.deletes, "deletes", 0, "number of keys to delete afterwards")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "shuffle seed")
	return cmd
}

func runGen(a *app, opts genOptions, out io.Writer) error {
	if opts.count < 0 || opts.deletes < 0 || opts.deletes > opts.count {
		return fmt.Errorf("%w: need 0 <= deletes <= count, got deletes=%d count=%d",
			ErrBadArgument, opts.deletes, opts.count)
	}

	rng := randv2.New(randv2.NewPCG(opts.seed, uint64(opts.count)))
	keys := lo.Map(lo.Range(opts.count), func(k int, _ int) int64 {
		return int64(k + 1)
	})
	rng.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})

	t := tree.NewRBTree[int64](a.treeOpts()...)
	for _, k := range keys {
		t.Insert(k)
	}
	rng.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})
	for _, k := range keys[:opts.deletes] {
		t.Delete(k)
	}

	a.logger.Debug("tree generated",
		zap.Int("count", opts.count),
		zap.Int("deletes", opts.deletes),
		zap.Uint64("seed", opts.seed),
	)
	return t.Encode(out)
}
