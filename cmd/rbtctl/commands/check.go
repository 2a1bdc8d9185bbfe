package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benz9527/xrbt/lib/tree"
)

var violationKinds = []error{
	tree.ErrRootColor,
	tree.ErrRedViolation,
	tree.ErrBlackViolation,
	tree.ErrOrderViolation,
}

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file|->",
		Short: "Decode and validate a canonical text tree",
		Long: `Decode a tree written one node per line as key;color;leftKey;rightKey
and check every red-black invariant. Exits non-zero on a parse error or
an invariant violation.

Examples:
  rbtctl check tree.txt
  rbtctl gen --count 100 | rbtctl check -
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			defer func() {
				_ = in.Close()
			}()
			return runCheck(a, in, cmd.OutOrStdout())
		},
	}
}

func runCheck(a *app, in io.Reader, out io.Writer) error {
	t, err := tree.Decode[int64](in, a.treeOpts()...)
	if err == nil {
		minKey, _ := t.Min()
		maxKey, _ := t.Max()
		fmt.Fprintf(out, "ok: %d keys\n", t.Len())
		a.logger.Info("tree checked",
			zap.Int64("len", t.Len()),
			zap.Int64("first", minKey),
			zap.Int64("last", maxKey),
		)
		return nil
	}

	var pe *tree.ParseError
	switch {
	case errors.As(err, &pe):
		fmt.Fprintf(out, "parse error: line %d: %v\n", pe.Line, pe.Err)
	case errors.Is(err, tree.ErrInvalidTree):
		for _, kind := range lo.Filter(violationKinds, func(kind error, _ int) bool {
			return errors.Is(err, kind)
		}) {
			fmt.Fprintf(out, "violation: %v\n", kind)
		}
	}
	a.logger.Error(err, "tree check failed")
	return err
}
