package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xrbt/lib/tree"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArgument    = errors.New("bad argument")
	ErrTreeBroken     = errors.New("tree invariants broken")
)

type step struct {
	no   int
	op   string
	args []string
}

// parseScript keeps the non-blank lines that are not # comments.
func parseScript(text string) []step {
	steps := lo.Map(strings.Split(text, "\n"), func(line string, idx int) step {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return step{no: idx + 1}
		}
		return step{no: idx + 1, op: strings.ToLower(fields[0]), args: fields[1:]}
	})
	return lo.Filter(steps, func(s step, _ int) bool {
		return s.op != ""
	})
}

type replayer struct {
	tree     tree.RBTree[int64]
	codec    tree.KeyCodec[int64]
	out      io.Writer
	validate bool
}

func (r *replayer) key(s step) (int64, error) {
	if len(s.args) != 1 {
		return 0, fmt.Errorf("line %d: %w: %s takes one key", s.no, ErrBadArgument, s.op)
	}
	k, err := r.codec.DecodeKey(s.args[0])
	if err != nil {
		return 0, fmt.Errorf("line %d: %w: %w", s.no, ErrBadArgument, err)
	}
	return k, nil
}

func (r *replayer) noArgs(s step) error {
	if len(s.args) != 0 {
		return fmt.Errorf("line %d: %w: %s takes no argument", s.no, ErrBadArgument, s.op)
	}
	return nil
}

func (r *replayer) printKey(key int64, ok bool, absent string) {
	if ok {
		fmt.Fprintln(r.out, key)
		return
	}
	fmt.Fprintln(r.out, absent)
}

func (r *replayer) run(s step) (bool, error) {
	switch s.op {
	case "insert":
		k, err := r.key(s)
		if err != nil {
			return false, err
		}
		r.tree.Insert(k)
		fmt.Fprintln(r.out, "ok")
		return true, nil
	case "delete":
		k, err := r.key(s)
		if err != nil {
			return false, err
		}
		removed, ok := r.tree.Delete(k)
		r.printKey(removed, ok, "absent")
		return true, nil
	case "search":
		k, err := r.key(s)
		if err != nil {
			return false, err
		}
		found, ok := r.tree.Search(k)
		r.printKey(found, ok, "absent")
	case "successor":
		k, err := r.key(s)
		if err != nil {
			return false, err
		}
		succ, ok := r.tree.Successor(k)
		r.printKey(succ, ok, "none")
	case "deletemin":
		if err := r.noArgs(s); err != nil {
			return false, err
		}
		removed, ok := r.tree.DeleteMin()
		r.printKey(removed, ok, "empty")
		return true, nil
	case "min", "max":
		if err := r.noArgs(s); err != nil {
			return false, err
		}
		fn := r.tree.Min
		if s.op == "max" {
			fn = r.tree.Max
		}
		key, ok := fn()
		r.printKey(key, ok, "empty")
	case "len":
		if err := r.noArgs(s); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, r.tree.Len())
	case "print":
		if err := r.noArgs(s); err != nil {
			return false, err
		}
		if err := r.tree.Encode(r.out); err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("line %d: %w %q", s.no, ErrUnknownCommand, s.op)
	}
	return false, nil
}

func (r *replayer) check(s step) error {
	err := tree.Validate(r.tree)
	if err == nil {
		return nil
	}
	for _, e := range multierr.Errors(err) {
		fmt.Fprintf(r.out, "violation: %v\n", e)
	}
	return fmt.Errorf("line %d: %w: %w", s.no, ErrTreeBroken, err)
}

func newReplayCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <script|->",
		Short: "Run an operation script against an empty tree",
		Long: `Run an operation script, one operation per line:

  insert <k>     delete <k>     deletemin
  search <k>     successor <k>  min   max
  len            print

Blank lines and text after # are ignored. Each operation prints one
result line, print writes the canonical text of the tree.

Examples:
  rbtctl replay ops.txt
  rbtctl replay --validate - < ops.txt
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
			script, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			return runReplay(a, string(script), cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool("validate", false, "check every invariant after each mutation")
	return cmd
}

func runReplay(a *app, script string, out io.Writer) error {
	r := &replayer{
		tree:     tree.NewRBTree[int64](a.treeOpts()...),
		codec:    tree.DefaultKeyCodec[int64](),
		out:      out,
		validate: a.cfg.Tree.Validate,
	}
	steps := parseScript(script)
	for _, s := range steps {
		a.logger.Debug("replay step",
			zap.Int("line", s.no),
			zap.String("op", s.op),
			zap.Strings("args", s.args),
		)
		mutated, err := r.run(s)
		if err != nil {
			a.logger.Error(err, "replay failed", zap.Int("line", s.no))
			return err
		}
		if mutated && r.validate {
			if err = r.check(s); err != nil {
				a.logger.Error(err, "replay failed", zap.Int("line", s.no))
				return err
			}
		}
	}
	a.logger.Info("replay done",
		zap.Int("steps", len(steps)),
		zap.Int64("len", r.tree.Len()),
	)
	return nil
}
