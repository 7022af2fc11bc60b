package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/thrustmig/internal/engine"
	"github.com/roach88/thrustmig/internal/ir"
)

// RulesOptions holds flags for the rules command.
type RulesOptions struct {
	*RootOptions
	RulesDir string
	Tree     bool // print decision trees
}

// RuleListing is one function of the rule table as printed by rules.
type RuleListing struct {
	Name      string            `json:"name"`
	Overloads []ir.OverloadRule `json:"overloads"`
	Trees     []string          `json:"trees,omitempty"`
}

// RulesResult holds the rules command output.
type RulesResult struct {
	Source    string        `json:"source"`
	RulesHash string        `json:"rules_hash"`
	Functions []RuleListing `json:"functions"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rules [function...]",
		Short: "List the rule table",
		Long: `List the functions and overloads of a rule table.

With function names, only those functions are listed. --tree prints the
decision tree built for each overload.

Examples:
  thrustmig rules
  thrustmig rules thrust::sort --tree
  thrustmig rules --rules ./rules --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RulesDir, "rules", "", "CUE rule table directory (default: built-in)")
	cmd.Flags().BoolVar(&opts.Tree, "tree", false, "print decision trees")

	return cmd
}

func runRules(opts *RulesOptions, names []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	reg, err := LoadRegistry(opts.RulesDir)
	if err != nil {
		code, message := loadErrorParts(err)
		_ = formatter.Error(code, message, nil)
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}

	if len(names) == 0 {
		names = reg.Functions()
	}

	source := opts.RulesDir
	if source == "" {
		source = BuiltinRules
	}
	result := RulesResult{
		Source:    source,
		RulesHash: reg.Hash(),
		Functions: make([]RuleListing, 0, len(names)),
	}

	for _, name := range names {
		fn, ok := reg.Lookup(name)
		if !ok {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no rules for %s", name), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("no rules for %s", name))
		}
		result.Functions = append(result.Functions, listFunction(fn, opts.Tree))
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Rules: %s (%d functions)\n\n", result.Source, len(result.Functions))
	for _, fn := range result.Functions {
		fmt.Fprintln(w, fn.Name)
		for i, o := range fn.Overloads {
			fmt.Fprintf(w, "  %s\n", formatOverload(o))
			if opts.Tree {
				for _, line := range strings.Split(strings.TrimSuffix(fn.Trees[i], "\n"), "\n") {
					fmt.Fprintf(w, "      %s\n", line)
				}
			}
		}
	}
	return nil
}

func listFunction(fn *engine.Function, trees bool) RuleListing {
	listing := RuleListing{Name: fn.Name, Overloads: fn.Overloads}
	if trees {
		listing.Trees = make([]string, len(fn.Overloads))
		for i := range fn.Overloads {
			listing.Trees[i] = fn.Tree(i).String()
		}
	}
	return listing
}

// formatOverload renders one overload as a single line, e.g.
// "args=3 policy ptrs=2 -> oneapi::dpl::sort [dpl_utils]".
func formatOverload(o ir.OverloadRule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "args=%d %s", o.ArgCount, o.Policy)
	if o.PtrCount > 0 {
		fmt.Fprintf(&b, " ptrs=%d", o.PtrCount)
	}
	fmt.Fprintf(&b, " -> %s [%s]", o.Target, o.Feature)
	if o.ExtAPI {
		b.WriteString(" ext_api")
	}
	return b.String()
}
