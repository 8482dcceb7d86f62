package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/format"
	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/resolver"
)

var flagHover bool

var definitionCmd = &cobra.Command{
	Use:   "definition <file> <line> <character>",
	Short: "Find the definition of the symbol at a zero-based position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, line, character, err := parsePosition(args)
		if err != nil {
			return err
		}
		return withResolver(cmd.Context(), func(r *resolver.Resolver, f *format.Formatter) error {
			def, err := r.Definition(cmd.Context(), path, line, character, flagHover)
			if err != nil {
				return err
			}
			fmt.Println(f.Definition(def))
			return nil
		})
	},
}

var referencesCmd = &cobra.Command{
	Use:   "references <file> <line> <character>",
	Short: "Find all references to the symbol at a zero-based position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, line, character, err := parsePosition(args)
		if err != nil {
			return err
		}
		return withResolver(cmd.Context(), func(r *resolver.Resolver, f *format.Formatter) error {
			refs, err := r.References(cmd.Context(), path, line, character)
			if err != nil {
				return err
			}
			fmt.Println(f.References(refs))
			return nil
		})
	},
}

var libDefCmd = &cobra.Command{
	Use:   "lib-def <module> [symbol]",
	Short: "Find the definition of a library symbol by fully-qualified name",
	Long: `Find where a library symbol is defined even when it never appears in
any workspace file, e.g. "lib-def os.path join".`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		module, qualpath := splitFQNArgs(args)
		return withResolver(cmd.Context(), func(r *resolver.Resolver, f *format.Formatter) error {
			def, err := r.DefinitionByFQN(cmd.Context(), module, qualpath, flagHover)
			if err != nil {
				return err
			}
			fmt.Println(f.Definition(def))
			return nil
		})
	},
}

var libRefsCmd = &cobra.Command{
	Use:   "lib-refs <module> [symbol]",
	Short: "Find workspace references to a library symbol by fully-qualified name",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		module, qualpath := splitFQNArgs(args)
		return withResolver(cmd.Context(), func(r *resolver.Resolver, f *format.Formatter) error {
			refs, err := r.ReferencesByFQN(cmd.Context(), module, qualpath)
			if err != nil {
				return err
			}
			fmt.Println(f.References(refs))
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search workspace symbols by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withResolver(cmd.Context(), func(r *resolver.Resolver, f *format.Formatter) error {
			syms, err := r.SearchSymbols(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(f.Symbols(syms))
			return nil
		})
	},
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols <file>",
	Short: "List the symbols defined in a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		return withResolver(cmd.Context(), func(r *resolver.Resolver, f *format.Formatter) error {
			syms, err := r.FileSymbols(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Println(f.Symbols(syms))
			return nil
		})
	},
}

func parsePosition(args []string) (path string, line, character uint32, err error) {
	path, err = filepath.Abs(args[0])
	if err != nil {
		return "", 0, 0, err
	}
	l, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid line %q: %w", args[1], err)
	}
	c, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid character %q: %w", args[2], err)
	}
	return path, uint32(l), uint32(c), nil
}

func splitFQNArgs(args []string) (module, qualpath string) {
	module = args[0]
	if len(args) > 1 {
		qualpath = args[1]
	}
	return module, qualpath
}

func init() {
	definitionCmd.Flags().BoolVar(&flagHover, "hover", false, "include hover text in the result")
	libDefCmd.Flags().BoolVar(&flagHover, "hover", false, "include hover text in the result")

	rootCmd.AddCommand(definitionCmd, referencesCmd, libDefCmd, libRefsCmd, searchCmd, symbolsCmd)
}
