package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/format"
	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/resolver"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive resolution session against one workspace",
	Long: `Start one language server session for the workspace and resolve
queries interactively. File paths are relative to the workspace root; line
and character numbers are zero-based.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withResolver(cmd.Context(), func(r *resolver.Resolver, f *format.Formatter) error {
			return runREPL(cmd, r, f)
		})
	},
}

const replHelp = `Commands:
  def <file> <line> <col>        Find definition at position
  refs <file> <line> <col>       Find references at position
  lib-def <module> [symbol]      Find a library symbol's definition
  lib-refs <module> [symbol]     Find workspace references to a library symbol
  search <query>                 Search workspace symbols
  symbols <file>                 List symbols in a file
  help                           Show this help
  quit                           Exit`

func runREPL(cmd *cobra.Command, r *resolver.Resolver, f *format.Formatter) error {
	root, err := filepath.Abs(flagWorkspace)
	if err != nil {
		return err
	}

	fmt.Printf("workspace: %s\n%s\n", root, replHelp)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(">>> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Println(replHelp)
		default:
			if err := runREPLCommand(cmd, r, f, root, fields); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		}
	}
}

func runREPLCommand(cmd *cobra.Command, r *resolver.Resolver, f *format.Formatter, root string, fields []string) error {
	ctx := cmd.Context()

	switch fields[0] {
	case "def", "refs":
		if len(fields) != 4 {
			return fmt.Errorf("usage: %s <file> <line> <col>", fields[0])
		}
		path := filepath.Join(root, fields[1])
		line, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid line %q", fields[2])
		}
		character, err := strconv.ParseUint(fields[3], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid character %q", fields[3])
		}
		if fields[0] == "def" {
			def, err := r.Definition(ctx, path, uint32(line), uint32(character), true)
			if err != nil {
				return err
			}
			fmt.Println(f.Definition(def))
			return nil
		}
		refs, err := r.References(ctx, path, uint32(line), uint32(character))
		if err != nil {
			return err
		}
		fmt.Println(f.References(refs))
		return nil

	case "lib-def", "lib-refs":
		if len(fields) < 2 || len(fields) > 3 {
			return fmt.Errorf("usage: %s <module> [symbol]", fields[0])
		}
		module, qualpath := splitFQNArgs(fields[1:])
		if fields[0] == "lib-def" {
			def, err := r.DefinitionByFQN(ctx, module, qualpath, true)
			if err != nil {
				return err
			}
			fmt.Println(f.Definition(def))
			return nil
		}
		refs, err := r.ReferencesByFQN(ctx, module, qualpath)
		if err != nil {
			return err
		}
		fmt.Println(f.References(refs))
		return nil

	case "search":
		if len(fields) != 2 {
			return fmt.Errorf("usage: search <query>")
		}
		syms, err := r.SearchSymbols(ctx, fields[1])
		if err != nil {
			return err
		}
		fmt.Println(f.Symbols(syms))
		return nil

	case "symbols":
		if len(fields) != 2 {
			return fmt.Errorf("usage: symbols <file>")
		}
		syms, err := r.FileSymbols(ctx, filepath.Join(root, fields[1]))
		if err != nil {
			return err
		}
		fmt.Println(f.Symbols(syms))
		return nil

	default:
		return fmt.Errorf("unknown command %q (try help)", fields[0])
	}
}

func init() {
	rootCmd.AddCommand(replCmd)
}
