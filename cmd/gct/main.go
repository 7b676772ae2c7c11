package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xplshn/gct/pkg/ast"
	"github.com/xplshn/gct/pkg/cli"
	"github.com/xplshn/gct/pkg/codegen"
	"github.com/xplshn/gct/pkg/config"
	"github.com/xplshn/gct/pkg/lexer"
	"github.com/xplshn/gct/pkg/parser"
	"github.com/xplshn/gct/pkg/preprocess"
	"github.com/xplshn/gct/pkg/resolver"
	"github.com/xplshn/gct/pkg/util"
)

func main() {
	app := cli.NewApp("gct")
	app.Synopsis = "[options] <input.c> ..."
	app.Description = "A structural source translator from a typed C subset to Java and C++. Reads a C translation unit and writes the same program the way a native speaker of the target would."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/gct>"

	var (
		outFile   string
		std       string
		target    string
		className string
		pedantic  bool
		dumpAST   bool
		verbose   bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file>.", "file")
	fs.String(&target, "target-lang", "t", "java", "Set the target language (java, cpp).", "lang")
	fs.String(&className, "class-name", "", "", "Set the Java wrapper class name (default: derived from the output name).", "name")
	fs.String(&std, "std", "", "c99", "Specify language standard (c89, c99)", "std")
	fs.Bool(&pedantic, "pedantic", "", false, "Issue all warnings demanded by the current C std.")
	fs.Bool(&dumpAST, "dump-ast", "d", false, "Dump the annotated syntax tree and exit.")
	fs.Bool(&verbose, "verbose", "v", false, "Report each pipeline stage.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		// Pedantic flag affects the standard's warning set
		if pedantic {
			cfg.SetWarning(config.WarnPedantic, true)
		}

		// Apply language standard first
		if err := cfg.ApplyStd(std); err != nil {
			util.Report(err)
			return err
		}

		// Apply warning flags (override standard settings)
		for i, entry := range warningFlags {
			if entry.Enabled != nil && *entry.Enabled {
				cfg.SetWarning(config.Warning(i), true)
			}
			if entry.Disabled != nil && *entry.Disabled {
				cfg.SetWarning(config.Warning(i), false)
			}
		}

		// Apply feature flags (override standard settings)
		for i, entry := range featureFlags {
			if entry.Enabled != nil && *entry.Enabled {
				cfg.SetFeature(config.Feature(i), true)
			}
			if entry.Disabled != nil && *entry.Disabled {
				cfg.SetFeature(config.Feature(i), false)
			}
		}

		if err := cfg.SetTargetLang(target); err != nil {
			util.Report(err)
			return err
		}

		if len(inputFiles) == 0 {
			err := fmt.Errorf("no input files specified")
			util.Report(err)
			return err
		}
		if outFile != "" && len(inputFiles) > 1 {
			err := fmt.Errorf("cannot combine --output with multiple input files")
			util.Report(err)
			return err
		}

		failed := 0
		for _, path := range inputFiles {
			if err := translateFile(path, outFile, className, cfg, dumpAST, verbose); err != nil {
				util.Report(err)
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d unit(s) failed", failed, len(inputFiles))
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// translateFile runs the whole pipeline for one translation unit and
// writes the target file. Nothing is written when any stage fails.
func translateFile(path, outFile, className string, cfg *config.Config, dumpAST, verbose bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read '%s': %v", path, err)
	}

	out := outFile
	if cfg.Target == config.TargetJava {
		// The file name has to match the public class.
		switch {
		case className != "":
			cfg.ClassName = className
		case out != "":
			cfg.ClassName = classNameFor(out)
		default:
			cfg.ClassName = classNameFor(path)
		}
		if out == "" {
			out = filepath.Join(filepath.Dir(path), cfg.ClassName+".java")
		}
	} else if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + cfg.Target.Ext()
	}

	util.ResetWarnings()
	util.SetSourceFiles([]util.SourceFileRecord{{Name: path, Content: []rune(string(content))}})

	if verbose {
		fmt.Printf("Scanning directives in '%s'...\n", path)
	}
	pre, err := preprocess.Run(string(content), 0)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Println("Tokenizing...")
	}
	toks, err := lexer.Tokenize([]rune(pre.Source), 0, cfg)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Println("Parsing tokens into AST...")
	}
	root, err := parser.NewParser(toks, cfg).Parse()
	if err != nil {
		return err
	}

	consts, err := parser.ParseDefines(pre.Defines, cfg)
	if err != nil {
		return err
	}
	if len(consts) > 0 {
		block := root.Data.(ast.BlockNode)
		block.Stmts = append(consts, block.Stmts...)
		root.Data = block
	}

	if cfg.IsFeatureEnabled(config.FeatFoldConsts) {
		if verbose {
			fmt.Println("Folding constants...")
		}
		root = ast.FoldConstants(root)
	}

	if verbose {
		fmt.Println("Resolving names and types...")
	}
	if err := resolver.NewResolver(cfg).Resolve(root); err != nil {
		return err
	}
	if cfg.IsFeatureEnabled(config.FeatWerror) && util.EmittedWarnings() > 0 {
		return fmt.Errorf("%s: warnings treated as errors", path)
	}

	if dumpAST {
		fmt.Print(ast.Dump(root))
		return nil
	}

	if verbose {
		fmt.Printf("Generating %s...\n", cfg.Target)
	}
	buf, err := codegen.NewBackend(cfg).Generate(root, cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("could not write '%s': %v", out, err)
	}
	if verbose {
		fmt.Printf("Wrote '%s'.\n", out)
	}
	return nil
}

// classNameFor derives a legal Java class name from a file path.
func classNameFor(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var sb strings.Builder
	for _, r := range base {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	name := sb.String()
	if name == "" {
		return "Main"
	}
	if r := rune(name[0]); !unicode.IsLetter(r) && r != '_' {
		name = "_" + name
	}
	return name
}
