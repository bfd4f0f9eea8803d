// Command molselect is a small REPL that loads a demonstration
// MolecularContext from a YAML fixture and evaluates MolSelect queries
// against it, printing the resulting atom indices.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/cabb99/molselect/config"
	"github.com/cabb99/molselect/eval"
	"github.com/cabb99/molselect/grammar"
	"github.com/cabb99/molselect/macro"
	"github.com/cabb99/molselect/molctx"
	"github.com/cabb99/molselect/parser"
	"github.com/cabb99/molselect/registry"
)

var (
	fixturePath  = flag.String("fixture", "", "path to a YAML MolecularContext fixture (required)")
	logpath      = flag.String("log", "", "log to file")
	noconfig     = flag.Bool("noconfig", false, "skip loading the user registry-extension file")
	bondedWithin = flag.Bool("bonded-within", false, "interpret \"bonded N to X\" as within N hops instead of exactly N hops")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	if *logpath != "" {
		logFile, err := os.Create(*logpath)
		if err != nil {
			exitWithError(err)
		}
		defer logFile.Close()
		log.SetOutput(logFile)
	} else {
		log.SetOutput(io.Discard)
	}

	if *fixturePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*fixturePath); err != nil {
		exitWithError(err)
	}
}

func printUsage() {
	f := flag.CommandLine.Output()
	fmt.Fprintf(f, "Usage: %s -fixture path/to/context.yaml [options]\n", os.Args[0])
	flag.PrintDefaults()
	fmt.Fprintf(f, "\nREPL commands:\n")
	fmt.Fprintf(f, "  set NAME VALUE [NAME VALUE ...]   bind $NAME for subsequent queries\n")
	fmt.Fprintf(f, "  QUERY                             evaluate QUERY against the fixture\n")
	fmt.Fprintf(f, "  quit                              exit\n")
}

func run(path string) error {
	fx, err := loadFixture(path)
	if err != nil {
		return err
	}

	r := registry.New()
	if err := registry.RegisterBuiltinKeywords(r); err != nil {
		return err
	}
	if err := registry.RegisterBuiltinMacros(r); err != nil {
		return err
	}

	ext, err := config.LoadOrCreateExtension(*noconfig)
	if err != nil {
		return err
	}
	if err := ext.Apply(r); err != nil {
		return err
	}

	gram := grammar.Assemble(r)
	expander := macro.New(gram, r)

	opts := eval.Options{}
	if *bondedWithin {
		opts.BondedMode = eval.BondedWithinHops
	}
	evaluator := eval.New(r, opts)

	overrides := make(map[string]float64)
	ctx, err := fx.buildContext(overrides)
	if err != nil {
		return err
	}

	log.Printf("loaded fixture %q with %d atoms\n", path, ctx.NumAtoms())

	return repl(os.Stdin, os.Stdout, fx, ctx, overrides, gram, expander, evaluator)
}

func repl(in io.Reader, out io.Writer, fx *fixture, ctx0 *molctx.Context, overrides map[string]float64, gram *grammar.Grammar, expander *macro.Expander, evaluator *eval.Evaluator) error {
	ctx := ctx0
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "molselect> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprint(out, "molselect> ")
			continue
		}

		words, err := shlex.Split(line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			fmt.Fprint(out, "molselect> ")
			continue
		}

		switch words[0] {
		case "quit", "exit":
			return nil
		case "set":
			if err := applySet(words[1:], overrides); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				break
			}
			ctx, err = fx.buildContext(overrides)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		default:
			evaluateQuery(out, line, gram, expander, evaluator, ctx)
		}

		fmt.Fprint(out, "molselect> ")
	}
	return scanner.Err()
}

func applySet(args []string, overrides map[string]float64) error {
	if len(args) == 0 || len(args)%2 != 0 {
		return fmt.Errorf("set requires NAME VALUE pairs")
	}
	for i := 0; i < len(args); i += 2 {
		v, err := strconv.ParseFloat(args[i+1], 64)
		if err != nil {
			return fmt.Errorf("%s: %w", args[i], err)
		}
		overrides[args[i]] = v
	}
	return nil
}

func evaluateQuery(out io.Writer, query string, gram *grammar.Grammar, expander *macro.Expander, evaluator *eval.Evaluator, ctx *molctx.Context) {
	node, err := parser.Parse(gram, query)
	if err != nil {
		fmt.Fprintf(out, "parse error: %v\n", err)
		return
	}
	expanded, err := expander.Expand(node)
	if err != nil {
		fmt.Fprintf(out, "macro error: %v\n", err)
		return
	}
	mask, err := evaluator.Evaluate(expanded, ctx)
	if err != nil {
		fmt.Fprintf(out, "eval error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%d/%d atoms: %v\n", mask.Count(), ctx.NumAtoms(), mask.Indices())
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "%v\n", err)
	os.Exit(1)
}
