package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/adrg/xdg"

	"github.com/syou6162/git-line-patch/internal/apply"
	"github.com/syou6162/git-line-patch/internal/config"
	"github.com/syou6162/git-line-patch/internal/executor"
	"github.com/syou6162/git-line-patch/internal/gitrepo"
	"github.com/syou6162/git-line-patch/internal/linepatch"
	"github.com/syou6162/git-line-patch/internal/logger"
	"github.com/syou6162/git-line-patch/internal/operation"
	"github.com/syou6162/git-line-patch/internal/report"
	"github.com/syou6162/git-line-patch/internal/validator"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	path       string
	action     string
	status     string
	start      int
	length     int
	diff       string
	rev        string
	isNew      bool
	renamed    bool
	tree       string
	encoding   string
	configPath string
	dryRun     bool
	repo       string
}

func parseFlags(args []string, stderr io.Writer) (*options, map[string]bool, error) {
	fs := flag.NewFlagSet("git-line-patch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.path, "path", "", "Path of the file, relative to the repository root")
	fs.StringVar(&o.action, "action", "", "Action: stage, unstage, reset, apply (cherry-pick) or revert")
	fs.StringVar(&o.status, "status", "", "Where the displayed changes live: worktree, index or committed (resolved when empty)")
	fs.IntVar(&o.start, "start", 0, "Character offset of the selection in the displayed text")
	fs.IntVar(&o.length, "length", -1, "Character length of the selection (-1 selects the whole text)")
	fs.StringVar(&o.diff, "diff", "", "File holding the displayed text, - for stdin (default: obtained from git)")
	fs.StringVar(&o.rev, "rev", "", "Revision of a committed diff obtained from git")
	fs.BoolVar(&o.isNew, "new", false, "The file is new and displayed as plain text")
	fs.BoolVar(&o.renamed, "renamed", false, "The file is renamed")
	fs.StringVar(&o.tree, "tree", "", "Object id of the indexed content of a new file")
	fs.StringVar(&o.encoding, "encoding", "", "Encoding of the file content (default from config, utf-8)")
	fs.StringVar(&o.configPath, "config", "", "Path of the configuration file")
	fs.BoolVar(&o.dryRun, "dry-run", false, "Print the patch instead of applying it")
	fs.StringVar(&o.repo, "repo", ".", "Repository directory")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: git-line-patch -path=<file> -action=<action> [-start=N -length=N] [options]\n")
		fmt.Fprintf(stderr, "\nApplies the selected lines of a displayed diff to the index or worktree.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExample:\n")
		fmt.Fprintf(stderr, "  git diff -- main.go > view.diff\n")
		fmt.Fprintf(stderr, "  git-line-patch -path=main.go -action=stage -diff=view.diff -start=120 -length=40\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, set, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, set, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	log := logger.NewFromEnv()
	log.SetOutput(stderr)

	cfg, err := config.Load(xdg.ConfigHome, o.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if set["encoding"] {
		if err := cfg.SetEncoding(o.encoding); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	cmdExec := executor.NewRealCommandExecutor(executor.WithDir(o.repo), executor.WithLogger(log))

	v := validator.NewValidator(cmdExec, cfg.Git)
	if err := v.CheckDependencies(ctx); err != nil {
		fmt.Fprintf(stderr, "Dependency check failed: %v\n", err)
		return 1
	}
	parsed, err := v.ValidateArgs(validator.Args{
		Path:   o.path,
		Action: o.action,
		Status: o.status,
		Start:  o.start,
		Length: o.length,
		New:    o.isNew,
		Tree:   o.tree,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		return 1
	}

	repo, err := gitrepo.Open(o.repo, cmdExec, gitrepo.WithGit(cfg.Git), gitrepo.WithLogger(log))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fc := &operation.FileContext{
		Path:      o.path,
		IsNew:     o.isNew,
		IsRenamed: o.renamed,
		Status:    parsed.Status,
		TreeID:    o.tree,
		Revision:  o.rev,
		Encoding:  cfg.Encoding,
	}
	selector := operation.NewSelector(repo, log)

	text, err := displayedText(ctx, o, fc, repo, selector, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	// git apply resolves patch paths against its working directory
	applyExec := executor.NewRealCommandExecutor(executor.WithDir(repo.Root()), executor.WithLogger(log))
	engine := linepatch.New(linepatch.Config{
		Selector: selector,
		Pipeline: apply.NewPipeline(applyExec, repo, apply.Options{
			Git:                   cfg.Git,
			Timeout:               cfg.ApplyTimeout,
			StripFileModeWarnings: cfg.StripWarnings(),
		}, log),
		Reporter:          report.NewReporter(&report.Latch{}, cfg.BlockUntilReload, log),
		Blobs:             repo,
		Fallback:          repo,
		ValidatePatches:   cfg.ValidatePatches,
		WholeFileFallback: cfg.WholeFileFallback,
	}, log)

	req := linepatch.Request{File: fc, Action: parsed.Action, Text: text, Selection: parsed.Selection}
	if o.dryRun {
		p, err := engine.Preview(ctx, req)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		stdout.Write(p)
		return 0
	}

	res, err := engine.Run(ctx, req)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return printResult(res, stdout, stderr)
}

// displayedText returns the text the selection offsets refer to
func displayedText(ctx context.Context, o *options, fc *operation.FileContext, repo *gitrepo.Repository, selector *operation.Selector, stdin io.Reader) (string, error) {
	if o.diff != "" {
		var (
			data []byte
			err  error
		)
		if o.diff == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(o.diff)
		}
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", o.diff, err)
		}
		src, err := gitrepo.NewSource(data, fc.Encoding)
		if err != nil {
			return "", err
		}
		if fc.IsNew {
			fc.Preamble = src.Preamble
		}
		return src.Text, nil
	}

	status, err := selector.Status(ctx, fc)
	if err != nil {
		return "", err
	}
	if fc.IsNew {
		src, err := repo.FileText(ctx, fc.Path, status, fc.Encoding)
		if err != nil {
			return "", err
		}
		fc.Preamble = src.Preamble
		return src.Text, nil
	}
	return repo.DiffText(ctx, fc.Path, status, o.rev, fc.Encoding)
}

func printResult(res *report.Result, stdout, stderr io.Writer) int {
	if res.OK() {
		fmt.Fprintf(stdout, "%s\n", res.Message)
		if res.Kind == report.KindWarning && res.Output != "" {
			fmt.Fprintf(stderr, "%s\n", res.Output)
		}
		return 0
	}

	fmt.Fprintf(stderr, "%s\n", res.Message)
	if res.Output != "" {
		fmt.Fprintf(stderr, "%s\n", res.Output)
	}
	if res.Patch != "" {
		fmt.Fprintf(stderr, "\nPatch:\n%s", res.Patch)
	}
	return 1
}
