package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/tendant/nailbiter/internal/field"
	"github.com/tendant/nailbiter/internal/img"
	"github.com/tendant/nailbiter/internal/storage"
)

const usage = `usage:
  nailbiter save <field> <key> <file>
  nailbiter delete <field> <key>
  nailbiter urls <field> <key>
  nailbiter regenerate [-dry-run] [-only-missing] [-limit N] <field> <key>...`

var errUsage = errors.New(usage)

type app struct {
	fields map[string]*field.Field
	store  storage.ReadWriter
	out    io.Writer
	logger *slog.Logger
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "save":
		return a.save(ctx, args[1:])
	case "delete":
		return a.delete(ctx, args[1:])
	case "urls":
		return a.urls(args[1:])
	case "regenerate":
		return a.regenerate(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q\n%w", args[0], errUsage)
	}
}

func (a *app) field(name string) (*field.Field, error) {
	f, ok := a.fields[name]
	if !ok {
		names := make([]string, 0, len(a.fields))
		for n := range a.fields {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown field %q (configured: %s)", name, strings.Join(names, ", "))
	}
	return f, nil
}

func (a *app) save(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	f, err := a.field(args[0])
	if err != nil {
		return err
	}
	content, err := os.ReadFile(args[2])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[2], err)
	}

	file, report, err := f.Save(ctx, args[1], content)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "saved %s %s\n", file.Name, file.URL)
	a.printReport(report)
	return nil
}

func (a *app) printReport(report *img.SaveReport) {
	for _, res := range report.Results {
		if res.OK() {
			fmt.Fprintf(a.out, "  %-12s %dx%d %s\n", res.Spec.Name, res.Width, res.Height, res.Key)
			continue
		}
		fmt.Fprintf(a.out, "  %-12s FAILED (%s): %v\n", res.Spec.Name, res.FailureType, res.Err)
	}
}

func (a *app) delete(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	f, err := a.field(args[0])
	if err != nil {
		return err
	}
	file, err := f.Load(args[1])
	if err != nil {
		return err
	}

	report, err := f.Delete(ctx, file)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %s\n", file.Name)
	for _, key := range report.Deleted {
		fmt.Fprintf(a.out, "  deleted %s\n", key)
	}
	for _, key := range report.Missing {
		fmt.Fprintf(a.out, "  missing %s\n", key)
	}
	for key, err := range report.Failed {
		fmt.Fprintf(a.out, "  failed  %s: %v\n", key, err)
	}
	return nil
}

func (a *app) urls(args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	f, err := a.field(args[0])
	if err != nil {
		return err
	}
	file, err := f.Load(args[1])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%-12s %-9s %s\n", "source", "", file.URL)
	for _, t := range file.Thumbnails() {
		fmt.Fprintf(a.out, "%-12s %-9s %s\n", t.Name, fmt.Sprintf("%dx%d", t.Width, t.Height), t.URL)
	}
	return nil
}

func (a *app) regenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("regenerate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dryRun := fs.Bool("dry-run", false, "list the sources without generating")
	onlyMissing := fs.Bool("only-missing", false, "skip sources whose thumbnails all exist")
	limit := fs.Int("limit", 0, "stop after N sources (0 means no limit)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w\n%w", err, errUsage)
	}
	if fs.NArg() < 2 {
		return errUsage
	}

	f, err := a.field(fs.Arg(0))
	if err != nil {
		return err
	}

	var errs []error
	var processed, skipped int
	for _, key := range fs.Args()[1:] {
		if *limit > 0 && processed >= *limit {
			break
		}
		if *onlyMissing && a.complete(ctx, f, key) {
			skipped++
			continue
		}
		processed++
		if *dryRun {
			fmt.Fprintf(a.out, "would regenerate %s\n", key)
			continue
		}

		report, err := f.Regenerate(ctx, a.store, key)
		if err != nil {
			a.logger.Error("regenerate failed", "key", key, "err", err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(a.out, "regenerated %s\n", key)
		a.printReport(report)
	}

	a.logger.Info("regenerate finished",
		"field", f.Name(),
		"processed", processed,
		"skipped", skipped,
		"failed", len(errs),
		"dry_run", *dryRun,
	)
	return errors.Join(errs...)
}

// complete reports whether every derived key of key is already stored.
func (a *app) complete(ctx context.Context, f *field.Field, key string) bool {
	for _, spec := range f.Specs() {
		if _, err := a.store.Read(ctx, img.ThumbnailName(key, spec.Name, spec.Size)); err != nil {
			return false
		}
	}
	return true
}
