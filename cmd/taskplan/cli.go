package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sandeepkv93/taskplan/internal/commands"
	"github.com/sandeepkv93/taskplan/internal/model"
	"github.com/sandeepkv93/taskplan/internal/planner"
	"github.com/sandeepkv93/taskplan/internal/views"
)

// runCommand parses one plan/apply/show/import/export/lock command line and
// runs it against the owner's stored data, writing output to out.
func runCommand(ctx context.Context, a *app, owner, raw string, out io.Writer) error {
	cmd, err := commands.Parse(raw)
	if err != nil {
		return err
	}

	res, err := commands.Execute(cmd, commands.Handlers{
		Plan: func(args commands.PlanArgs) (commands.Result, error) {
			generate := a.svc.Generate
			if args.Local {
				generate = a.svc.GenerateLocal
			}
			report, err := generate(ctx, owner)
			if err != nil {
				return commands.Result{}, err
			}
			if err := writeReport(ctx, a.svc, out, report); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("run %s stored", report.RunID)}, nil
		},
		Apply: func() (commands.Result, error) {
			n, err := a.svc.Apply(ctx, owner)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("applied %d block(s) to the calendar", n)}, nil
		},
		Show: func(args commands.ShowArgs) (commands.Result, error) {
			report, err := a.svc.Latest(ctx, owner)
			if err != nil {
				return commands.Result{}, err
			}
			in, err := a.svc.Export(ctx, owner)
			if err != nil {
				return commands.Result{}, err
			}
			rows := views.BlockRows(report.Plan, in.Tasks, report.Location)
			failures := views.FailureRows(report.Plan, in.Tasks)
			switch args.Subject {
			case commands.ShowFailures:
				fmt.Fprintln(out, orNone(views.RenderFailures(failures)))
			case commands.ShowNotes:
				fmt.Fprintln(out, orNone(views.RenderNotes(report.Plan.Notes)))
			case commands.ShowReport:
				md := views.PlanMarkdown(fmt.Sprintf("Plan for %s", owner), report.Plan.Path, report.Model, rows, failures, report.Plan.Notes)
				fmt.Fprintln(out, views.RenderMarkdown(md))
			default:
				writeRows(out, report, rows)
			}
			return commands.Result{}, nil
		},
		Import: func(args commands.ImportArgs) (commands.Result, error) {
			in, err := model.ReadInputFile(args.Path)
			if err != nil {
				return commands.Result{}, err
			}
			if err := a.svc.Import(ctx, owner, in); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("imported %d task(s) and %d event(s)", len(in.Tasks), len(in.Events))}, nil
		},
		Export: func(args commands.ExportArgs) (commands.Result, error) {
			in, err := a.svc.Export(ctx, owner)
			if err != nil {
				return commands.Result{}, err
			}
			if args.Path == "" {
				return commands.Result{}, model.EncodeInput(out, in)
			}
			if err := model.WriteInputFile(args.Path, in); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("exported to %s", args.Path)}, nil
		},
		Lock: func(args commands.LockArgs) (commands.Result, error) {
			if err := a.svc.SetLock(ctx, owner, args.TaskID, args.Field, args.Locked); err != nil {
				return commands.Result{}, err
			}
			verb := "unlocked"
			if args.Locked {
				verb = "locked"
			}
			return commands.Result{Message: fmt.Sprintf("%s %s on task %s", verb, args.Field, args.TaskID)}, nil
		},
	})
	if err != nil {
		return err
	}
	if res.Message != "" {
		fmt.Fprintln(out, res.Message)
	}
	return nil
}

func writeReport(ctx context.Context, svc *planner.Service, out io.Writer, report planner.Report) error {
	in, err := svc.Export(ctx, report.Owner)
	if err != nil {
		return err
	}
	writeRows(out, report, views.BlockRows(report.Plan, in.Tasks, report.Location))
	if s := views.RenderFailures(views.FailureRows(report.Plan, in.Tasks)); s != "" {
		fmt.Fprintln(out, s)
	}
	if s := views.RenderNotes(report.Plan.Notes); s != "" {
		fmt.Fprintln(out, s)
	}
	return nil
}

func writeRows(out io.Writer, report planner.Report, rows []views.BlockRowData) {
	fmt.Fprintf(out, "path: %s\n", views.PathLabel(report.Plan.Path, report.Model))
	if len(rows) == 0 {
		fmt.Fprintln(out, "(no blocks)")
		return
	}
	for _, r := range rows {
		line := fmt.Sprintf("#%d %s %s-%s %s (%d min)", r.Order, r.Day, r.Start, r.End, r.Title, r.Minutes)
		if len(r.Locks) > 0 {
			line += " locked: " + strings.Join(r.Locks, ",")
		}
		fmt.Fprintln(out, line)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
