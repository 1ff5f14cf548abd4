package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/perthro/internal"
	"github.com/starford/perthro/internal/format"
	"github.com/starford/perthro/internal/investigation"
	"github.com/starford/perthro/internal/logging"
	"github.com/starford/perthro/internal/models"
)

// withOutputFlags appends the --json and --format flags. Flag values hold
// parse state, so every command gets its own instances.
func withOutputFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		&cli.BoolFlag{Name: "json", Usage: "Print the raw JSON result"},
		&cli.StringFlag{Name: "format", Value: "table", Usage: "Table format: table or markdown"},
	)
}

// setup loads config and builds the service for one-shot commands. Logs go
// to stderr so stdout carries only the result.
func setup(cmd *cli.Command) (*investigation.Service, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.App.LogLevel, cfg.App.LogFormat, os.Stderr)
	return internal.NewService(cfg), nil
}

// emit prints v as JSON or as the table produced by table.
func emit(cmd *cli.Command, v any, table func(format.Mode) string) error {
	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	if cmd.Bool("json") {
		return writeJSON(w, v)
	}
	_, err := fmt.Fprintln(w, table(format.ParseMode(cmd.String("format"))))
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func indicatorsCommand() *cli.Command {
	return &cli.Command{
		Name:  "indicators",
		Usage: "List the indicator catalog of the case directory",
		Flags: withOutputFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, err := setup(cmd)
			if err != nil {
				return err
			}
			res := svc.ListIndicators(ctx, "")
			if err := emit(cmd, res, func(m format.Mode) string {
				out := format.Indicators(res.Anomalies, m)
				if len(res.Errors) > 0 {
					out += "\n" + format.SourceErrors(res.Errors, m)
				}
				return out
			}); err != nil {
				return err
			}
			return res.Err()
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search artifacts for indicators",
		ArgsUsage: "[query...]",
		Flags: withOutputFlags(
			&cli.BoolFlag{Name: "catalog", Usage: "Search every indicator of the case catalog"},
			&cli.StringSliceFlag{Name: "artifact", Aliases: []string{"a"}, Usage: "Restrict to artifact base names"},
			&cli.IntFlag{Name: "max-results", Aliases: []string{"n"}, Usage: "Maximum matches per indicator and artifact"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, err := setup(cmd)
			if err != nil {
				return err
			}

			var queries []models.Query
			if cmd.Bool("catalog") {
				list := svc.ListIndicators(ctx, "")
				if !list.Success {
					return list.Err()
				}
				for _, a := range list.Anomalies {
					queries = append(queries, models.Query{ID: a.ID, Query: a.Query})
				}
			}
			for _, arg := range cmd.Args().Slice() {
				if strings.TrimSpace(arg) != "" {
					queries = append(queries, models.Query{Query: arg})
				}
			}
			if len(queries) == 0 {
				return fmt.Errorf("no queries: pass query arguments or --catalog")
			}

			res := svc.Search(ctx, investigation.SearchRequest{
				Anomalies:     queries,
				ArtifactTypes: cmd.StringSlice("artifact"),
				MaxResults:    int(cmd.Int("max-results")),
			})
			if err := emit(cmd, res, func(m format.Mode) string {
				return format.Matches(res.Results, m)
			}); err != nil {
				return err
			}
			return res.Err()
		},
	}
}

func artifactsCommand() *cli.Command {
	return &cli.Command{
		Name:  "artifacts",
		Usage: "List searchable artifact files",
		Flags: withOutputFlags(
			&cli.BoolFlag{Name: "checksums", Usage: "Include the SHA-256 of each file"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			svc, err := setup(cmd)
			if err != nil {
				return err
			}
			res := svc.ListArtifacts(ctx, "", cmd.Bool("checksums"))
			if err := emit(cmd, res, func(m format.Mode) string {
				return format.Artifacts(res.Artifacts, m)
			}); err != nil {
				return err
			}
			return res.Err()
		},
	}
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Classify free text (arguments or stdin) into file, hash and network indicators",
		ArgsUsage: "[text...]",
		Flags:     withOutputFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			svc, err := setup(cmd)
			if err != nil {
				return err
			}
			text := strings.Join(cmd.Args().Slice(), " ")
			if text == "" {
				r := cmd.Root().Reader
				if r == nil {
					r = os.Stdin
				}
				data, err := io.ReadAll(r)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			res := svc.Classify(text)
			return emit(cmd, res, func(m format.Mode) string {
				return format.Classification(res, m)
			})
		},
	}
}
