// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mdhender/texdigest"
	"github.com/mdhender/texdigest/model"
	"github.com/mdhender/texdigest/pipelines/stages"
	"github.com/mdhender/texdigest/sources"
	store "github.com/mdhender/texdigest/stores/sqlite"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func main() {
	addFlags := func(cmd *cobra.Command) error {
		cmd.PersistentFlags().Bool("debug", false, "log debugging information")
		cmd.PersistentFlags().Bool("log-with-default-flags", false, "log with default flags")
		cmd.PersistentFlags().Bool("log-with-shortfile", true, "log with short file name")
		cmd.PersistentFlags().Bool("log-with-timestamp", false, "log with timestamp")
		cmd.PersistentFlags().Bool("quiet", false, "log less information")
		cmd.PersistentFlags().Bool("show-version", false, "show version")
		cmd.PersistentFlags().Bool("verbose", false, "log more information")
		return nil
	}
	var cmdRoot = &cobra.Command{
		Use:   "texdigest",
		Short: "TeX digester command line utility",
		Long:  `Expand and digest TeX sources into document trees`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logWithDefaultFlags, _ := cmd.Flags().GetBool("log-with-default-flags")
			logWithShortFileName, _ := cmd.Flags().GetBool("log-with-shortfile")
			logWithTimestamp, _ := cmd.Flags().GetBool("log-with-timestamp")
			logFlags := 0
			if logWithShortFileName {
				logFlags |= log.Lshortfile
			}
			if logWithTimestamp {
				logFlags |= log.Ltime
			}
			if logWithDefaultFlags || logFlags == 0 {
				logFlags = log.LstdFlags
			}
			log.SetFlags(logFlags)

			if showVersion, _ := cmd.Flags().GetBool("show-version"); showVersion {
				fmt.Printf("texdigest: version %q\n", texdigest.Version().Core())
			}

			return nil
		},
	}
	cmdRoot.AddCommand(cmdDigest())
	cmdRoot.AddCommand(cmdPipeline())
	cmdRoot.AddCommand(cmdInitDB())
	cmdRoot.AddCommand(cmdCompactDB())
	cmdRoot.AddCommand(cmdVersion())
	if err := addFlags(cmdRoot); err != nil {
		log.Fatal(err)
	}

	if err := cmdRoot.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger returns the logger handed to digest sessions. The level
// follows the --debug, --verbose and --quiet flags.
func newLogger(cmd *cobra.Command) *slog.Logger {
	quiet, _ := cmd.Flags().GetBool("quiet")
	verbose, _ := cmd.Flags().GetBool("verbose")
	debug, _ := cmd.Flags().GetBool("debug")
	level := slog.LevelWarn
	switch {
	case debug:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// limits collects the limit flags shared by digest and pipeline.
// Zero keeps the session default.
type limits struct {
	depth, expansions, pending, inputs, groups int
}

func (l *limits) addFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&l.depth, "max-depth", 0, "maximum nesting of expansions")
	cmd.Flags().IntVar(&l.expansions, "max-expansions", 0, "maximum expansions without output")
	cmd.Flags().IntVar(&l.pending, "max-pending", 0, "maximum tokens waiting in front of the input")
	cmd.Flags().IntVar(&l.inputs, "max-input-depth", 0, "maximum nesting of \\input")
	cmd.Flags().IntVar(&l.groups, "max-group-depth", 0, "maximum nesting of groups and of conditionals")
}

func (l *limits) options() []texdigest.Option {
	var options []texdigest.Option
	if l.depth != 0 {
		options = append(options, texdigest.WithMaxDepth(l.depth))
	}
	if l.expansions != 0 {
		options = append(options, texdigest.WithMaxExpansions(l.expansions))
	}
	if l.pending != 0 {
		options = append(options, texdigest.WithMaxPending(l.pending))
	}
	if l.inputs != 0 {
		options = append(options, texdigest.WithMaxInputDepth(l.inputs))
	}
	if l.groups != 0 {
		options = append(options, texdigest.WithMaxGroupDepth(l.groups))
	}
	return options
}

func cmdDigest() *cobra.Command {
	var jobName string
	var outputFile string
	var searchPath []string
	showOutline := false
	showTiming := false
	var lim limits
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVar(&jobName, "job-name", jobName, "text for \\jobname (default: file name)")
		cmd.Flags().StringVarP(&outputFile, "output", "o", outputFile, "save tree as JSON to file")
		cmd.Flags().BoolVar(&showOutline, "outline", showOutline, "print the tree as an outline")
		cmd.Flags().StringSliceVarP(&searchPath, "search-path", "I", searchPath, "directories searched by \\input")
		cmd.Flags().BoolVar(&showTiming, "show-timing", showTiming, "show timing for the digest")
		lim.addFlags(cmd)
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "digest <file.tex>",
		Short:        "digest a TeX source file",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1), // require path to source file
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			logger := newLogger(cmd)
			path := args[0]

			fs := afero.NewOsFs()
			data, err := afero.ReadFile(fs, path)
			if err != nil {
				return err
			}
			if jobName == "" {
				base := filepath.Base(path)
				jobName = base[:len(base)-len(filepath.Ext(base))]
			}

			diags := texdigest.NewDiagnosticList(nil)
			options := append([]texdigest.Option{
				texdigest.WithLogger(logger),
				texdigest.WithDiagnosticSink(diags),
				texdigest.WithSourceProvider(sources.New(fs, filepath.Dir(path), searchPath...)),
				texdigest.WithJobName(jobName),
			}, lim.options()...)

			started := time.Now()
			session, err := texdigest.NewSession(ctx, path, data, options...)
			if err != nil {
				return err
			}
			doc, digestErr := session.Parse()
			if showTiming {
				log.Printf("%s: digest completed in %v\n", path, time.Since(started))
			}

			for _, diag := range diags.AtLeast(slog.LevelInfo) {
				var src []byte
				if diag.Span.Source == path {
					src = data
				}
				texdigest.PrintDiagnostic(os.Stderr, diag, src)
			}

			if showOutline {
				fmt.Println(doc.Outline(doc.Root()))
			}
			if tree, err := doc.MarshalJSON(); err != nil {
				return err
			} else if outputFile == "" {
				if !showOutline {
					fmt.Println(string(tree))
				}
			} else if err = afero.WriteFile(fs, outputFile, tree, 0o644); err != nil {
				return err
			} else {
				log.Printf("%s: wrote %d bytes\n", outputFile, len(tree))
			}

			if digestErr != nil {
				return fmt.Errorf("%s: %s: %w", path, texdigest.ErrorCode(digestErr), digestErr)
			}
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdPipeline() *cobra.Command {
	var dbPath string
	var dataDir string
	var project string
	var workerID string
	retryFailed := false
	showDBStats := false
	showTree := false
	showTiming := false
	var lim limits
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVar(&dbPath, "db", dbPath, "SQLite database file path (empty = in-memory)")
		cmd.Flags().StringVar(&dataDir, "data", dataDir, "directory for ingested sources (empty = temporary)")
		cmd.Flags().StringVar(&project, "project", project, "project the files belong to")
		cmd.Flags().StringVar(&workerID, "worker-id", workerID, "identifier of this worker (default: host:pid)")
		cmd.Flags().BoolVar(&retryFailed, "retry-failed", retryFailed, "requeue failed digests before draining")
		cmd.Flags().BoolVar(&showDBStats, "show-db-stats", showDBStats, "dump row counts from each table")
		cmd.Flags().BoolVar(&showTree, "show-tree", showTree, "show the stored tree of each source")
		cmd.Flags().BoolVar(&showTiming, "show-timing", showTiming, "show timing for each stage")
		lim.addFlags(cmd)
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "pipeline [<file.tex>...]",
		Short:        "Ingest and digest sources through the store",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			logger := newLogger(cmd)
			fs := afero.NewOsFs()

			if dataDir == "" {
				tmp, err := afero.TempDir(fs, "", "texdigest-")
				if err != nil {
					return err
				}
				defer fs.RemoveAll(tmp)
				dataDir = tmp
			}

			db, err := store.NewSQLiteStoreWithConfig(store.StoreConfig{Path: dbPath, InitSchema: dbPath == ""})
			if err != nil {
				return fmt.Errorf("create store: %w", err)
			}
			defer db.Close()

			startedPipeline, startedStage := time.Now(), time.Now()
			var requests []stages.IngestRequest
			for _, path := range args {
				data, err := afero.ReadFile(fs, path)
				if err != nil {
					return err
				}
				requests = append(requests, stages.IngestRequest{Project: project, Filename: filepath.Base(path), Data: data})
			}
			ingest := stages.NewIngestService(db, dataDir)
			ingest.SetFS(fs)
			results, err := ingest.IngestProject(ctx, project, requests)
			if err != nil {
				return err
			}
			for i, result := range results {
				if result.Duplicate {
					log.Printf("%s: already ingested as source %d\n", args[i], result.SourceID)
				}
			}
			if showTiming {
				log.Printf("pipeline: ingest completed in %v\n", time.Since(startedStage))
			}

			if retryFailed {
				n, err := db.ResetFailedWork(ctx, model.WorkStageDigest)
				if err != nil {
					return err
				}
				log.Printf("pipeline: requeued %d failed jobs\n", n)
			}

			startedStage = time.Now()
			worker := stages.NewWorkerService(db, dataDir, workerID)
			worker.SetFS(fs)
			worker.SetLogger(logger)
			worker.SetDigestOptions(lim.options()...)
			processed, failed, err := worker.Drain(ctx, model.WorkStageDigest)
			if err != nil {
				return err
			}
			log.Printf("pipeline: %d jobs processed, %d failed\n", processed, failed)
			if showTiming {
				log.Printf("pipeline: digest completed in %v\n", time.Since(startedStage))
			}

			if failed != 0 {
				jobs, err := db.GetFailedWork(ctx, model.WorkStageDigest)
				if err != nil {
					return err
				}
				for _, job := range jobs {
					var code, msg string
					if job.ErrorCode != nil {
						code = *job.ErrorCode
					}
					if job.ErrorMessage != nil {
						msg = *job.ErrorMessage
					}
					log.Printf("pipeline: source %d: %s: %s\n", job.SourceID, code, msg)
				}
			}

			for i, result := range results {
				d, err := db.GetDigestBySource(ctx, result.SourceID)
				if err != nil {
					return err
				} else if d == nil {
					continue
				}
				diags, err := db.DiagnosticsByDigest(ctx, d.ID)
				if err != nil {
					return err
				}
				for _, diag := range diags {
					log.Printf("%s:%d:%d: %s: %s: %s\n", args[i], diag.Line, diag.Column, diag.Severity, diag.Code, diag.Message)
				}
				if showTree {
					log.Printf("%s: %s\n", args[i], string(d.Tree))
				}
			}

			if showDBStats {
				stats, err := db.Stats(ctx)
				if err != nil {
					return fmt.Errorf("get table stats: %w", err)
				}
				log.Println("database stats:")
				log.Printf("  %-20s %d rows\n", "sources", stats.Sources)
				log.Printf("  %-20s %d rows\n", "work", stats.Work)
				log.Printf("  %-20s %d rows\n", "digests", stats.Digests)
				log.Printf("  %-20s %d rows\n", "diagnostics", stats.Diagnostics)

				summary, err := db.GetWorkSummary(ctx)
				if err != nil {
					return err
				}
				for stage, counts := range summary {
					for status, n := range counts {
						log.Printf("  %-9s %-10s %d jobs\n", stage, status, n)
					}
				}
			}

			if showTiming {
				log.Printf("pipeline: completed in %v\n", time.Since(startedPipeline))
			}
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdInitDB() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "init-db <path>",
		Short:        "create a new database file",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.InitDatabase(args[0]); err != nil {
				return err
			}
			log.Printf("%s: created database\n", args[0])
			return nil
		},
	}
	return cmd
}

func cmdCompactDB() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "compact-db <path>",
		Short:        "compact an existing database file",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.CompactDatabase(args[0]); err != nil {
				return err
			}
			log.Printf("%s: compacted database\n", args[0])
			return nil
		},
	}
	return cmd
}

func cmdVersion() *cobra.Command {
	showBuildInfo := false
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().BoolVar(&showBuildInfo, "build-info", showBuildInfo, "show build information")
		return nil
	}
	var cmd = &cobra.Command{
		Use:   "version",
		Short: "display the application's version number",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showBuildInfo {
				fmt.Println(texdigest.Version().String())
				return nil
			}
			fmt.Println(texdigest.Version().Core())
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}
