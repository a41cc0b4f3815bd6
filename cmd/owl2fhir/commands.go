package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kalambet/owl2fhir/internal/config"
	"github.com/kalambet/owl2fhir/internal/convert"
	"github.com/kalambet/owl2fhir/internal/pipeline"
	"github.com/kalambet/owl2fhir/internal/registry"
)

// --- convert ---

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert one ontology, or the whole registry with --favorites",
	Long: `Convert an OWL/RDF/TTL ontology into a FHIR CodeSystem JSON resource.

Examples:
  owl2fhir convert -i https://example.org/mondo.owl -n CodeSystem-mondo.json -s mondo
  owl2fhir convert -i ./input/hp-full.owl -s HPO -t semsql -c -r
  owl2fhir convert --favorites`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, closeLog := config.SetupLogger(cfg.Log)
		defer closeLog()
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runner := pipeline.NewRunner(cfg)

		if favorites, _ := cmd.Flags().GetBool("favorites"); favorites {
			registryPath, _ := cmd.Flags().GetString("registry")
			reg, err := registry.Load(registryPath)
			if err != nil {
				return err
			}
			return runBatch(ctx, runner, reg)
		}

		job, err := jobFromFlags(cmd, cfg)
		if err != nil {
			return err
		}
		out, err := runner.Run(ctx, job)
		if err != nil {
			return err
		}
		printSuccess("Wrote %s", out)
		return nil
	},
}

func init() {
	f := convertCmd.Flags()
	f.StringP("input", "i", "", "URL or path of the ontology to convert")
	f.StringP("out-dir", "o", "", "directory for the converted resource (default from config)")
	f.StringP("out-filename", "n", "", "output filename (default CodeSystem-<id>.json)")
	f.StringP("code-system-id", "s", "", "CodeSystem.id for the produced resource")
	f.StringP("code-system-url", "S", "", "canonical CodeSystem.url for the produced resource")
	f.BoolP("include-all-predicates", "p", false, "emit every predicate as a concept property, not just parents")
	f.StringSliceP("native-uri-stems", "u", nil, "URI prefixes of concepts native to this code system")
	f.StringP("intermediary-type", "t", string(convert.KindObograph), "intermediary representation: obographs or semsql")
	f.BoolP("use-cached-intermediaries", "c", false, "reuse cached intermediaries when present")
	f.BoolP("retain-intermediaries", "r", false, "keep intermediary files after conversion")
	f.BoolP("intermediaries-only", "I", false, "stop after building the intermediary")
	f.BoolP("favorites", "f", false, "convert every ontology in the registry; other flags are ignored")
	f.String("registry", "", "path to a registry YAML file (default: built-in registry)")
}

func jobFromFlags(cmd *cobra.Command, cfg config.Config) (pipeline.Job, error) {
	input, _ := cmd.Flags().GetString("input")
	if input == "" {
		return pipeline.Job{}, fmt.Errorf("--input is required (or use --favorites)")
	}

	kindStr, _ := cmd.Flags().GetString("intermediary-type")
	kind, err := convert.ParseKind(kindStr)
	if err != nil {
		return pipeline.Job{}, err
	}

	outDir, _ := cmd.Flags().GetString("out-dir")
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	outFilename, _ := cmd.Flags().GetString("out-filename")
	csID, _ := cmd.Flags().GetString("code-system-id")
	csURL, _ := cmd.Flags().GetString("code-system-url")
	allPreds, _ := cmd.Flags().GetBool("include-all-predicates")
	stems, _ := cmd.Flags().GetStringSlice("native-uri-stems")
	useCache, _ := cmd.Flags().GetBool("use-cached-intermediaries")
	retain, _ := cmd.Flags().GetBool("retain-intermediaries")
	intermediariesOnly, _ := cmd.Flags().GetBool("intermediaries-only")

	return pipeline.Job{
		Source:                    input,
		OutDir:                    outDir,
		OutFilename:               outFilename,
		CodeSystemID:              csID,
		CodeSystemURL:             csURL,
		IntermediaryKind:          kind,
		IncludeAllPredicates:      allPreds,
		UseCachedIntermediaries:   useCache,
		RetainIntermediaries:      retain,
		ConvertIntermediariesOnly: intermediariesOnly,
		NativeURIStems:            stems,
	}, nil
}

func runBatch(ctx context.Context, runner *pipeline.Runner, reg *registry.Registry) error {
	report := runner.RunBatch(ctx, reg)
	printBatchSummary(report)
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d of %d conversions failed", len(report.Failures), len(report.Results))
	}
	return nil
}

func printBatchSummary(report pipeline.BatchReport) {
	printStep("Summary (run %s)", report.RunID)
	for _, res := range report.Results {
		if res.Err != nil {
			printError("%s: %v", res.ID, res.Err)
		} else {
			printSuccess("%s: %s", res.ID, res.Output)
		}
	}
	printStatus("Succeeded", "%v", report.Successes)
	printStatus("Failed", "%v", report.Failures)
}

// --- registry ---

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the configured ontology registry",
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the ontologies a --favorites run would convert",
	RunE: func(cmd *cobra.Command, args []string) error {
		registryPath, _ := cmd.Flags().GetString("registry")
		reg, err := registry.Load(registryPath)
		if err != nil {
			return err
		}
		for _, ont := range reg.Ontologies {
			printStatus(ont.ID, "%s", ont.Source())
		}
		return nil
	},
}

func init() {
	registryListCmd.Flags().String("registry", "", "path to a registry YAML file (default: built-in registry)")
	registryCmd.AddCommand(registryListCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
