// Command eegbridge inspects EEG result containers and runs the
// container-to-tensor bridge from the command line.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cortexkit/eeg-bridge/bridge"
	"github.com/cortexkit/eeg-bridge/container"
	"github.com/cortexkit/eeg-bridge/dataset"
)

var (
	logger *zap.Logger

	verbose     bool
	kindName    string
	archName    string
	classFilter []string
	groupNames  []string
	configPath  string
)

var rootCmd = &cobra.Command{
	Use:   "eegbridge",
	Short: "EEG result container inspection and tensor extraction",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Show a container's encoding and top-level structure",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Run the full bridge and report the batch tensor and labels",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var convertCmd = &cobra.Command{
	Use:   "convert [in] [out]",
	Short: "Rewrite a container in the other physical encoding",
	Args:  cobra.ExactArgs(2),
	RunE:  runConvert,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	extractCmd.Flags().StringVar(&kindName, "kind", "erp", "analysis kind (erp, time_frequency, spectral, connectivity, intertrial_coherence)")
	extractCmd.Flags().StringVar(&archName, "arch", "eeg_net", "target architecture (eeg_net, eeg_inception, riemannian)")
	extractCmd.Flags().StringSliceVar(&classFilter, "filter", nil, "class filters like PD_target (repeatable)")
	extractCmd.Flags().StringSliceVar(&groupNames, "groups", nil, "per-subject group names in record order")
	extractCmd.Flags().StringVar(&configPath, "config", "", "optional YAML config with filename and group tables")

	rootCmd.AddCommand(infoCmd, extractCmd, convertCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	vars, encoding, err := container.Open(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("encoding: %s\n", encoding)
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		switch v := vars[name].(type) {
		case *container.Array:
			fmt.Printf("  %s: array dims=%v complex=%v\n", name, v.Dims, v.IsComplex())
		case container.Chars:
			fmt.Printf("  %s: chars %q\n", name, string(v))
		case *container.RecordArray:
			fmt.Printf("  %s: record array of %d subjects\n", name, v.Len())
			if v.Len() > 0 {
				fmt.Printf("    fields: %v\n", v.Records[0].Keys())
			}
		case container.RecordAccessor:
			fmt.Printf("  %s: record with fields %v\n", name, v.Keys())
		}
	}
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	kind, err := dataset.ParseAnalysisKind(kindName)
	if err != nil {
		return err
	}
	arch, err := dataset.ParseTargetArchitecture(archName)
	if err != nil {
		return err
	}

	opts := []bridge.Option{bridge.WithLogger(logger)}
	if len(classFilter) > 0 {
		opts = append(opts, bridge.WithClassFilter(classFilter))
	}
	if len(groupNames) > 0 {
		opts = append(opts, bridge.WithGroups(groupNames))
	}
	if configPath != "" {
		cfg, err := bridge.LoadConfig(configPath)
		if err != nil {
			return err
		}
		opts = append(opts, bridge.WithGroupSynonyms(cfg.Groups))
	}

	result, err := bridge.NewLoader(opts...).Load(args[0], kind, arch)
	if err != nil {
		return err
	}

	fmt.Printf("encoding: %s\n", result.Encoding)
	fmt.Printf("batch:    %v\n", result.Tensor.Shape)
	fmt.Printf("classes:  %d (remap %v)\n", result.NumClasses, result.Remap)
	for i := 0; i < result.Labels.Len(); i++ {
		fmt.Printf("  sample %3d: subject=%d condition=%s group=%d name=%s class=%d\n",
			i,
			result.Labels.SubjectIDs[i],
			dataset.ConditionNames[result.Labels.Conditions[i]],
			result.Labels.Groups[i],
			result.Labels.DatasetNames[i],
			result.Classes[i])
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	vars, encoding, err := container.Open(args[0])
	if err != nil {
		return err
	}

	switch encoding {
	case container.EncodingDense:
		err = container.WriteReference(args[1], vars)
	case container.EncodingReference:
		err = container.WriteDense(args[1], vars)
	}
	if err != nil {
		return err
	}
	logger.Info("container converted",
		zap.String("from", args[0]),
		zap.String("to", args[1]),
		zap.Stringer("source_encoding", encoding))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
