package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/regrid/internal/gdal"
	"github.com/kiesman99/regrid/internal/pipeline"
	"github.com/kiesman99/regrid/pkg/raster"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "regrid",
	Short: "Resample geo-referenced raster imagery to a target resolution",
	Long: `regrid resamples multi-subdataset, multi-band raster imagery to a target
ground-sample resolution, keeping the output geotransform and grid
geometrically consistent with the source.

Every subdataset of the source raster is resampled independently and
written as its own tiled GeoTIFF with unsigned 16-bit samples (the
conversion from wider or signed source pixel types is lossy).

Two resamplers are available: the policy-aware resampler honors the
requested resampling method, while the fixed-nearest resampler always
performs a nearest-neighbor zoom and warns when another method was
requested.

Examples:
  # Resample a Sentinel-2 product to 10m with defaults
  regrid -s S2A_MSIL1C.xml -o ./out -t 10

  # Bilinear resampling with the policy-aware resampler
  regrid -s scene.xml -o ./out -t 20 --resampling-method bilinear --resampler policy-aware

  # Custom output naming: scene_0.tiff, scene_1.tiff, ...
  regrid -s scene.xml -o ./out -n scene

  # Start HTTP server
  regrid serve --port 8080`,
	RunE: runResample,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.regrid.yaml)")

	rootCmd.Flags().StringP("source-path", "s", "", "path of source file to resample (required)")
	rootCmd.Flags().StringP("output-path", "o", "", "path of the intended output directory (required)")
	rootCmd.Flags().StringP("naming-scheme", "n", "output", "the 'base' of the output file names (e.g. 'foo' in 'foo_1.tiff')")
	rootCmd.Flags().Float64P("target-resolution", "t", 10, "the resolution to resample to")
	rootCmd.Flags().String("resampling-method", "nearest", "resampling method (nearest|bilinear|cubic|cubicspline)")
	rootCmd.Flags().String("resampler", "fixed-nearest", "resampler implementation (policy-aware|fixed-nearest)")
	rootCmd.Flags().Int("workers", 0, "subdatasets resampled in parallel (0 = one per CPU)")

	// Bind flags to viper for root command
	viper.BindPFlag("source-path", rootCmd.Flags().Lookup("source-path"))
	viper.BindPFlag("output-path", rootCmd.Flags().Lookup("output-path"))
	viper.BindPFlag("naming-scheme", rootCmd.Flags().Lookup("naming-scheme"))
	viper.BindPFlag("target-resolution", rootCmd.Flags().Lookup("target-resolution"))
	viper.BindPFlag("resampling-method", rootCmd.Flags().Lookup("resampling-method"))
	viper.BindPFlag("resampler", rootCmd.Flags().Lookup("resampler"))
	viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".regrid" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".regrid")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func runResample(cmd *cobra.Command, args []string) error {
	sourcePath := viper.GetString("source-path")
	outputPath := viper.GetString("output-path")

	if sourcePath == "" {
		return fmt.Errorf("source path is required (use --source-path)")
	}
	if outputPath == "" {
		return fmt.Errorf("output path is required (use --output-path)")
	}

	// Bail out before any raster work if the source does not exist.
	if _, err := os.Stat(sourcePath); err != nil {
		return fmt.Errorf("file %s not found", sourcePath)
	}

	policy, err := raster.ParsePolicy(viper.GetString("resampling-method"))
	if err != nil {
		return err
	}
	strategy, err := raster.ParseStrategy(viper.GetString("resampler"))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}

	log.Info("--- Starting resample... ---")

	pl := pipeline.New(gdal.Source{}, gdal.Sink{})
	report, err := pl.Run(cmd.Context(), pipeline.Options{
		SourcePath:       sourcePath,
		OutputPath:       outputPath,
		NamingScheme:     viper.GetString("naming-scheme"),
		TargetResolution: viper.GetFloat64("target-resolution"),
		Policy:           policy,
		Strategy:         strategy,
		Workers:          viper.GetInt("workers"),
	})
	if err != nil {
		return err
	}

	log.Info("--- Done. ---")

	if len(report.Failures) > 0 {
		for _, f := range report.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed: %v\n", f)
		}
		return fmt.Errorf("%d of %d subdatasets failed", len(report.Failures), len(report.Failures)+len(report.Written))
	}

	return nil
}
