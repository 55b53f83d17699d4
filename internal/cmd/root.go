package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pinmap",
	Short: "A tile pyramid generator for pin map overlays",
	Long: `PinMap turns an uploaded map image into a Slippy-Map tile pyramid.

It places the image on the Web-Mercator grid for a given bounding box,
cuts {z}/{x}/{y}.png tiles (or an MBTiles database) for a range of zoom
levels, and answers whether pin positions fall inside a rectangular or
polygonal map boundary.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging(viper.GetString("log-format"), viper.GetBool("verbose"))
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./pinmap.yaml)")
	flags.String("output-dir", "./tiles", "Output directory for generated tiles")
	flags.Bool("verbose", false, "Enable debug logging")
	flags.String("log-format", "text", "Log output format (text, json)")

	for _, name := range []string{"output-dir", "verbose", "log-format"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", name, err))
		}
	}
}

// initConfig loads pinmap.yaml from the working directory (or --config)
// and lets PINMAP_* environment variables override it.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("pinmap")
	}

	viper.SetEnvPrefix("PINMAP")
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err == nil && viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
	if err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", cfgFile, err)
	}
}
