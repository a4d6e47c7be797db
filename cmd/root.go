package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Mike-Morrow/Lithium-Analysis/config"
)

var cfgFile string
var Verbose bool
var Debug bool

// cfg is loaded before any subcommand runs.
var cfg *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lithium",
	Short: "Lithium-in-groundwater raster, county and database pipeline",
	Long: `Extracts lithium class rasters to a table of grid cells, assigns each
cell to a US county, summarises the cells per county and loads flat
files into a database:

	./lithium extract     rasters -> lithium_categories.csv
	./lithium join        cells + county boundaries -> lithium_categories_with_counties.csv
	./lithium aggregate   enriched cells -> lithium_aggregated_by_county.csv
	./lithium load        *.csv, *.tsv, *.xls, *.xlsx -> data.duckdb
	./lithium run         extract, join and aggregate in order`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		return config.InitLogger(cfg.Log, cfg.Verbose, cfg.Debug)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Debug(eris.ToString(err, true))
		stop()
		os.Exit(1)
	}
}

// bindFlag binds a flag to a config key, exiting if the flag is missing.
func bindFlag(flags *pflag.FlagSet, key, name string) {
	if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
		logrus.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./lithium.yaml)")
	bindFlag(rootCmd.PersistentFlags(), "config", "config")
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "v", false, "Verbose output")
	bindFlag(rootCmd.PersistentFlags(), "verbose", "verbose")
	rootCmd.PersistentFlags().BoolVarP(&Debug, "debug", "d", false, "Debug output")
	bindFlag(rootCmd.PersistentFlags(), "debug", "debug")
	rootCmd.PersistentFlags().String("data-dir", ".", "Directory that relative input and output paths resolve against")
	bindFlag(rootCmd.PersistentFlags(), "data_dir", "data-dir")
}
