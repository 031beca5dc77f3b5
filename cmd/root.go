package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	tail "github.com/TFMV/trail/internal/tail"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trail [options] <file>...",
	Short: "Output the last part of files and keep following them",
	Long: `trail prints the last lines of each file and, with --follow, keeps
monitoring them for appended content. It survives log rotation: truncation,
deletion, recreation, and renaming are all detected, using native filesystem
notification with a polling fallback.`,
	Version: version,
	Args:    cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTail(args)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Flags
	rootCmd.Flags().BoolP("follow", "f", false, "Keep following files by descriptor as they grow")
	rootCmd.Flags().BoolP("follow-name", "F", false, "Keep following files by name (implies --retry)")
	rootCmd.Flags().Bool("retry", false, "Keep trying to open a file even when it is inaccessible")
	rootCmd.Flags().IntP("lines", "n", 10, "Number of trailing lines to print")
	rootCmd.Flags().Int("pid", 0, "With --follow, terminate after process PID dies")
	rootCmd.Flags().DurationP("sleep-interval", "s", time.Second, "Wait between iterations when following")
	rootCmd.Flags().Bool("use-polling", false, "Disable native change notification and poll instead")
	rootCmd.Flags().Int("max-unchanged-stats", 5, "Reserved re-stat threshold when polling by name")
	rootCmd.Flags().BoolP("verbose", "v", false, "Always output headers giving file names")
	rootCmd.Flags().BoolP("quiet", "q", false, "Never output headers giving file names")

	// Bind flags to viper
	viper.BindPFlag("follow", rootCmd.Flags().Lookup("follow"))
	viper.BindPFlag("follow-name", rootCmd.Flags().Lookup("follow-name"))
	viper.BindPFlag("retry", rootCmd.Flags().Lookup("retry"))
	viper.BindPFlag("lines", rootCmd.Flags().Lookup("lines"))
	viper.BindPFlag("pid", rootCmd.Flags().Lookup("pid"))
	viper.BindPFlag("sleep-interval", rootCmd.Flags().Lookup("sleep-interval"))
	viper.BindPFlag("use-polling", rootCmd.Flags().Lookup("use-polling"))
	viper.BindPFlag("max-unchanged-stats", rootCmd.Flags().Lookup("max-unchanged-stats"))
	viper.BindPFlag("verbose", rootCmd.Flags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.Flags().Lookup("quiet"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".trail" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".trail")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	viper.ReadInConfig()
}

func runTail(args []string) error {
	if len(args) == 0 {
		args = []string{"-"}
	}

	settings := &tail.Settings{
		Retry:             viper.GetBool("retry"),
		UsePolling:        viper.GetBool("use-polling"),
		PID:               viper.GetInt("pid"),
		SleepInterval:     viper.GetDuration("sleep-interval"),
		MaxUnchangedStats: viper.GetInt("max-unchanged-stats"),
		Lines:             viper.GetInt("lines"),
	}

	switch {
	case viper.GetBool("follow-name"):
		// -F is shorthand for --follow=name --retry.
		settings.Follow = tail.FollowName
		settings.Retry = true
	case viper.GetBool("follow"):
		settings.Follow = tail.FollowDescriptor
	}

	for _, arg := range args {
		settings.Inputs = append(settings.Inputs, tail.NewInput(arg))
	}

	// Headers are printed for multiple files unless silenced; -v forces
	// them even for a single file.
	settings.Verbose = !viper.GetBool("quiet") &&
		(viper.GetBool("verbose") || len(settings.Inputs) > 1)

	if err := tail.Run(settings); err != nil {
		if errors.Is(err, tail.ErrNoFilesRemaining) {
			return fmt.Errorf("no files remaining")
		}
		return err
	}
	return nil
}
