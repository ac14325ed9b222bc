package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/spf13/cobra"

	"github.com/groland11/nagios-check-security-updates/internal/cache"
	"github.com/groland11/nagios-check-security-updates/internal/config"
	"github.com/groland11/nagios-check-security-updates/internal/executor"
	"github.com/groland11/nagios-check-security-updates/internal/logging"
	"github.com/groland11/nagios-check-security-updates/internal/updates"
)

var (
	version    = "0.1.0"
	cfgFile    string
	cacheFile  string
	omitKernel bool
	verbose    bool
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "check-security-updates",
	Short: "Nagios check for pending OS security updates",
	Long: `check-security-updates inventories pending security updates via the
system package manager, tracks how long each advisory has been outstanding
and reports a Nagios-style verdict with perfdata.`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runCheck())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("check-security-updates v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/check-security-updates/check-security-updates.yaml)")
	rootCmd.Flags().StringVarP(&cacheFile, "cache", "c", "", "local cache file for patch dates (default: /tmp/check-security-updates.cache)")
	rootCmd.Flags().BoolVarP(&omitKernel, "kernel", "k", false, "omit kernel patches (if kernel live patches are enabled)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(updates.VerdictUnknown.ExitCode())
	}
}

func runCheck() int {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return updates.VerdictUnknown.ExitCode()
	}

	if cacheFile != "" {
		cfg.CacheFile = cacheFile
	}
	if omitKernel {
		cfg.OmitKernel = true
	}

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	logging.Init(cfg.LogFormat, level, os.Stdout, os.Stderr)
	log := logging.L("main")

	for _, verr := range cfg.Validate() {
		log.Warn("config validation", logging.KeyError, verr)
	}

	if info, herr := host.Info(); herr == nil {
		log.Debug("probing host",
			"hostname", info.Hostname,
			"platform", fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion),
			"kernel", info.KernelVersion)
	}

	runner := executor.New(time.Duration(cfg.CommandTimeoutSeconds)*time.Second, logging.L("executor"))
	source := updates.NewYumSource(runner, cfg.ListCommand, cfg.InfoCommand)
	store := cache.New(cfg.CacheFile, logging.L("cache"))
	checker := updates.NewChecker(source, store, updates.Options{
		OmitKernel: cfg.OmitKernel,
		Verbose:    verbose,
		Logger:     logging.L("updates"),
	})

	if err := checker.Run(context.Background()); err != nil {
		verdict := updates.VerdictForError(err)
		log.Error("check aborted", "verdict", verdict.String(), logging.KeyError, err)
		return verdict.ExitCode()
	}

	result := checker.Report()
	fmt.Println(result.Message)

	// Drop stale entries once the report is out; failures here never change
	// the verdict.
	if err := store.Compact(); err != nil {
		log.Error("cache compaction failed", logging.KeyError, err)
	}

	return result.Verdict.ExitCode()
}
