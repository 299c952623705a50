package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const DefaultStatusDir = "/run/frr/evpn-mh"
const DefaultNftConfPath = "/run/nftables_evpn_sph.conf"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "evpn-dfd",
	Short:         "EVPN multihoming DF status hook and watcher",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("verbose") {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	},
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Process one dataplane-result event from stdin",
	Long: `Reads one event context as JSON from stdin, publishes the DF status of
its bridge port, and writes the canonical empty result to stdout. Always
exits 0: a misbehaving hook must not destabilize the calling daemon.`,
	Run: func(cmd *cobra.Command, args []string) {
		runHook()
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reconcile DF status with the nftables split-horizon ruleset",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the published DF status per interface",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/evpn-dfd/evpn-dfd.yaml)")
	rootCmd.PersistentFlags().String("status-dir", DefaultStatusDir, "directory holding per-interface status files")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	viper.BindPFlag("status-dir", rootCmd.PersistentFlags().Lookup("status-dir"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	hookCmd.Flags().String("sink", "file", "status sink (file or exec)")
	hookCmd.Flags().String("helper", "", "helper to spawn for the exec sink")
	viper.BindPFlag("sink", hookCmd.Flags().Lookup("sink"))
	viper.BindPFlag("helper", hookCmd.Flags().Lookup("helper"))

	watchCmd.Flags().Duration("refresh-interval", 30*time.Second, "interval between forced ruleset refreshes")
	watchCmd.Flags().Duration("poll-interval", 500*time.Millisecond, "interval between reconcile passes")
	watchCmd.Flags().Duration("settle-delay", 500*time.Millisecond, "delay used to detect in-flight status writes")
	watchCmd.Flags().Duration("ready-timeout", 10*time.Second, "how long to wait for frr and nftables on startup")
	watchCmd.Flags().String("nft-conf", DefaultNftConfPath, "path the rendered ruleset is written to")
	watchCmd.Flags().Bool("gratuitous-arp", false, "send gratuitous arp when an interface becomes df")
	viper.BindPFlag("refresh-interval", watchCmd.Flags().Lookup("refresh-interval"))
	viper.BindPFlag("poll-interval", watchCmd.Flags().Lookup("poll-interval"))
	viper.BindPFlag("settle-delay", watchCmd.Flags().Lookup("settle-delay"))
	viper.BindPFlag("ready-timeout", watchCmd.Flags().Lookup("ready-timeout"))
	viper.BindPFlag("nft-conf", watchCmd.Flags().Lookup("nft-conf"))
	viper.BindPFlag("gratuitous-arp", watchCmd.Flags().Lookup("gratuitous-arp"))

	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("/etc/evpn-dfd")
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("evpn-dfd")
	}

	viper.SetEnvPrefix("EVPN_DFD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("file", viper.ConfigFileUsed()).Msg("using config file")
	}
}

func newSink() (StatusSink, error) {
	switch viper.GetString("sink") {
	case "file":
		return FileSink{Dir: viper.GetString("status-dir")}, nil
	case "exec":
		helper := viper.GetString("helper")
		if helper == "" {
			return nil, errors.New("exec sink requires a helper path")
		}
		return NewExecSink(helper), nil
	}
	return nil, errors.New("unknown sink " + viper.GetString("sink"))
}

func runHook() {
	// The daemon contract requires a well-formed empty reply on every
	// invocation, so nothing below may skip it or exit nonzero.
	defer fmt.Println("{}")

	sink, err := newSink()
	if err != nil {
		log.Error().Err(err).Msg("hook: invalid sink configuration")
		return
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Error().Err(err).Msg("hook: failed to read event context")
		return
	}
	event, err := ParseDataplaneEvent(data)
	if err != nil {
		log.Error().Err(err).Msg("hook: failed to parse event context")
		return
	}
	NewHook(sink, log.Logger).HandleDataplaneResult(event)
}

func runWatch() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	config := WatcherConfig{
		StatusDir:       viper.GetString("status-dir"),
		RefreshInterval: viper.GetDuration("refresh-interval"),
		PollInterval:    viper.GetDuration("poll-interval"),
		SettleDelay:     viper.GetDuration("settle-delay"),
		ReadyTimeout:    viper.GetDuration("ready-timeout"),
		GratuitousArp:   viper.GetBool("gratuitous-arp"),
	}
	watcher := NewWatcher(config, NewFRRClient(), NewNftClient(viper.GetString("nft-conf")), NewSystemNetwork(), log.Logger)
	return watcher.Run(ctx)
}

func runStatus() error {
	status, err := LoadStatusDir(viper.GetString("status-dir"), 0)
	if err != nil {
		return err
	}
	interfaces := make([]string, 0, len(status))
	for name := range status {
		interfaces = append(interfaces, name)
	}
	sort.Strings(interfaces)
	for _, name := range interfaces {
		fmt.Printf("%s %s\n", name, status[name])
	}
	return nil
}

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}
