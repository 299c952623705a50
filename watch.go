package main

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const ReadyProbeInterval = 500 * time.Millisecond

type WatcherConfig struct {
	StatusDir       string
	RefreshInterval time.Duration
	PollInterval    time.Duration
	SettleDelay     time.Duration
	ReadyTimeout    time.Duration
	GratuitousArp   bool
}

// Watcher reconciles the DF status published by the hook with the
// split-horizon ruleset loaded into nftables.
type Watcher struct {
	config  WatcherConfig
	frr     ControlPlane
	nft     Firewall
	network Network
	log     zerolog.Logger

	lastStatus  map[string]DFStatus
	lastRefresh time.Time
}

func NewWatcher(config WatcherConfig, frr ControlPlane, nft Firewall, network Network, log zerolog.Logger) *Watcher {
	return &Watcher{
		config:     config,
		frr:        frr,
		nft:        nft,
		network:    network,
		log:        log,
		lastStatus: make(map[string]DFStatus),
	}
}

func (w *Watcher) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(w.config.ReadyTimeout)
	for {
		if w.frr.Ready(ctx) && w.nft.Ready(ctx) {
			w.log.Info().Msg("watcher: frr and nftables ready")
			return nil
		}
		if time.Now().After(deadline) {
			return errors.New("frr and/or nftables not ready")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ReadyProbeInterval):
		}
	}
}

// configuredStatus reports how the currently loaded ruleset classifies an
// interface. The second return value is false when the interface appears in
// neither set.
func (w *Watcher) configuredStatus(ctx context.Context, interfaceName string) (DFStatus, bool) {
	listing, ok := w.nft.ListObject(ctx, "set", "bridge", "evpn_sph", "df_bonds")
	if ok && strings.Contains(listing, interfaceName) {
		return DF, true
	}
	listing, ok = w.nft.ListObject(ctx, "set", "bridge", "evpn_sph", "non_df_bonds")
	if ok && strings.Contains(listing, interfaceName) {
		return NonDF, true
	}
	return DF, false
}

func (w *Watcher) rulesetDiverged(ctx context.Context, es map[string]EsInterface) bool {
	if _, ok := w.nft.ListObject(ctx, "table", "netdev", "evpn_sph"); !ok {
		return true
	}
	if _, ok := w.nft.ListObject(ctx, "table", "bridge", "evpn_sph"); !ok {
		return true
	}
	for name, iface := range es {
		if !iface.Known {
			continue
		}
		configured, ok := w.configuredStatus(ctx, name)
		if !ok || configured != iface.Status {
			return true
		}
	}
	return false
}

// applyFilters re-renders the split-horizon ruleset from the current FRR
// view and loads it.
func (w *Watcher) applyFilters(ctx context.Context, es map[string]EsInterface) error {
	underlay, err := w.frr.UnderlayInterfaces(ctx)
	if err != nil {
		return errors.Wrap(err, "could not get underlay interfaces")
	}
	config := SPHConfig{UnderlayInterfaces: underlay}
	vteps := make(map[string]bool)
	for name, iface := range es {
		config.Interfaces = append(config.Interfaces, name)
		if iface.Known && iface.Status == DF {
			config.DFInterfaces = append(config.DFInterfaces, name)
		} else if iface.Known && iface.Status == NonDF {
			config.NonDFInterfaces = append(config.NonDFInterfaces, name)
		}
		for _, vtep := range iface.Vteps {
			if !vteps[vtep] {
				vteps[vtep] = true
				config.Vteps = append(config.Vteps, vtep)
			}
		}
	}
	sort.Strings(config.Interfaces)
	sort.Strings(config.DFInterfaces)
	sort.Strings(config.NonDFInterfaces)
	sort.Strings(config.Vteps)
	_, config.NetdevTableExists = w.nft.ListObject(ctx, "table", "netdev", "evpn_sph")
	_, config.BridgeTableExists = w.nft.ListObject(ctx, "table", "bridge", "evpn_sph")
	return w.nft.Apply(ctx, config)
}

func (w *Watcher) announceTakeovers(reported map[string]DFStatus) {
	if w.config.GratuitousArp {
		for name, status := range reported {
			if status == DF && w.lastStatus[name] == NonDF {
				w.log.Info().Str("interface", name).Msg("watcher: took over as df")
				err := w.network.SendGratuitousArp(name)
				if err != nil {
					w.log.Error().Err(err).Str("interface", name).Msg("watcher: failed to send gratuitous arp")
				}
			}
		}
	}
	w.lastStatus = reported
}

// cycle runs one reconcile pass. Failures are logged and dropped; the next
// tick is an independent opportunity to succeed.
func (w *Watcher) cycle(ctx context.Context) {
	reported, err := LoadStatusDir(w.config.StatusDir, w.config.SettleDelay)
	if err != nil {
		w.log.Error().Err(err).Msg("watcher: failed to load status directory")
		return
	}
	w.announceTakeovers(reported)

	es, err := w.frr.EsInterfaces(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("watcher: failed to get es interfaces")
		return
	}
	if len(es) == 0 {
		return
	}

	update := time.Since(w.lastRefresh) >= w.config.RefreshInterval
	if !update {
		for name, iface := range es {
			status, ok := reported[name]
			if ok && iface.Known && status != iface.Status {
				update = true
				break
			}
		}
	}
	if !update {
		update = w.rulesetDiverged(ctx, es)
	}
	if !update {
		return
	}
	err = w.applyFilters(ctx, es)
	if err != nil {
		w.log.Error().Err(err).Msg("watcher: failed to apply filters")
		return
	}
	w.lastRefresh = time.Now()
}

func (w *Watcher) Run(ctx context.Context) error {
	err := w.waitReady(ctx)
	if err != nil {
		return err
	}

	es, err := w.frr.EsInterfaces(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("watcher: failed to get es interfaces")
	} else if len(es) > 0 {
		err = w.applyFilters(ctx, es)
		if err != nil {
			w.log.Error().Err(err).Msg("watcher: failed to apply initial filters")
		} else {
			w.lastRefresh = time.Now()
		}
	}

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug().Msg("watcher: context done")
			return nil
		case <-ticker.C:
			w.cycle(ctx)
		}
	}
}
