package main

import (
	"context"
	"encoding/json"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ControlPlane is the view of the routing daemon the watcher needs: which
// Ethernet segments exist, how FRR classifies them, and which interfaces
// carry the underlay.
type ControlPlane interface {
	Ready(ctx context.Context) bool
	EsInterfaces(ctx context.Context) (map[string]EsInterface, error)
	UnderlayInterfaces(ctx context.Context) ([]string, error)
}

// EsInterface is one Ethernet-segment access port as reported by FRR.
// Known is false when FRR reports neither df nor nonDF for the port.
type EsInterface struct {
	Name   string
	Esi    string
	Status DFStatus
	Known  bool
	Vteps  []string
}

type FRRClient struct {
	lock *sync.Mutex
}

func NewFRRClient() *FRRClient {
	return &FRRClient{lock: &sync.Mutex{}}
}

func (frr *FRRClient) vtysh(ctx context.Context, commands []string) ([]byte, error) {
	frr.lock.Lock()
	defer frr.lock.Unlock()

	input := make([]string, 2*len(commands))
	for i, c := range commands {
		input[2*i] = "-c"
		input[2*i+1] = c
	}
	log.Debug().Strs("input", input).Msg("vtysh")
	output, err := exec.CommandContext(ctx, "vtysh", input...).Output()
	if err != nil {
		return output, errors.Wrap(err, "vtysh failed")
	}
	return output, nil
}

func (frr *FRRClient) Ready(ctx context.Context) bool {
	_, err := frr.vtysh(ctx, []string{"show evpn es detail json"})
	return err == nil
}

// EsInterfaces queries FRR for all Ethernet segments and indexes them by
// access port. Entries without an access port are dropped.
func (frr *FRRClient) EsInterfaces(ctx context.Context) (map[string]EsInterface, error) {
	output, err := frr.vtysh(ctx, []string{"show evpn es detail json"})
	if err != nil {
		return nil, err
	}
	return parseEsInterfaces(output)
}

type esEntry struct {
	Esi        string   `json:"esi"`
	AccessPort string   `json:"accessPort"`
	Flags      []string `json:"flags"`
	Vteps      []struct {
		Vtep string `json:"vtep"`
	} `json:"vteps"`
}

func containsFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

func parseEsInterfaces(data []byte) (map[string]EsInterface, error) {
	var entries []esEntry
	err := json.Unmarshal(data, &entries)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse es detail")
	}
	result := make(map[string]EsInterface)
	for _, entry := range entries {
		if entry.AccessPort == "" {
			continue
		}
		iface := EsInterface{Name: entry.AccessPort, Esi: entry.Esi}
		if containsFlag(entry.Flags, "df") {
			iface.Status = DF
			iface.Known = true
		} else if containsFlag(entry.Flags, "nonDF") {
			iface.Status = NonDF
			iface.Known = true
		}
		for _, vtep := range entry.Vteps {
			iface.Vteps = append(iface.Vteps, vtep.Vtep)
		}
		result[iface.Name] = iface
	}
	return result, nil
}

// UnderlayInterfaces resolves the interfaces carrying the established l2vpn
// evpn BGP sessions: one route lookup per peer, collecting the nexthop
// interface names.
func (frr *FRRClient) UnderlayInterfaces(ctx context.Context) ([]string, error) {
	output, err := frr.vtysh(ctx, []string{"show bgp l2vpn evpn summary established json"})
	if err != nil {
		return nil, err
	}
	var summary struct {
		Peers map[string]json.RawMessage `json:"peers"`
	}
	err = json.Unmarshal(output, &summary)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse bgp summary")
	}
	seen := make(map[string]bool)
	var result []string
	for peer := range summary.Peers {
		output, err = frr.vtysh(ctx, []string{"show ip route " + peer + " json"})
		if err != nil {
			return nil, err
		}
		interfaces, err := parseRouteInterfaces(output)
		if err != nil {
			return nil, err
		}
		for _, name := range interfaces {
			if !seen[name] {
				seen[name] = true
				result = append(result, name)
			}
		}
	}
	return result, nil
}

func parseRouteInterfaces(data []byte) ([]string, error) {
	var routes map[string][]struct {
		Nexthops []struct {
			InterfaceName string `json:"interfaceName"`
		} `json:"nexthops"`
	}
	err := json.Unmarshal(data, &routes)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse route")
	}
	var result []string
	for _, entries := range routes {
		if len(entries) == 0 {
			continue
		}
		// The first route entry is the selected one.
		for _, nexthop := range entries[0].Nexthops {
			if nexthop.InterfaceName != "" {
				result = append(result, nexthop.InterfaceName)
			}
		}
		break
	}
	return result, nil
}
