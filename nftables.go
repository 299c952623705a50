package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"text/template"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Firewall is the split-horizon ruleset surface the watcher drives.
type Firewall interface {
	Ready(ctx context.Context) bool
	ListObject(ctx context.Context, kind ...string) (string, bool)
	Apply(ctx context.Context, config SPHConfig) error
}

// SPHConfig is the input to one split-horizon ruleset render.
type SPHConfig struct {
	Interfaces         []string
	DFInterfaces       []string
	NonDFInterfaces    []string
	Vteps              []string
	UnderlayInterfaces []string
	NetdevTableExists  bool
	BridgeTableExists  bool
}

const sphRuleset = `#!/usr/sbin/nft -f
{{- if .BridgeTableExists }}
delete table bridge evpn_sph
{{- end }}
{{- if .NetdevTableExists }}
delete table netdev evpn_sph
{{- end }}

table bridge evpn_sph {
	set df_bonds {
		type ifname
		{{- if .DFInterfaces }}
		elements = { {{ join .DFInterfaces ", " }} }
		{{- end }}
	}

	set non_df_bonds {
		type ifname
		{{- if .NonDFInterfaces }}
		elements = { {{ join .NonDFInterfaces ", " }} }
		{{- end }}
	}

	chain forward {
		type filter hook forward priority -100; policy accept;
		{{- if .Vteps }}
		ether type ip ip saddr { {{ join .Vteps ", " }} } oifname @non_df_bonds drop
		{{- end }}
	}
}

table netdev evpn_sph {
	{{- range .UnderlayInterfaces }}
	chain ingress_{{ . }} {
		type filter hook ingress device {{ . }} priority -100; policy accept;
	}
	{{- end }}
}
`

var sphTemplate = template.Must(template.New("sph").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(sphRuleset))

// NftClient renders the split-horizon ruleset to ConfPath and applies it
// with nft, validating with a check run first.
type NftClient struct {
	ConfPath string
}

func NewNftClient(confPath string) *NftClient {
	return &NftClient{ConfPath: confPath}
}

func (n *NftClient) Ready(ctx context.Context) bool {
	_, err := exec.CommandContext(ctx, "nft", "list", "tables").Output()
	return err == nil
}

// ListObject returns the textual listing of one nftables object, e.g.
// ListObject(ctx, "set", "bridge", "evpn_sph", "df_bonds"). The second
// return value is false when the object does not exist.
func (n *NftClient) ListObject(ctx context.Context, kind ...string) (string, bool) {
	args := append([]string{"list"}, kind...)
	output, err := exec.CommandContext(ctx, "nft", args...).Output()
	if err != nil {
		return "", false
	}
	return string(output), true
}

func RenderSPHRuleset(config SPHConfig) ([]byte, error) {
	var buf bytes.Buffer
	err := sphTemplate.Execute(&buf, config)
	if err != nil {
		return nil, errors.Wrap(err, "could not render ruleset")
	}
	return buf.Bytes(), nil
}

func (n *NftClient) Apply(ctx context.Context, config SPHConfig) error {
	ruleset, err := RenderSPHRuleset(config)
	if err != nil {
		return err
	}
	err = os.WriteFile(n.ConfPath, ruleset, 0644)
	if err != nil {
		return errors.Wrap(err, "could not write ruleset")
	}
	output, err := exec.CommandContext(ctx, "nft", "-c", "--file", n.ConfPath).CombinedOutput()
	if err != nil {
		return errors.New("ruleset validation failed: " + string(output))
	}
	output, err = exec.CommandContext(ctx, "nft", "--file", n.ConfPath).CombinedOutput()
	if err != nil {
		return errors.New("could not apply ruleset: " + string(output))
	}
	log.Info().Str("path", n.ConfPath).Msg("nft: applied split-horizon ruleset")
	return nil
}
