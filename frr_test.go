package main

import "testing"

const esDetailFixture = `[
  {"esi":"03:44:38:39:ff:ff:01:00:00:01","accessPort":"bond0","flags":["local","remote","df"],"vteps":[{"vtep":"10.0.0.2"},{"vtep":"10.0.0.3"}]},
  {"esi":"03:44:38:39:ff:ff:01:00:00:02","accessPort":"bond1","flags":["local","nonDF"],"vteps":[{"vtep":"10.0.0.2"}]},
  {"esi":"03:44:38:39:ff:ff:01:00:00:03","accessPort":"bond2","flags":["local"]},
  {"esi":"03:44:38:39:ff:ff:01:00:00:04","flags":["remote"]}
]`

func TestParseEsInterfaces(t *testing.T) {
	es, err := parseEsInterfaces([]byte(esDetailFixture))
	if err != nil {
		t.Fatalf("parseEsInterfaces(fixture) = %v; want nil", err)
	}
	if len(es) != 3 {
		t.Fatalf("len(es) = %d; want 3", len(es))
	}
	bond0 := es["bond0"]
	if !bond0.Known || bond0.Status != DF {
		t.Errorf("es[bond0] = %+v; want known df", bond0)
	}
	if len(bond0.Vteps) != 2 || bond0.Vteps[0] != "10.0.0.2" || bond0.Vteps[1] != "10.0.0.3" {
		t.Errorf("es[bond0].Vteps = %v; want [10.0.0.2 10.0.0.3]", bond0.Vteps)
	}
	bond1 := es["bond1"]
	if !bond1.Known || bond1.Status != NonDF {
		t.Errorf("es[bond1] = %+v; want known non-df", bond1)
	}
	if es["bond2"].Known {
		t.Errorf("es[bond2].Known = true; want false")
	}
}

func TestParseEsInterfacesInvalid(t *testing.T) {
	_, err := parseEsInterfaces([]byte("not json"))
	if err == nil {
		t.Errorf("parseEsInterfaces(not json) = nil; want error")
	}
}

func TestParseRouteInterfaces(t *testing.T) {
	fixture := `{"10.0.0.2/32":[{"prefix":"10.0.0.2/32","nexthops":[{"interfaceName":"eth1"},{"interfaceName":"eth2"},{"ip":"10.0.1.1"}]}]}`
	interfaces, err := parseRouteInterfaces([]byte(fixture))
	if err != nil {
		t.Fatalf("parseRouteInterfaces(fixture) = %v; want nil", err)
	}
	if len(interfaces) != 2 || interfaces[0] != "eth1" || interfaces[1] != "eth2" {
		t.Errorf("parseRouteInterfaces(fixture) = %v; want [eth1 eth2]", interfaces)
	}
}

func TestParseRouteInterfacesEmpty(t *testing.T) {
	interfaces, err := parseRouteInterfaces([]byte(`{}`))
	if err != nil {
		t.Fatalf("parseRouteInterfaces({}) = %v; want nil", err)
	}
	if len(interfaces) != 0 {
		t.Errorf("parseRouteInterfaces({}) = %v; want empty", interfaces)
	}
}
