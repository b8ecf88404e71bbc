package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wippyai/wrenit/resource"
	"github.com/wippyai/wrenit/wren"
	"github.com/wippyai/wrenit/wren/wrentest"
)

func TestCollectorCounts(t *testing.T) {
	c := New("wrenit")
	events := []resource.Event{
		{Namespace: resource.NamespaceHandle, Type: resource.EventCreated},
		{Namespace: resource.NamespaceHandle, Type: resource.EventCreated},
		{Namespace: resource.NamespaceHandle, Type: resource.EventDropped},
		{Namespace: resource.NamespaceForeignObject, Type: resource.EventCreated},
		{Namespace: resource.NamespaceForeignObject, Type: resource.EventReplaced},
		{Namespace: resource.NamespaceForeignObject, Type: resource.EventCreated},
	}
	for _, e := range events {
		c.OnResourceEvent(e)
	}

	tests := []struct {
		name   string
		metric prometheus.Collector
		want   float64
	}{
		{"handles created", c.events.WithLabelValues("handle", "created"), 2},
		{"handles dropped", c.events.WithLabelValues("handle", "dropped"), 1},
		{"objects replaced", c.events.WithLabelValues("foreign_object", "replaced"), 1},
		{"live handles", c.live.WithLabelValues("handle"), 1},
		{"live objects", c.live.WithLabelValues("foreign_object"), 1},
		{"live vms", c.live.WithLabelValues("vm"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.metric); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCollectorRegisters(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	c := New("wrenit")
	if err := reg.Register(c); err != nil {
		t.Fatal(err)
	}

	cfg := wren.DefaultConfig()
	cfg.Observers = append(cfg.Observers, c)
	vm, err := wren.New(wrentest.New(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	vm.EnsureSlots(1)
	vm.SetSlotString(0, "x")
	h, err := vm.SlotHandle(0)
	if err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(c.live.WithLabelValues("handle")); got != 1 {
		t.Errorf("live handles = %v", got)
	}
	h.Release()
	vm.Close()

	expected := `
# HELP wrenit_resource_live Live resource table entries by namespace
# TYPE wrenit_resource_live gauge
wrenit_resource_live{namespace="foreign_class"} 0
wrenit_resource_live{namespace="foreign_method"} 0
wrenit_resource_live{namespace="foreign_object"} 0
wrenit_resource_live{namespace="handle"} 0
wrenit_resource_live{namespace="vm"} 0
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "wrenit_resource_live"); err != nil {
		t.Error(err)
	}
}
