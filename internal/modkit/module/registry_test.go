package module

import "testing"

type fakePorts struct{ Shards int }

func TestRegisterAndPortsAs(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	Register("partition", fakePorts{Shards: 32})

	got, ok := PortsAs[fakePorts]("partition")
	if !ok {
		t.Fatalf("PortsAs failed for registered module")
	}
	if got.Shards != 32 {
		t.Fatalf("Shards = %d, want 32", got.Shards)
	}

	if _, ok := PortsAs[fakePorts]("missing"); ok {
		t.Fatalf("PortsAs should miss for unregistered name")
	}

	// wrong type assert misses without panicking
	if _, ok := PortsAs[string]("partition"); ok {
		t.Fatalf("PortsAs should fail on wrong type")
	}
}
