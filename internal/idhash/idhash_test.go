package idhash

import (
	"crypto/ed25519"
	"testing"

	"weighted-oracle/internal/domain"
)

func TestComputeEventID(t *testing.T) {
	tests := []struct {
		name      string
		oracle    domain.Address
		sequence  uint64
		eventType domain.EventType
		timestamp uint64
	}{
		{
			name:      "price submitted",
			oracle:    domain.ZeroAddress,
			sequence:  1,
			eventType: domain.EventPriceSubmitted,
			timestamp: 1704067234,
		},
		{
			name:      "deposit",
			oracle:    domain.ZeroAddress,
			sequence:  2,
			eventType: domain.EventTokenDeposited,
			timestamp: 1704067300,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeEventID(tt.oracle, tt.sequence, tt.eventType, tt.timestamp)
			if len(got) != 64 {
				t.Errorf("ComputeEventID() length = %d, want 64", len(got))
			}

			got2 := ComputeEventID(tt.oracle, tt.sequence, tt.eventType, tt.timestamp)
			if got != got2 {
				t.Errorf("ComputeEventID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeEventID_DistinctSequence(t *testing.T) {
	a := ComputeEventID(domain.ZeroAddress, 1, domain.EventFunded, 100)
	b := ComputeEventID(domain.ZeroAddress, 2, domain.EventFunded, 100)
	if a == b {
		t.Error("different sequences should produce different IDs")
	}
}

func TestOracleAddress_OffCurveAndDeterministic(t *testing.T) {
	factory, err := FactoryAddress("test")
	if err != nil {
		t.Fatalf("FactoryAddress: %v", err)
	}

	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	creator, err := domain.AddressFromBytes(pub)
	if err != nil {
		t.Fatalf("AddressFromBytes: %v", err)
	}

	first, err := OracleAddress(factory, creator, 0)
	if err != nil {
		t.Fatalf("OracleAddress: %v", err)
	}
	again, err := OracleAddress(factory, creator, 0)
	if err != nil {
		t.Fatalf("OracleAddress: %v", err)
	}
	second, err := OracleAddress(factory, creator, 1)
	if err != nil {
		t.Fatalf("OracleAddress: %v", err)
	}

	if first != again {
		t.Errorf("OracleAddress not deterministic: %s != %s", first, again)
	}
	if first == second {
		t.Error("different indexes should derive different addresses")
	}

	raw, err := first.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if IsOnCurve(raw) {
		t.Error("derived address should be off the ed25519 curve")
	}
}

func TestOracleAddress_InvalidCreator(t *testing.T) {
	factory, err := FactoryAddress("test")
	if err != nil {
		t.Fatalf("FactoryAddress: %v", err)
	}
	if _, err := OracleAddress(factory, "not-base58-0OIl", 0); err == nil {
		t.Error("expected error for invalid creator address")
	}
}

func TestIsOnCurve(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if !IsOnCurve(pub) {
		t.Error("ed25519 public key should be on curve")
	}
	if IsOnCurve([]byte{1, 2, 3}) {
		t.Error("short input should not be on curve")
	}
}

func TestTokenAndNativeAddressesDiffer(t *testing.T) {
	factory, err := FactoryAddress("test")
	if err != nil {
		t.Fatalf("FactoryAddress: %v", err)
	}
	token, err := TokenAddress(factory, "WGT")
	if err != nil {
		t.Fatalf("TokenAddress: %v", err)
	}
	native, err := NativeAddress(factory)
	if err != nil {
		t.Fatalf("NativeAddress: %v", err)
	}
	if token == native {
		t.Error("token and native ledger addresses should differ")
	}
}
