package config

import "testing"

func TestNewResidencyBudgetClampsLow(t *testing.T) {
	b := NewResidencyBudget(1<<30, 1024, 1000)
	if b.BudgetBytes != minBudgetBytes {
		t.Errorf("BudgetBytes = %d, want %d (clamped low)", b.BudgetBytes, minBudgetBytes)
	}
}

func TestNewResidencyBudgetClampsHigh(t *testing.T) {
	b := NewResidencyBudget(1<<40, maxBudgetBytes*2, 1000)
	if b.BudgetBytes != maxBudgetBytes {
		t.Errorf("BudgetBytes = %d, want %d (clamped high)", b.BudgetBytes, maxBudgetBytes)
	}
}

func TestNewResidencyBudgetWithinRangeUnchanged(t *testing.T) {
	want := uint64(1024 * 1024 * 1024)
	b := NewResidencyBudget(4*want, want, 1000)
	if b.BudgetBytes != want {
		t.Errorf("BudgetBytes = %d, want %d", b.BudgetBytes, want)
	}
	if b.Ratio != 0.25 {
		t.Errorf("Ratio = %v, want 0.25", b.Ratio)
	}
}

func TestDefaultResidencyBudget(t *testing.T) {
	b := DefaultResidencyBudget(42)
	if b.BudgetBytes != defaultBudgetBytes {
		t.Errorf("BudgetBytes = %d, want default %d", b.BudgetBytes, defaultBudgetBytes)
	}
	if b.SampledAtMs != 42 {
		t.Errorf("SampledAtMs = %d, want 42", b.SampledAtMs)
	}
	if b.Version != residencyBudgetVersion {
		t.Errorf("Version = %d, want %d", b.Version, residencyBudgetVersion)
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	b := NewResidencyBudget(2<<30, 700*1024*1024, 12345)
	data, err := b.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := UnmarshalResidencyBudget(data)
	if err != nil {
		t.Fatalf("UnmarshalResidencyBudget: %v", err)
	}
	if got != b {
		t.Errorf("round trip = %+v, want %+v", got, b)
	}
}

func TestUnmarshalReclampsStaleBudget(t *testing.T) {
	data := []byte(`{"version":1,"maxAllocationBytes":0,"budgetBytes":100,"ratio":0,"sampledAtMs":0}`)
	got, err := UnmarshalResidencyBudget(data)
	if err != nil {
		t.Fatalf("UnmarshalResidencyBudget: %v", err)
	}
	if got.BudgetBytes != minBudgetBytes {
		t.Errorf("BudgetBytes = %d, want re-clamped %d", got.BudgetBytes, minBudgetBytes)
	}
}

func TestUnmarshalDefaultsVersion(t *testing.T) {
	data := []byte(`{"budgetBytes":` + itoa(minBudgetBytes) + `}`)
	got, err := UnmarshalResidencyBudget(data)
	if err != nil {
		t.Fatalf("UnmarshalResidencyBudget: %v", err)
	}
	if got.Version != residencyBudgetVersion {
		t.Errorf("Version = %d, want %d", got.Version, residencyBudgetVersion)
	}
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}
