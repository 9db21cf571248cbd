// Package config implements the persisted residency budget record (spec.md
// §6): a single host-storage JSON document describing how many bytes of GPU
// tile/snapshot memory this engine is allowed to keep resident.
package config

import "encoding/json"

// Bytes-unit constants for the clamp range spec.md §6 specifies.
const (
	minBudgetBytes     uint64 = 256 * 1024 * 1024
	maxBudgetBytes     uint64 = 5 * 1024 * 1024 * 1024
	defaultBudgetBytes uint64 = 512 * 1024 * 1024

	// residencyBudgetVersion is the persisted record's schema version.
	residencyBudgetVersion = 1
)

// ResidencyBudget is the persisted record spec.md §6 names:
// {version, maxAllocationBytes, budgetBytes, ratio, sampledAtMs}. MaxAllocationBytes
// is the adapter-reported ceiling this budget was sampled against; Ratio is
// budgetBytes/maxAllocationBytes at the time of sampling, kept for diagnostics
// even though budgetBytes is the only field residency.Manager actually reads.
type ResidencyBudget struct {
	Version            int     `json:"version"`
	MaxAllocationBytes uint64  `json:"maxAllocationBytes"`
	BudgetBytes        uint64  `json:"budgetBytes"`
	Ratio              float64 `json:"ratio"`
	SampledAtMs        int64   `json:"sampledAtMs"`
}

// DefaultResidencyBudget returns the 512 MiB default record, stamped with
// sampledAtMs set to nowMs (the caller supplies the timestamp since this
// package must not call time.Now directly in a way that would make its
// output non-deterministic for a given input — see NewResidencyBudget).
func DefaultResidencyBudget(nowMs int64) ResidencyBudget {
	return NewResidencyBudget(defaultBudgetBytes, defaultBudgetBytes, nowMs)
}

// NewResidencyBudget builds a budget record from a sampled adapter
// allocation ceiling and a desired budget, clamping budgetBytes to
// [256 MiB, 5 GiB] per spec.md §6.
func NewResidencyBudget(maxAllocationBytes, budgetBytes uint64, nowMs int64) ResidencyBudget {
	clamped := clampBudget(budgetBytes)
	var ratio float64
	if maxAllocationBytes > 0 {
		ratio = float64(clamped) / float64(maxAllocationBytes)
	}
	return ResidencyBudget{
		Version:            residencyBudgetVersion,
		MaxAllocationBytes: maxAllocationBytes,
		BudgetBytes:        clamped,
		Ratio:              ratio,
		SampledAtMs:        nowMs,
	}
}

func clampBudget(v uint64) uint64 {
	if v < minBudgetBytes {
		return minBudgetBytes
	}
	if v > maxBudgetBytes {
		return maxBudgetBytes
	}
	return v
}

// Marshal encodes the budget record as JSON for host-storage persistence.
func (b ResidencyBudget) Marshal() ([]byte, error) {
	return json.Marshal(b)
}

// UnmarshalResidencyBudget decodes a persisted budget record, re-clamping
// BudgetBytes in case the stored value predates a tightened clamp range or
// was corrupted by manual edits to the host-storage file.
func UnmarshalResidencyBudget(data []byte) (ResidencyBudget, error) {
	var b ResidencyBudget
	if err := json.Unmarshal(data, &b); err != nil {
		return ResidencyBudget{}, err
	}
	b.BudgetBytes = clampBudget(b.BudgetBytes)
	if b.Version == 0 {
		b.Version = residencyBudgetVersion
	}
	return b, nil
}
