package simulator

// Params holds the calibration constants of the access-cost model. They
// are heuristic values without hardware derivation, so they are explicit
// configuration rather than package globals; calibrate against measured
// traces before trusting absolute numbers. The page size is not here:
// it is a property of the artifact format (trace.PageSize), and a
// simulation sized with any other value would disagree with what the
// packager writes.
type Params struct {
	// Traditional strategy: a same-file jump larger than the threshold
	// breaks readahead and costs MinorSeekFactor * SeekTimeMs.
	MinorSeekThresholdBytes int64   `json:"minorSeekThresholdBytes" yaml:"minorSeekThresholdBytes"`
	MinorSeekFactor         float64 `json:"minorSeekFactor" yaml:"minorSeekFactor"`

	// Demand paging: per-fault trap + lookup cost, and the in-memory copy
	// that follows (the page is already resident in the preloaded blob).
	FaultOverheadUs float64 `json:"faultOverheadUs" yaml:"faultOverheadUs"`
	FaultCopyUs     float64 `json:"faultCopyUs" yaml:"faultCopyUs"`

	// Cost of touching a page that is already in the page cache.
	MemoryAccessUs float64 `json:"memoryAccessUs" yaml:"memoryAccessUs"`
}

// DefaultParams returns the calibration constants the cost model ships
// with.
func DefaultParams() Params {
	return Params{
		MinorSeekThresholdBytes: 128 * 1024,
		MinorSeekFactor:         0.5,
		FaultOverheadUs:         5,
		FaultCopyUs:             1,
		MemoryAccessUs:          0.1,
	}
}

// Validate checks that parameter values are usable.
func (p Params) Validate() error {
	if p.MinorSeekThresholdBytes < 0 {
		return ErrInvalidConfig("minorSeekThresholdBytes must be >= 0")
	}
	if p.MinorSeekFactor < 0 || p.MinorSeekFactor > 1 {
		return ErrInvalidConfig("minorSeekFactor must be between 0 and 1")
	}
	if p.FaultOverheadUs < 0 {
		return ErrInvalidConfig("faultOverheadUs must be >= 0")
	}
	if p.FaultCopyUs < 0 {
		return ErrInvalidConfig("faultCopyUs must be >= 0")
	}
	if p.MemoryAccessUs < 0 {
		return ErrInvalidConfig("memoryAccessUs must be >= 0")
	}
	return nil
}
