package simulator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StorageProfile holds the static performance parameters of one storage
// class. Profiles are read-only throughout a simulation run.
type StorageProfile struct {
	Name               string  `json:"name" yaml:"name"`
	SequentialReadMBps float64 `json:"sequentialReadMBps" yaml:"sequentialReadMBps"` // sustained sequential read bandwidth
	RandomReadIOPS     float64 `json:"randomReadIOPS" yaml:"randomReadIOPS"`         // 4KiB random read operations per second
	SeekTimeMs         float64 `json:"seekTimeMs" yaml:"seekTimeMs"`                 // full seek / file-switch latency
	PageReadUs         float64 `json:"pageReadUs" yaml:"pageReadUs"`                 // single 4KiB page read latency
}

// Validate checks that the profile can drive a simulation.
func (p StorageProfile) Validate() error {
	if p.SequentialReadMBps <= 0 {
		return ErrInvalidConfig(fmt.Sprintf("profile %s: sequentialReadMBps must be > 0", p.Name))
	}
	if p.RandomReadIOPS < 0 {
		return ErrInvalidConfig(fmt.Sprintf("profile %s: randomReadIOPS must be >= 0", p.Name))
	}
	if p.SeekTimeMs < 0 {
		return ErrInvalidConfig(fmt.Sprintf("profile %s: seekTimeMs must be >= 0", p.Name))
	}
	if p.PageReadUs < 0 {
		return ErrInvalidConfig(fmt.Sprintf("profile %s: pageReadUs must be >= 0", p.Name))
	}
	return nil
}

// BuiltinProfiles returns the default storage parameter table. The
// numbers are calibration estimates for typical device classes, not
// measurements; override them with a profile file when accuracy matters.
func BuiltinProfiles() map[string]StorageProfile {
	return map[string]StorageProfile{
		"hdd": {
			Name:               "HDD",
			SequentialReadMBps: 150,
			RandomReadIOPS:     100,
			SeekTimeMs:         8,
			PageReadUs:         10000,
		},
		"ssd": {
			Name:               "SSD (SATA)",
			SequentialReadMBps: 500,
			RandomReadIOPS:     50000,
			SeekTimeMs:         0.1,
			PageReadUs:         80,
		},
		"nvme": {
			Name:               "NVMe SSD",
			SequentialReadMBps: 3000,
			RandomReadIOPS:     500000,
			SeekTimeMs:         0.02,
			PageReadUs:         20,
		},
		"emmc": {
			Name:               "eMMC (Mobile)",
			SequentialReadMBps: 300,
			RandomReadIOPS:     10000,
			SeekTimeMs:         0.3,
			PageReadUs:         200,
		},
		"ufs": {
			Name:               "UFS 3.1 (Mobile)",
			SequentialReadMBps: 2000,
			RandomReadIOPS:     70000,
			SeekTimeMs:         0.1,
			PageReadUs:         50,
		},
	}
}

// LoadProfiles reads a YAML file mapping profile keys to StorageProfiles.
// Every loaded profile is validated; a profile without a name inherits
// its map key.
func LoadProfiles(path string) (map[string]StorageProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}
	profiles := make(map[string]StorageProfile)
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("profiles %s: no profiles defined", path)
	}
	for key, p := range profiles {
		if p.Name == "" {
			p.Name = key
			profiles[key] = p
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profiles %s: %w", path, err)
		}
	}
	return profiles, nil
}
