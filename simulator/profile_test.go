package simulator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltinProfilesValid(t *testing.T) {
	profiles := BuiltinProfiles()
	require.Len(t, profiles, 5)
	for key, p := range profiles {
		require.NoError(t, p.Validate(), "builtin profile %s", key)
		require.NotEmpty(t, p.Name)
	}
	require.Equal(t, 8.0, profiles["hdd"].SeekTimeMs)
	require.Equal(t, 3000.0, profiles["nvme"].SequentialReadMBps)
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
slow-sd:
  sequentialReadMBps: 40
  randomReadIOPS: 500
  seekTimeMs: 2
  pageReadUs: 900
fast:
  name: Engineering sample
  sequentialReadMBps: 7000
  randomReadIOPS: 1000000
  seekTimeMs: 0.01
  pageReadUs: 10
`), 0o644))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	// A profile without an explicit name inherits its map key.
	require.Equal(t, "slow-sd", profiles["slow-sd"].Name)
	require.Equal(t, "Engineering sample", profiles["fast"].Name)
	require.Equal(t, 40.0, profiles["slow-sd"].SequentialReadMBps)
}

func TestLoadProfilesErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadProfiles(filepath.Join(dir, "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("::not yaml::"), 0o644))
		_, err := LoadProfiles(path)
		require.Error(t, err)
	})

	t.Run("empty document", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))
		_, err := LoadProfiles(path)
		require.Error(t, err)
	})

	t.Run("invalid profile", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("dud:\n  sequentialReadMBps: 0\n"), 0o644))
		_, err := LoadProfiles(path)
		require.Error(t, err)
	})
}

func TestProfileValidate(t *testing.T) {
	base := StorageProfile{
		Name:               "x",
		SequentialReadMBps: 100,
		RandomReadIOPS:     1000,
		SeekTimeMs:         1,
		PageReadUs:         100,
	}
	require.NoError(t, base.Validate())

	cases := []struct {
		name   string
		mutate func(*StorageProfile)
	}{
		{"zero bandwidth", func(p *StorageProfile) { p.SequentialReadMBps = 0 }},
		{"negative iops", func(p *StorageProfile) { p.RandomReadIOPS = -1 }},
		{"negative seek", func(p *StorageProfile) { p.SeekTimeMs = -0.1 }},
		{"negative page read", func(p *StorageProfile) { p.PageReadUs = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Errorf("Validate() accepted %s", tc.name)
			}
		})
	}
}
