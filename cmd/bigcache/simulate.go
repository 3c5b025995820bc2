package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coldboot/bigcache/simulator"
	"github.com/coldboot/bigcache/trace"
)

var (
	simProfileNames string
	simProfileFile  string
	simPreheats     []float64
	simOutput       string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <trace.csv>",
	Short: "Estimate cold-start elapsed time per storage profile and strategy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := trace.Load(args[0])
		if err != nil {
			return err
		}

		profiles, err := selectProfiles(simProfileNames, simProfileFile)
		if err != nil {
			return err
		}

		report, err := simulator.EvaluateAll(loaded.Records, profiles, simulator.DefaultParams(), simPreheats)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		if simOutput != "" {
			if err := os.WriteFile(simOutput, out, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "results written to %s\n", simOutput)
			return nil
		}
		fmt.Println(string(out))
		return nil
	},
}

// selectProfiles resolves the profile set from the builtin table or a
// YAML profile file, optionally filtered by a comma-separated name list.
func selectProfiles(names, file string) (map[string]simulator.StorageProfile, error) {
	profiles := simulator.BuiltinProfiles()
	if file != "" {
		var err error
		profiles, err = simulator.LoadProfiles(file)
		if err != nil {
			return nil, err
		}
	}
	if names == "" || names == "all" {
		return profiles, nil
	}

	selected := make(map[string]simulator.StorageProfile)
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		p, ok := profiles[name]
		if !ok {
			return nil, fmt.Errorf("unknown storage profile %q", name)
		}
		selected[name] = p
	}
	return selected, nil
}

func init() {
	simulateCmd.Flags().StringVar(&simProfileNames, "profiles", "all", "comma-separated profile names, or 'all'")
	simulateCmd.Flags().StringVar(&simProfileFile, "profile-file", "", "YAML file overriding the builtin storage profiles")
	simulateCmd.Flags().Float64SliceVar(&simPreheats, "preheat", []float64{0, 25, 50, 75, 100}, "demand-paging preheat percentages to evaluate")
	simulateCmd.Flags().StringVarP(&simOutput, "output", "o", "", "write the JSON report to a file instead of stdout")
}
