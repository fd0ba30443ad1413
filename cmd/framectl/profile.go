package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/mos-project/mos-core/mm/frame"
)

// Profile is the TOML file passed with --config. Every field is optional;
// command-line flags override it.
//
//	size      = "4M"
//	page_size = "4K"
//	max_pages = 262144
//	check     = true
type Profile struct {
	Size     string `toml:"size"`
	PageSize string `toml:"page_size"`
	MaxPages uint64 `toml:"max_pages"`
	Check    bool   `toml:"check"`
}

func loadProfile(path string) (Profile, error) {
	var p Profile
	meta, err := toml.DecodeFile(path, &p)
	if err != nil {
		return Profile{}, fmt.Errorf("load profile %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slices.Sort(keys)
		return Profile{}, fmt.Errorf("load profile %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return p, nil
}

// geometry is the resolved shape of the region a command works on.
type geometry struct {
	Size     uint64
	PageSize uint64
	MaxPages uint64
	Check    bool
}

// geometryFlags are the per-command flags that can override the profile.
type geometryFlags struct {
	size     string
	pageSize string
	check    bool
}

func (g *geometryFlags) register(cmd *cobra.Command, defaultSize string) {
	cmd.Flags().StringVar(&g.size, "size", defaultSize, "Region size (e.g. 1M, 0x100000)")
	cmd.Flags().StringVar(&g.pageSize, "page", "4K", "Page size, a power of two")
	cmd.Flags().BoolVar(&g.check, "check", false, "Validate allocator invariants after every operation")
}

// resolve overlays changed flags on the profile. Flags left at their
// defaults lose to profile values.
func (g *geometryFlags) resolve(cmd *cobra.Command, p Profile) (geometry, error) {
	pick := func(flag, flagVal, profileVal string) string {
		if cmd.Flags().Changed(flag) || profileVal == "" {
			return flagVal
		}
		return profileVal
	}

	size, err := parseSize(pick("size", g.size, p.Size))
	if err != nil {
		return geometry{}, fmt.Errorf("--size: %w", err)
	}
	pageSize, err := parseSize(pick("page", g.pageSize, p.PageSize))
	if err != nil {
		return geometry{}, fmt.Errorf("--page: %w", err)
	}

	check := g.check
	if !cmd.Flags().Changed("check") {
		check = check || p.Check
	}

	return geometry{
		Size:     size,
		PageSize: pageSize,
		MaxPages: p.MaxPages,
		Check:    check,
	}, nil
}

// config builds the allocator config for g.
func (g geometry) config(obs frame.Observer) *frame.Config {
	return &frame.Config{
		PageSize: g.PageSize,
		MaxPages: g.MaxPages,
		Observer: obs,
	}
}
