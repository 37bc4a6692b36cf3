package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/boristopalov/arenas/pkg/spawner"
)

func TestRetrieveEnvironmentParameters(t *testing.T) {
	d := DefaultDefaults()

	cases := []struct {
		name string
		args []string
		want Parameters
	}{
		{
			name: "values and switches",
			args: []string{"arenas", "--numberOfArenas", "4", "--grayscale", "--resolution", "128", "--useRayCasts"},
			want: Parameters{ParamNumberOfArenas: 4, ParamGrayscale: 1, ParamResolution: 128, ParamUseRayCasts: 1},
		},
		{
			name: "bare flags take their defaults",
			args: []string{"--playerMode", "--resolution", "--rays_per_side"},
			want: Parameters{ParamPlayerMode: 1, ParamResolution: 84, ParamRaysPerSide: 2},
		},
		{
			name: "explicit zero",
			args: []string{"--playerMode", "0"},
			want: Parameters{ParamPlayerMode: 0},
		},
		{
			name: "unrecognised tokens ignored",
			args: []string{"-batchmode", "--logFile", "x.log", "--receiveConfiguration", "--ray_max_degrees", "45"},
			want: Parameters{ParamReceiveConfiguration: 0, ParamRayMaxDegrees: 45},
		},
		{
			name: "nothing given",
			args: nil,
			want: Parameters{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RetrieveEnvironmentParameters(tc.args, d)
			if err != nil {
				t.Fatalf("RetrieveEnvironmentParameters: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("parameters mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("malformed integer is fatal", func(t *testing.T) {
		_, err := RetrieveEnvironmentParameters([]string{"--numberOfArenas", "four"}, d)
		if !errors.Is(err, ErrMalformedParameter) {
			t.Fatalf("err = %v, want ErrMalformedParameter", err)
		}
	})

	t.Run("duplicate is fatal", func(t *testing.T) {
		_, err := RetrieveEnvironmentParameters([]string{"--resolution", "64", "--resolution", "32"}, d)
		if !errors.Is(err, ErrDuplicateParameter) {
			t.Fatalf("err = %v, want ErrDuplicateParameter", err)
		}
	})
}

func TestResolve(t *testing.T) {
	d := DefaultDefaults()
	off := DefaultEditorOverrides()

	t.Run("resolution clamped", func(t *testing.T) {
		for in, want := range map[int]int{4000: 512, 0: 4, 84: 84} {
			r, err := Resolve(Parameters{ParamResolution: in}, d, off)
			if err != nil {
				t.Fatal(err)
			}
			if r.Resolution != want {
				t.Errorf("resolution %d resolved to %d, want %d", in, r.Resolution, want)
			}
		}
	})

	t.Run("player mode forces one arena", func(t *testing.T) {
		r, err := Resolve(Parameters{ParamPlayerMode: 1, ParamNumberOfArenas: 9}, d, off)
		if err != nil {
			t.Fatal(err)
		}
		if r.NumberOfArenas != 1 || !r.PlayerMode {
			t.Errorf("got arenas=%d player=%v, want 1 true", r.NumberOfArenas, r.PlayerMode)
		}
	})

	t.Run("defaults fill gaps", func(t *testing.T) {
		r, err := Resolve(Parameters{}, d, off)
		if err != nil {
			t.Fatal(err)
		}
		want := Resolved{
			NumberOfArenas: 1,
			Resolution:     84,
			RaysPerSide:    2,
			RayMaxDegrees:  60,
		}
		if diff := cmp.Diff(want, r); diff != "" {
			t.Errorf("Resolved mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("editor overrides win", func(t *testing.T) {
		editor := DefaultEditorOverrides()
		editor.Enabled = true
		r, err := Resolve(Parameters{ParamNumberOfArenas: 16, ParamResolution: 64, ParamGrayscale: 1}, d, editor)
		if err != nil {
			t.Fatal(err)
		}
		if r.NumberOfArenas != 1 || !r.PlayerMode || r.Resolution != 500 || r.Grayscale {
			t.Errorf("editor overrides not applied: %+v", r)
		}
	})

	t.Run("zero arenas rejected", func(t *testing.T) {
		_, err := Resolve(Parameters{ParamNumberOfArenas: 0}, d, off)
		if !errors.Is(err, ErrInvalidArenaCount) {
			t.Fatalf("err = %v, want ErrInvalidArenaCount", err)
		}
	})

	t.Run("receive configuration", func(t *testing.T) {
		r, err := Resolve(Parameters{ParamReceiveConfiguration: 0}, d, off)
		if err != nil {
			t.Fatal(err)
		}
		if !r.ReceiveConfiguration {
			t.Error("ReceiveConfiguration should be set by the bare flag")
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	t.Run("partial file keeps compiled values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "defaults.toml")
		if err := os.WriteFile(path, []byte("maximum_resolution = 256\nrays_per_side = 0\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := LoadDefaults(path)
		if err != nil {
			t.Fatalf("LoadDefaults: %v", err)
		}
		want := DefaultDefaults()
		want.MaximumResolution = 256
		want.DefaultRaysPerSide = 0
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Defaults mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("inverted bounds rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "defaults.toml")
		if err := os.WriteFile(path, []byte("maximum_resolution = 2\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadDefaults(path); !errors.Is(err, ErrInvalidDefaults) {
			t.Fatalf("err = %v, want ErrInvalidDefaults", err)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		got, err := LoadDefaults("")
		if err != nil {
			t.Fatal(err)
		}
		if got != DefaultDefaults() {
			t.Errorf("LoadDefaults(\"\") = %+v", got)
		}
	})
}

const twoArenas = `
arenas:
  0:
    t: 100
    pass_mark: 2.5
    blackouts: [10, 20]
    spawners:
      - templates: [GoodGoal, BadGoal]
        initial_size: 0.5
        ripened_size: 1
        delay_seconds: 2
        interval_seconds: 1
        count: 3
        seeds: {object: 4}
  3:
    t: 50
    spawners: []
`

func TestArenasConfigurations(t *testing.T) {
	t.Run("received records replace defaults", func(t *testing.T) {
		store := NewArenasConfigurations()
		store.SetNumberOfArenas(4)
		if err := store.UpdateWithConfigurationsReceived([]byte(twoArenas)); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if diff := cmp.Diff([]int{0, 3}, store.IDs()); diff != "" {
			t.Errorf("IDs mismatch (-want +got):\n%s", diff)
		}

		a0 := store.Get(0)
		if a0.TimeLimit != 100 || a0.PassMark != 2.5 {
			t.Errorf("arena 0 = %+v", a0)
		}
		if len(a0.Spawners) != 1 {
			t.Fatalf("arena 0 spawners = %d, want 1", len(a0.Spawners))
		}
		sp := a0.Spawners[0]
		if sp.Delay != 2 || sp.Interval != 1 || sp.Count != 3 || sp.Seeds.EntityChoice != 4 {
			t.Errorf("spawner = %+v", sp)
		}
		if _, ok := a0.Params["blackouts"]; !ok {
			t.Error("extra keys should be kept")
		}

		if store.Has(1) {
			t.Error("arena 1 should have no own record")
		}
		if got := store.Get(1); len(got.Spawners) == 0 {
			t.Error("arena 1 should fall back to the default record")
		}
	})

	t.Run("invalid delivery changes nothing", func(t *testing.T) {
		store := NewArenasConfigurations()
		bad := "arenas:\n  0:\n    t: 10\n  1:\n    spawners:\n      - templates: []\n"
		err := store.UpdateWithConfigurationsReceived([]byte(bad))
		if !errors.Is(err, spawner.ErrNoTemplates) {
			t.Fatalf("err = %v, want ErrNoTemplates", err)
		}
		if len(store.IDs()) != 0 {
			t.Errorf("IDs() = %v, want none", store.IDs())
		}
	})

	t.Run("add and load file", func(t *testing.T) {
		store := NewArenasConfigurations()
		if err := store.Add(2, ArenaConfiguration{TimeLimit: 30}); err != nil {
			t.Fatal(err)
		}
		if err := store.Add(-1, ArenaConfiguration{}); !errors.Is(err, ErrInvalidArena) {
			t.Fatalf("Add(-1) = %v, want ErrInvalidArena", err)
		}

		path := filepath.Join(t.TempDir(), "arenas.yaml")
		if err := os.WriteFile(path, []byte(twoArenas), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := store.LoadFile(path); err != nil {
			t.Fatalf("LoadFile: %v", err)
		}
		if diff := cmp.Diff([]int{0, 2, 3}, store.IDs()); diff != "" {
			t.Errorf("IDs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("embedded default is valid", func(t *testing.T) {
		def := NewArenasConfigurations().Get(0)
		if err := def.Validate(); err != nil {
			t.Fatalf("default record: %v", err)
		}
		if !def.Spawners[0].Infinite() {
			t.Error("default spawner should be unbounded")
		}
	})
}
