package config

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrInvalidArenaCount = errors.New("numberOfArenas must be at least 1")

// Resolved is the canonical configuration. It is built once at startup and
// never changed.
type Resolved struct {
	PlayerMode           bool
	NumberOfArenas       int
	Resolution           int
	Grayscale            bool
	RaysPerSide          int
	RayMaxDegrees        int
	UseRayCasts          bool
	ReceiveConfiguration bool
}

// Resolve merges editor overrides, then arguments, then defaults.
func Resolve(params Parameters, defaults Defaults, editor EditorOverrides) (Resolved, error) {
	if err := defaults.Validate(); err != nil {
		return Resolved{}, err
	}

	r := Resolved{
		PlayerMode:           params.Bool(ParamPlayerMode, false),
		NumberOfArenas:       params.Int(ParamNumberOfArenas, 1),
		Resolution:           params.Int(ParamResolution, defaults.DefaultResolution),
		Grayscale:            params.Bool(ParamGrayscale, false),
		RaysPerSide:          params.Int(ParamRaysPerSide, defaults.DefaultRaysPerSide),
		RayMaxDegrees:        params.Int(ParamRayMaxDegrees, defaults.DefaultRayMaxDegrees),
		UseRayCasts:          params.Bool(ParamUseRayCasts, false),
		ReceiveConfiguration: params.Has(ParamReceiveConfiguration),
	}
	if editor.Enabled {
		r.NumberOfArenas = editor.NumberOfArenas
		r.PlayerMode = editor.PlayerMode
		r.Resolution = editor.Resolution
		r.Grayscale = editor.Grayscale
	}

	if r.NumberOfArenas < 1 {
		return Resolved{}, fmt.Errorf("%w: got %d", ErrInvalidArenaCount, r.NumberOfArenas)
	}
	if r.PlayerMode {
		r.NumberOfArenas = 1
	}
	r.Resolution = ClampResolution(r.Resolution, defaults)
	if r.RaysPerSide < 0 || r.RayMaxDegrees < 0 {
		return Resolved{}, fmt.Errorf("%w: ray settings must be non-negative", ErrMalformedParameter)
	}
	return r, nil
}

// ClampResolution bounds r to the configured resolution range.
func ClampResolution(r int, d Defaults) int {
	return int(mgl64.Clamp(float64(r), float64(d.MinimumResolution), float64(d.MaximumResolution)))
}
