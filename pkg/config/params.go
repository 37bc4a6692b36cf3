package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Parameter names recognised on the command line.
const (
	ParamPlayerMode           = "playerMode"
	ParamReceiveConfiguration = "receiveConfiguration"
	ParamNumberOfArenas       = "numberOfArenas"
	ParamResolution           = "resolution"
	ParamGrayscale            = "grayscale"
	ParamUseRayCasts          = "useRayCasts"
	ParamRaysPerSide          = "rays_per_side"
	ParamRayMaxDegrees        = "ray_max_degrees"
)

var (
	ErrMalformedParameter = errors.New("malformed parameter")
	ErrDuplicateParameter = errors.New("duplicate parameter")
)

// Parameters holds the recognised arguments actually present.
type Parameters map[string]int

// Has reports whether name was supplied.
func (p Parameters) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Int returns the value for name, or fallback when absent.
func (p Parameters) Int(name string, fallback int) int {
	if v, ok := p[name]; ok {
		return v
	}
	return fallback
}

// Bool treats any non-zero value as true.
func (p Parameters) Bool(name string, fallback bool) bool {
	if v, ok := p[name]; ok {
		return v != 0
	}
	return fallback
}

type paramDef struct {
	// value when the flag is given bare
	bare func(Defaults) int
	// takesValue is false for pure switches
	takesValue bool
}

func constant(v int) func(Defaults) int {
	return func(Defaults) int { return v }
}

var recognised = map[string]paramDef{
	ParamPlayerMode:           {bare: constant(1), takesValue: true},
	ParamReceiveConfiguration: {bare: constant(0), takesValue: false},
	ParamNumberOfArenas:       {bare: constant(1), takesValue: true},
	ParamResolution:           {bare: func(d Defaults) int { return d.DefaultResolution }, takesValue: true},
	ParamGrayscale:            {bare: constant(1), takesValue: false},
	ParamUseRayCasts:          {bare: constant(1), takesValue: false},
	ParamRaysPerSide:          {bare: func(d Defaults) int { return d.DefaultRaysPerSide }, takesValue: true},
	ParamRayMaxDegrees:        {bare: func(d Defaults) int { return d.DefaultRayMaxDegrees }, takesValue: true},
}

// RetrieveEnvironmentParameters scans raw process arguments. A recognised
// flag takes the following token as its value unless that token is another
// flag. Unrecognised tokens are skipped.
func RetrieveEnvironmentParameters(args []string, defaults Defaults) (Parameters, error) {
	params := make(Parameters)
	for i := 0; i < len(args); i++ {
		name, ok := strings.CutPrefix(args[i], "--")
		if !ok {
			continue
		}
		def, ok := recognised[name]
		if !ok {
			continue
		}
		if params.Has(name) {
			return nil, fmt.Errorf("%w: --%s", ErrDuplicateParameter, name)
		}

		value := def.bare(defaults)
		if def.takesValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			n, err := strconv.Atoi(args[i+1])
			if err != nil {
				return nil, fmt.Errorf("%w: --%s %q", ErrMalformedParameter, name, args[i+1])
			}
			value = n
			i++
		}
		params[name] = value
	}
	return params, nil
}
