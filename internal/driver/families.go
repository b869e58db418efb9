package driver

import (
	"slices"

	"github.com/roach88/thecl/internal/backend"
	"github.com/roach88/thecl/internal/th06"
	"github.com/roach88/thecl/internal/th10"
)

// Family is a group of format versions that share one backend module.
type Family struct {
	Name     string
	Versions []uint
	New      func() backend.Module
}

var families = []Family{
	{Name: th06.Name, Versions: th06.Versions, New: func() backend.Module { return th06.New() }},
	{Name: th10.Name, Versions: th10.Versions, New: func() backend.Module { return th10.New() }},
}

// Families returns the supported families in order.
func Families() []Family {
	return slices.Clone(families)
}

// SupportedVersions returns every supported version number in family order.
func SupportedVersions() []uint {
	var out []uint
	for _, f := range families {
		out = append(out, f.Versions...)
	}
	return out
}

// Resolve returns the backend module for version.
func Resolve(version uint) (backend.Module, error) {
	if version == 0 {
		return nil, NewVersionRequiredError()
	}
	for _, f := range families {
		if slices.Contains(f.Versions, version) {
			return f.New(), nil
		}
	}
	return nil, NewVersionUnsupportedError(version)
}
