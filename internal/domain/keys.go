package domain

import (
	"sort"
	"strings"
)

// VariableKeyMap holds the true variable names for the coordinates and the
// target variable inside one dataset. All granules of a run share a schema,
// so the map is resolved once from the first granule.
type VariableKeyMap struct {
	Lon   string `json:"lon"`
	Lat   string `json:"lat"`
	Value string `json:"value"`
}

// ResolveKeys picks the longitude, latitude and target variable names out of
// a dataset's variable namespace.
//
// For each category an exact name match ("lon", "lat", the product field such
// as "chlor_a") wins. Otherwise the first name in sorted order containing the
// category fragment ("lon", "lat", "chl") is used, so the result does not
// depend on the order the server lists variables in.
func ResolveKeys(names []string, product VariableProduct) (VariableKeyMap, error) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	var keys VariableKeyMap
	for _, c := range []struct {
		exact, fragment string
		dst             *string
	}{
		{"lon", "lon", &keys.Lon},
		{"lat", "lat", &keys.Lat},
		{product.Field, product.KeyFragment, &keys.Value},
	} {
		name, ok := matchKey(sorted, c.exact, c.fragment)
		if !ok {
			return VariableKeyMap{}, &KeyError{Category: c.fragment, Names: sorted}
		}
		*c.dst = name
	}
	return keys, nil
}

func matchKey(sorted []string, exact, fragment string) (string, bool) {
	if exact != "" {
		for _, name := range sorted {
			if name == exact {
				return name, true
			}
		}
	}
	if fragment == "" {
		return "", false
	}
	for _, name := range sorted {
		if strings.Contains(name, fragment) {
			return name, true
		}
	}
	return "", false
}
