package models

import (
	"fmt"
	"sort"
	"strings"
)

// Regions maps a region code to the bookmakers licensed there
type Regions map[string][]string

// Allowed returns the canonical bookmakers of region
func (r Regions) Allowed(region string) ([]string, error) {
	code := strings.ToLower(strings.TrimSpace(region))
	books, ok := r[code]
	if !ok {
		return nil, NewError(KindInvalidInput,
			fmt.Sprintf("unknown region %q, supported: %s", region, strings.Join(r.codes(), ", ")), nil)
	}
	return CanonicalBookmakers(books), nil
}

// Filter resolves the bookmakers to query in region. An empty request means
// every bookmaker allowed there; otherwise each requested bookmaker must be
// allowed. An empty region leaves requested unchanged.
func (r Regions) Filter(region string, requested []string) ([]string, error) {
	if strings.TrimSpace(region) == "" {
		return requested, nil
	}
	allowed, err := r.Allowed(region)
	if err != nil {
		return nil, err
	}
	books := CanonicalBookmakers(requested)
	if len(books) == 0 {
		return allowed, nil
	}

	permitted := make(map[string]bool, len(allowed))
	for _, b := range allowed {
		permitted[b] = true
	}
	var denied []string
	for _, b := range books {
		if !permitted[b] {
			denied = append(denied, b)
		}
	}
	if len(denied) > 0 {
		return nil, NewError(KindInvalidInput,
			fmt.Sprintf("bookmakers not available in region %q: %s", region, strings.Join(denied, ", ")), nil)
	}
	return books, nil
}

func (r Regions) codes() []string {
	out := make([]string, 0, len(r))
	for code := range r {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
