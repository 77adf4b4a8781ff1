// Package mip reads the micropython-lib package index.
package mip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a whole index fetch.
const DefaultTimeout = 30 * time.Second

// Package is one entry of the index.
type Package struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

type index struct {
	Packages []Package `json:"packages"`
}

// FetchIndex downloads and decodes the index at url. A nil client uses
// one with DefaultTimeout.
func FetchIndex(ctx context.Context, client *http.Client, url string) ([]Package, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: http %d", url, resp.StatusCode)
	}

	var idx index
	if err := json.NewDecoder(resp.Body).Decode(&idx); err != nil {
		return nil, fmt.Errorf("fetch %s: invalid index: %w", url, err)
	}
	return idx.Packages, nil
}

// WriteTable writes one aligned line per package: name, version and
// description. Packages without a description print just the version.
func WriteTable(w io.Writer, pkgs []Package) error {
	nameW, versionW := 0, 0
	for _, p := range pkgs {
		nameW = max(nameW, len([]rune(p.Name)))
		versionW = max(versionW, len([]rune(p.Version)))
	}

	for _, p := range pkgs {
		var err error
		if p.Description != "" {
			_, err = fmt.Fprintf(w, "%-*s %-*s %s\n", nameW, p.Name, versionW, p.Version, p.Description)
		} else {
			_, err = fmt.Fprintf(w, "%-*s %s\n", nameW, p.Name, p.Version)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
