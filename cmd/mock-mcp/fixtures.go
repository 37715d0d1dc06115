package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFile maps URLs to page files inside the fixture directory.
const ManifestFile = "pages.yaml"

// manifest is the schema of ManifestFile.
//
//	pages:
//	  - url: https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&CIK=0001318605&type=10-K
//	    file: browse_tsla_10k.html
type manifest struct {
	Pages []struct {
		URL  string `yaml:"url"`
		File string `yaml:"file"`
	} `yaml:"pages"`
}

// pageExtensions are the files served from a host-mirrored tree.
var pageExtensions = map[string]bool{".htm": true, ".html": true, ".txt": true, ".xml": true}

// fixtureSet maps normalized page URLs to their content.
type fixtureSet map[string]string

// loadFixtures reads pages from dir. Pages come from two places:
//  1. entries in pages.yaml, for URLs with query strings
//  2. files under a directory named after a host, e.g.
//     www.sec.gov/Archives/edgar/data/1318605/x-index.htm serves
//     https://www.sec.gov/Archives/edgar/data/1318605/x-index.htm
//
// Manifest entries win over mirrored files for the same URL.
func loadFixtures(dir string) (fixtureSet, error) {
	pages := make(fixtureSet)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !pageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		parts := strings.SplitN(filepath.ToSlash(rel), "/", 2)
		if len(parts) != 2 || !strings.Contains(parts[0], ".") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		pages[fixtureKey("https://"+parts[0]+"/"+parts[1])] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	manifestPath := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(manifestPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", manifestPath, err)
	default:
		var m manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse %s: %w", manifestPath, err)
		}
		for i, p := range m.Pages {
			if p.URL == "" || p.File == "" {
				return nil, fmt.Errorf("%s: page %d needs url and file", manifestPath, i)
			}
			if filepath.IsAbs(p.File) || strings.Contains(filepath.ToSlash(p.File), "..") {
				return nil, fmt.Errorf("%s: page %d file %q must stay inside the fixture directory", manifestPath, i, p.File)
			}
			content, err := os.ReadFile(filepath.Join(dir, p.File))
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", p.File, err)
			}
			pages[fixtureKey(p.URL)] = string(content)
		}
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no fixture pages found in %s", dir)
	}
	return pages, nil
}

// fixtureKey normalizes a URL for lookup: scheme and host are lowercased,
// query parameters are sorted and the fragment is dropped.
func fixtureKey(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = u.Query().Encode()
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
