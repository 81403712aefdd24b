package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// OutputSuffix names compiled catalogs next to or instead of their sources
const OutputSuffix = ".catalog.json"

// isDescription reports whether path looks like an OpenAPI description and
// not like compiler output
func isDescription(path string) bool {
	if strings.HasSuffix(path, OutputSuffix) {
		return false
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// outputPath returns where the catalog of source is written inside dir
func outputPath(dir, source string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+OutputSuffix)
}

// collectDescriptions expands args into description files. Directories are
// walked; plain files are taken as given.
func collectDescriptions(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && isDescription(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to find descriptions in %s: %w", arg, err)
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no descriptions found in %s", strings.Join(args, ", "))
	}
	return files, nil
}
