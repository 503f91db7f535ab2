package catalog

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/frederic-klein/eapkg/internal/pkginfo"
)

var phpExtPrefix = regexp.MustCompile(`(?i)^ea-php\d{2}-`)

// Extensions that never carry over between PHP versions: only one version can
// own the DSO module at a time.
var extensionExcludes = []string{"php", "scldevel"}

// PHPVersions returns the selected PHP version packages (ea-phpNN), sorted.
func PHPVersions(c pkginfo.Catalog, selected []string) []string {
	var out []string
	for _, name := range selected {
		if _, ok := c.Lookup(name); ok && KindPHP.Matches(name) && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ExtensionsOf returns the names in selected that are extensions of
// phpVersion, in their original order. It returns nil when phpVersion is not
// a PHP version package.
func ExtensionsOf(phpVersion string, selected []string) []string {
	if !KindPHP.Matches(phpVersion) {
		return nil
	}
	prefix := strings.ToLower(phpVersion) + "-"
	var out []string
	for _, name := range selected {
		if strings.HasPrefix(strings.ToLower(name), prefix) && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// CommonExtensions returns the extension suffixes ("php-curl", "pear", ...)
// selected for every selected PHP version. The order follows the first
// version's extensions.
func CommonExtensions(c pkginfo.Catalog, selected []string) []string {
	versions := PHPVersions(c, selected)
	if len(versions) == 0 {
		return nil
	}

	var common []string
	for i, version := range versions {
		var exts []string
		for _, name := range selected {
			if strings.HasPrefix(name, version+"-") {
				exts = append(exts, phpExtPrefix.ReplaceAllString(name, ""))
			}
		}
		if i == 0 {
			common = exts
			continue
		}
		common = slices.DeleteFunc(common, func(ext string) bool {
			return !slices.Contains(exts, ext)
		})
	}

	return slices.DeleteFunc(common, func(ext string) bool {
		return slices.Contains(extensionExcludes, ext)
	})
}

// ExtensionCandidates maps extension suffixes onto phpVersion and keeps the
// packages that exist in the catalog and are not in skip.
func ExtensionCandidates(c pkginfo.Catalog, phpVersion string, exts, skip []string) []string {
	var out []string
	for _, ext := range exts {
		name := phpVersion + "-" + ext
		if _, ok := c.Lookup(name); !ok || slices.Contains(skip, name) || slices.Contains(out, name) {
			continue
		}
		out = append(out, name)
	}
	return out
}
