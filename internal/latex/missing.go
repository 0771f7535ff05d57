package latex

import (
	"regexp"
	"slices"
)

var (
	missingStylePattern = regexp.MustCompile("File `([^'`]+)\\.sty' not found")
	packageNamePattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// DetectMissingPackages extracts the names of style files a compile log
// reports as absent. Names that could escape the build directory are dropped.
func DetectMissingPackages(log string) []string {
	var names []string
	for _, match := range missingStylePattern.FindAllStringSubmatch(log, -1) {
		name := match[1]
		if !packageNamePattern.MatchString(name) || slices.Contains(names, name) {
			continue
		}
		names = append(names, name)
	}
	return names
}
