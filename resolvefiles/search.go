// Package resolvefiles implements the kld CLI's -L/-l library search
// (spec.md §6), one of the external collaborators spec.md §3
// describes by interface only: it yields a list of object paths and
// archive paths for the core pipeline to read.
package resolvefiles

import (
	"os"
	"path/filepath"
)

// Files is the resolved set of inputs to link: object file paths and
// archive paths, plus the positional paths passed through unchanged.
type Files struct {
	Objects  []string
	Archives []string
}

// Resolve expands positional paths and -l library names against the
// search paths in dirs, in the order spec.md §6 describes:
//   - a path ending in .o is an object, a path ending in .rlib an archive
//   - -L directories that don't exist are silently dropped from the search
//   - -l<name> searches each directory in order for lib<name>.o, then
//     lib<name>.rlib; if both exist in the same directory, the archive
//     wins
func Resolve(positional []string, libs []string, dirs []string) Files {
	var existing []string
	for _, d := range dirs {
		if fi, err := os.Stat(d); err == nil && fi.IsDir() {
			existing = append(existing, d)
		}
	}

	var f Files
	for _, p := range positional {
		switch filepath.Ext(p) {
		case ".o":
			f.Objects = append(f.Objects, p)
		case ".rlib":
			f.Archives = append(f.Archives, p)
		}
	}

	for _, name := range libs {
		objName := "lib" + name + ".o"
		archName := "lib" + name + ".rlib"

		var obj, arch string
		for _, dir := range existing {
			candidateObj := filepath.Join(dir, objName)
			candidateArch := filepath.Join(dir, archName)
			if fileExists(candidateObj) {
				obj = candidateObj
			}
			if fileExists(candidateArch) {
				arch = candidateArch
			}
			if obj != "" || arch != "" {
				break
			}
		}

		switch {
		case arch != "":
			f.Archives = append(f.Archives, arch)
		case obj != "":
			f.Objects = append(f.Objects, obj)
		}
	}

	return f
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
