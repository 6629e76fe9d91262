// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"strings"

	"github.com/spf13/afero"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns their full paths in lexical order.
// A root that is itself a matching file is returned as is.
func FindFilesByExtension(fsys afero.Fs, rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := afero.Walk(fsys, rootPath, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Dirs returns rootPath and every directory below it, skipping hidden ones
// such as .git.
func Dirs(fsys afero.Fs, rootPath string) ([]string, error) {
	var dirs []string
	err := afero.Walk(fsys, rootPath, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != rootPath && strings.HasPrefix(info.Name(), ".") {
			return fs.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}
