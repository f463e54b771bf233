package utils

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// MakeValidateFileName drops dirs from the file name, replaces spaces
// and lowercases the extension. Prefixes the result with ID if provided
func MakeValidateFileName(ID string, fileName string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	ext := filepath.Ext(base)
	name := strings.TrimSpace(strings.TrimSuffix(base, ext))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", errors.Errorf("wrong file name '%s'", fileName)
	}
	res := strings.ReplaceAll(name, " ", "_") + strings.ToLower(ext)
	if ID == "" {
		return res, nil
	}
	return ID + "/" + res, nil
}

// TrimExt removes the extension from the file name
func TrimExt(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}
