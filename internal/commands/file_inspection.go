package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

const (
	errorOpenFileFormat   = "open %s: %w"
	errorReadFileFormat   = "read %s: %w"
	errorDecodeFileFormat = "'utf-8' codec can't decode %s: %w"
)

// readTextFile reads the whole file at path and decodes it as strict UTF-8.
// Any open, read or decode failure is returned without partial content.
//
// #nosec G304
func readTextFile(path string, relativePath string) (string, error) {
	fileHandle, openError := os.Open(path)
	if openError != nil {
		return "", fmt.Errorf(errorOpenFileFormat, relativePath, unwrapPathError(openError))
	}
	defer fileHandle.Close()

	decodingReader := transform.NewReader(fileHandle, encoding.UTF8Validator)
	decoded, readError := io.ReadAll(decodingReader)
	if readError != nil {
		var pathError *fs.PathError
		if errors.As(readError, &pathError) {
			return "", fmt.Errorf(errorReadFileFormat, relativePath, pathError.Err)
		}
		return "", fmt.Errorf(errorDecodeFileFormat, relativePath, readError)
	}
	return string(decoded), nil
}

// unwrapPathError drops the temporary clone path from filesystem errors so
// that notices only mention the path relative to the repository.
func unwrapPathError(err error) error {
	var pathError *fs.PathError
	if errors.As(err, &pathError) {
		return pathError.Err
	}
	return err
}
