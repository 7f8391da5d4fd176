// Package regfile parses registry-modification files and enforces the
// offline-hive alias contract.
//
// Registry edits destined for an offline image cannot reference the live
// HKLM\SOFTWARE or HKLM\SYSTEM trees. Instead the file's author writes keys
// under three reserved alias roots, and the registry phase loads the image's
// hive files at those aliases before importing. A file referencing anything
// outside the aliases would silently edit the technician machine, so such
// files are rejected before any hive is loaded.
package regfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// The three reserved hive aliases. The registry phase binds them, in this
// order, to the mounted image's SOFTWARE hive, SYSTEM hive, and default-user
// profile hive.
const (
	AliasSoftware = "OFFLINE_SOFTWARE"
	AliasSystem   = "OFFLINE_SYSTEM"
	AliasDefault  = "OFFLINE_DEFAULT"
)

const hiveRoot = "HKEY_LOCAL_MACHINE"

// Aliases returns the reserved alias names in load order.
func Aliases() []string {
	return []string{AliasSoftware, AliasSystem, AliasDefault}
}

// ErrUnknownAlias marks keys that escape the reserved alias roots.
var ErrUnknownAlias = errors.New("registry file references a key outside the offline hive aliases")

// ErrBadHeader marks files that do not start with a registry-editor header.
var ErrBadHeader = errors.New("registry file has no registry-editor header")

// File is a parsed registry-modification file.
type File struct {
	// Keys holds every key path referenced by the file, deletion markers
	// stripped, in file order.
	Keys []string
}

// Load reads, decodes and parses the registry file at path.
//
// Real-world .reg files exported by the registry editor are UTF-16LE with a
// byte-order mark; hand-written ones are usually plain text. Both are
// accepted.
func Load(path string) (*File, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	text, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode registry file %s: %w", path, err)
	}

	f, err := Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid registry file %s: %w", path, err)
	}
	return f, nil
}

// decode converts raw file bytes to a string, honoring a UTF-16 BOM.
func decode(data []byte) (string, error) {
	if len(data) >= 2 && (bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF})) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	// Plain text, possibly with a UTF-8 BOM.
	return string(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})), nil
}

// Parse extracts the referenced key paths from registry-editor text.
func Parse(text string) (*File, error) {
	f := &File{}
	scanner := bufio.NewScanner(strings.NewReader(text))
	sawHeader := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		if !sawHeader {
			if line != "Windows Registry Editor Version 5.00" && line != "REGEDIT4" {
				return nil, ErrBadHeader
			}
			sawHeader = true
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			key := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			// A leading '-' deletes the key; the alias rules apply the same.
			key = strings.TrimPrefix(key, "-")
			f.Keys = append(f.Keys, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, ErrBadHeader
	}

	return f, nil
}

// ValidateAliases checks that every referenced key is rooted at one of the
// reserved aliases under HKEY_LOCAL_MACHINE.
func (f *File) ValidateAliases() error {
	for _, key := range f.Keys {
		if !keyInAliases(key) {
			return fmt.Errorf("%w: %s", ErrUnknownAlias, key)
		}
	}
	return nil
}

func keyInAliases(key string) bool {
	for _, alias := range Aliases() {
		root := hiveRoot + `\` + alias
		if strings.EqualFold(key, root) || hasFoldPrefix(key, root+`\`) {
			return true
		}
	}
	return false
}

func hasFoldPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
