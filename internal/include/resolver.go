// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package include expands {filename} references in user input into the
// referenced file's contents before a message is sent.
package include

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/opusagent/internal/util"
)

// maxIncludeSize caps inlined files at 2MB.
const maxIncludeSize = 2 * 1024 * 1024

// referencePattern matches {filename} spans in user input.
var referencePattern = regexp.MustCompile(`\{([^}]+)\}`)

// supportedExtensions is the allow-list of text formats eligible for
// inclusion. Anything else gets a warning marker instead of content.
var supportedExtensions = map[string]bool{
	// Programming languages
	".py": true, ".r": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".java": true, ".c": true, ".cpp": true, ".cc": true, ".cxx": true,
	".h": true, ".hpp": true, ".cs": true, ".php": true, ".rb": true, ".go": true,
	".rs": true, ".swift": true, ".kt": true, ".scala": true,
	".clj": true, ".hs": true, ".ml": true, ".fs": true, ".vb": true,
	".pl": true, ".pm": true, ".sh": true, ".bash": true, ".zsh": true, ".fish": true,
	".ps1": true, ".bat": true, ".cmd": true, ".sql": true,
	".html": true, ".htm": true, ".css": true, ".scss": true, ".sass": true, ".less": true,
	".xml": true, ".xsl": true, ".xslt": true, ".json": true, ".yaml": true, ".yml": true,
	".toml": true, ".ini": true, ".cfg": true, ".conf": true,
	".properties": true, ".env": true, ".dockerfile": true, ".docker": true,
	".makefile": true, ".cmake": true, ".gradle": true,
	".sbt": true, ".pom": true, ".lock": true, ".mod": true, ".sum": true,

	// Data and markup
	".md": true, ".markdown": true, ".rst": true, ".tex": true, ".latex": true,
	".csv": true, ".tsv": true, ".jsonl": true, ".ndjson": true,
	".svg": true, ".rss": true, ".atom": true, ".plist": true,

	// Configuration and infrastructure
	".tf": true, ".tfvars": true, ".hcl": true, ".nomad": true, ".consul": true,
	".vault": true, ".k8s": true, ".kubectl": true,
	".helm": true, ".kustomize": true, ".ansible": true, ".inventory": true, ".playbook": true,

	// Documentation and text
	".txt": true, ".log": true, ".out": true, ".err": true, ".trace": true,
	".debug": true, ".info": true, ".warn": true, ".error": true,
	".readme": true, ".license": true, ".changelog": true,
	".authors": true, ".contributors": true, ".todo": true,

	// Notebooks and scripts
	".ipynb": true, ".rmd": true, ".qmd": true, ".jl": true, ".m": true, ".octave": true,

	// Web and API
	".graphql": true, ".gql": true, ".rest": true, ".http": true, ".api": true,
	".postman": true, ".insomnia": true,

	// Other useful formats
	".editorconfig": true, ".gitignore": true, ".gitattributes": true,
	".dockerignore": true, ".eslintrc": true,
	".prettierrc": true, ".babelrc": true, ".webpack": true, ".rollup": true,
	".vite": true, ".parcel": true,
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver expands file references for one agent. Search paths cover the
// working directory, a set of conventional project subdirectories and the
// agent's uploads directory.
type Resolver struct {
	searchPaths []string
	logger      zerolog.Logger
}

// NewResolver builds a resolver rooted at the working directory, with the
// agent's uploads dir (under baseDir) appended to the search order.
func NewResolver(baseDir string, logger zerolog.Logger) *Resolver {
	return &Resolver{
		searchPaths: []string{
			".",
			"src",
			"lib",
			"scripts",
			"data",
			"documents",
			"files",
			"config",
			"configs",
			filepath.Join(baseDir, "uploads"),
		},
		logger: logger,
	}
}

// Expand replaces every {filename} span in content with the file's text,
// prefixed by a comment header. Failures are reported inline as markers
// so the message still goes through.
func (r *Resolver) Expand(content string) string {
	return referencePattern.ReplaceAllStringFunc(content, func(match string) string {
		filename := strings.TrimSpace(referencePattern.FindStringSubmatch(match)[1])
		return r.resolve(filename)
	})
}

func (r *Resolver) resolve(filename string) string {
	for _, searchPath := range r.searchPaths {
		path := filepath.Join(searchPath, filename)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !IsSupported(path) {
			r.logger.Warn().Str("file", filename).Msg("unsupported file type")
			return fmt.Sprintf("[WARNING: Unsupported file type %s]", filename)
		}

		if info.Size() > maxIncludeSize {
			r.logger.Error().Str("file", filename).Int64("size", info.Size()).Msg("file too large to include")
			return fmt.Sprintf("[ERROR: File %s too large (max 2MB)]", filename)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			r.logger.Error().Err(err).Str("file", filename).Msg("error reading file")
			return fmt.Sprintf("[ERROR: Could not read %s: %v]", filename, err)
		}

		r.logger.Info().
			Str("file", filename).
			Int("chars", len(data)).
			Str("type", ext).
			Msg("included file")
		return fileHeader(filename, ext) + string(data)
	}

	r.logger.Warn().Str("file", filename).Msg("file not found")
	return fmt.Sprintf("[ERROR: File %s not found]", filename)
}

// IsSupported reports whether the file's extension is on the inclusion
// allow-list.
func IsSupported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// fileHeader picks a comment syntax matching the file type so the model
// sees where the inlined content came from.
func fileHeader(filename, ext string) string {
	switch ext {
	case ".py", ".r":
		return fmt.Sprintf("# File: %s (%s)\n", filename, ext)
	case ".html", ".xml":
		return fmt.Sprintf("<!-- File: %s (%s) -->\n", filename, ext)
	case ".css", ".scss", ".sass":
		return fmt.Sprintf("/* File: %s (%s) */\n", filename, ext)
	case ".sql":
		return fmt.Sprintf("-- File: %s (%s)\n", filename, ext)
	default:
		return fmt.Sprintf("// File: %s (%s)\n", filename, ext)
	}
}

// =============================================================================
// LISTING
// =============================================================================

// ListAvailable walks every search path and returns a sorted listing of
// includable files with their sizes and types.
func (r *Resolver) ListAvailable() []string {
	var files []string
	for _, searchPath := range r.searchPaths {
		if _, err := os.Stat(searchPath); err != nil {
			continue
		}

		filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			if strings.HasPrefix(info.Name(), ".") || !IsSupported(path) {
				return nil
			}
			files = append(files, fmt.Sprintf("%s (%s) [%s]",
				path, util.FormatFileSize(info.Size()), strings.ToLower(filepath.Ext(path))))
			return nil
		})
	}

	sort.Strings(files)
	return files
}
