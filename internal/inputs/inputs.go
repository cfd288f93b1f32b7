// Package inputs scans the input directory for prefix (project) and suffix
// (role) files and parses them into per-batch name sets.
package inputs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	PrefixFileSuffix = "-vault-prefixes.txt"
	SuffixFileSuffix = "-vault-suffixes.txt"

	MaxFileSizeBytes   = 512 * 1024
	MaxProjectsPerFile = 50
	MaxRolesPerFile    = 100
)

var (
	projectPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9:\s._-]{0,62}$`)
	rolePattern    = regexp.MustCompile(`^[A-Za-z][A-Za-z:\s_-]{0,62}$`)
)

// Kind distinguishes prefix files from suffix files.
type Kind string

const (
	KindPrefixes Kind = "prefixes"
	KindSuffixes Kind = "suffixes"
)

type kindRules struct {
	fileSuffix string
	label      string
	maxItems   int
	validate   func(string) string
}

var rules = map[Kind]kindRules{
	KindPrefixes: {
		fileSuffix: PrefixFileSuffix,
		label:      "prefix",
		maxItems:   MaxProjectsPerFile,
		validate: func(s string) string {
			if projectPattern.MatchString(s) {
				return ""
			}
			return "Invalid project prefix (allowed: letters, digits, '.', '-', '_', ':' and spaces; 1-63 chars; must start alphanumeric)"
		},
	},
	KindSuffixes: {
		fileSuffix: SuffixFileSuffix,
		label:      "suffix",
		maxItems:   MaxRolesPerFile,
		validate: func(s string) string {
			if rolePattern.MatchString(s) {
				return ""
			}
			return "Invalid role suffix (allowed: letters, '-', '_', ':' and spaces; 1-63 chars; must start with a letter)"
		},
	},
}

// FileResult is the parse outcome of one input file.
type FileResult struct {
	Kind      Kind
	BatchName string
	Path      string
	Items     []string
	Warnings  []string
	Errors    []string
}

// ScanResult is everything found in the input directory.
type ScanResult struct {
	PrefixFiles []FileResult
	SuffixFiles []FileResult
	// FatalErrors is non-empty when nothing usable was found at all.
	FatalErrors []string
}

// Scan finds and parses every prefix and suffix file directly under dir.
func Scan(dir string) ScanResult {
	var scan ScanResult

	prefixPaths := findFiles(dir, PrefixFileSuffix)
	suffixPaths := findFiles(dir, SuffixFileSuffix)
	if len(prefixPaths) == 0 && len(suffixPaths) == 0 {
		scan.FatalErrors = append(scan.FatalErrors, fmt.Sprintf(
			"No files found matching '*%s' or '*%s' in %s", PrefixFileSuffix, SuffixFileSuffix, displayDir(dir)))
		return scan
	}

	for _, p := range prefixPaths {
		scan.PrefixFiles = append(scan.PrefixFiles, ParseFile(p, KindPrefixes))
	}
	for _, p := range suffixPaths {
		scan.SuffixFiles = append(scan.SuffixFiles, ParseFile(p, KindSuffixes))
	}
	return scan
}

func findFiles(dir, suffix string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), suffix) && len(e.Name()) > len(suffix) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}

func displayDir(dir string) string {
	dir = filepath.ToSlash(filepath.Clean(dir))
	if !filepath.IsAbs(dir) && !strings.HasPrefix(dir, ".") {
		dir = "./" + dir
	}
	return dir + "/"
}

// BatchName strips the kind's file suffix from the base name of path.
func BatchName(path string, kind Kind) string {
	name := filepath.Base(path)
	if trimmed, ok := strings.CutSuffix(name, rules[kind].fileSuffix); ok {
		return trimmed
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ParseFile reads and parses one input file. Read failures are reported in
// the result's Errors rather than returned.
func ParseFile(path string, kind Kind) FileResult {
	res := FileResult{Kind: kind, BatchName: BatchName(path, kind), Path: path}

	f, err := os.Open(path)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to read: %v", err))
		return res
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to read: %v", err))
		return res
	}
	if info.Size() > MaxFileSizeBytes {
		res.Errors = append(res.Errors, fmt.Sprintf("Failed to read: File too large (%d bytes): %s", info.Size(), path))
		return res
	}

	res.Items, res.Warnings, res.Errors = ParseLines(f, kind)
	return res
}

// ParseLines applies the line rules: blank and '#' lines are ignored, every
// other line must match the kind's pattern, repeats are warned about and
// dropped, and exceeding the per-file limit discards the whole file.
func ParseLines(r io.Reader, kind Kind) (items, warnings, errs []string) {
	rule := rules[kind]
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxFileSizeBytes+1)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if msg := rule.validate(text); msg != "" {
			errs = append(errs, fmt.Sprintf("Line %d: %s -> '%s'", lineNo, msg, text))
			continue
		}

		if _, dup := seen[text]; dup {
			warnings = append(warnings, fmt.Sprintf("Line %d: duplicate %s ignored -> '%s'", lineNo, rule.label, text))
			continue
		}
		seen[text] = struct{}{}
		items = append(items, text)

		if len(items) > rule.maxItems {
			errs = append(errs, fmt.Sprintf("Too many %ss (> %d); aborting parse.", rule.label, rule.maxItems))
			items = nil
			break
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Sprintf("Failed to read: %v", err))
		items = nil
	}

	if len(items) == 0 && len(errs) == 0 {
		warnings = append(warnings, fmt.Sprintf("File contained no usable %ss (only comments/blank lines).", rule.label))
	}
	return items, warnings, errs
}

// Files returns prefix files followed by suffix files.
func (s ScanResult) Files() []FileResult {
	out := make([]FileResult, 0, len(s.PrefixFiles)+len(s.SuffixFiles))
	out = append(out, s.PrefixFiles...)
	return append(out, s.SuffixFiles...)
}

// InputFiles returns the base names of every scanned file.
func (s ScanResult) InputFiles() []string {
	files := s.Files()
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, filepath.Base(f.Path))
	}
	return out
}

// Projects merges prefix files by batch name into sorted unique project lists.
func (s ScanResult) Projects() map[string][]string {
	return collect(s.PrefixFiles)
}

// Roles merges suffix files by batch name into sorted unique role lists.
func (s ScanResult) Roles() map[string][]string {
	return collect(s.SuffixFiles)
}

func collect(files []FileResult) map[string][]string {
	buckets := make(map[string]map[string]struct{})
	for _, f := range files {
		if len(f.Items) == 0 {
			continue
		}
		b, ok := buckets[f.BatchName]
		if !ok {
			b = make(map[string]struct{})
			buckets[f.BatchName] = b
		}
		for _, item := range f.Items {
			b[item] = struct{}{}
		}
	}

	out := make(map[string][]string, len(buckets))
	for name, set := range buckets {
		list := make([]string, 0, len(set))
		for item := range set {
			list = append(list, item)
		}
		sort.Strings(list)
		out[name] = list
	}
	return out
}

// Summary renders the scan for humans.
func (s ScanResult) Summary() string {
	var lines []string
	if len(s.FatalErrors) > 0 {
		lines = append(lines, "FATAL:")
		for _, e := range s.FatalErrors {
			lines = append(lines, "  - "+e)
		}
	}

	section := func(title, noun string, files []FileResult) {
		if len(files) == 0 {
			return
		}
		lines = append(lines, title)
		for _, f := range files {
			lines = append(lines, fmt.Sprintf("  [%s] %d %s(es) from %s", f.BatchName, len(f.Items), noun, filepath.Base(f.Path)))
			if len(f.Warnings) > 0 {
				lines = append(lines, "    Warnings:")
				for _, w := range f.Warnings {
					lines = append(lines, "      - "+w)
				}
			}
			if len(f.Errors) > 0 {
				lines = append(lines, "    Errors:")
				for _, e := range f.Errors {
					lines = append(lines, "      - "+e)
				}
			}
		}
	}
	section("PREFIX FILES:", "project-prefix", s.PrefixFiles)
	section("SUFFIX FILES:", "role-suffix", s.SuffixFiles)

	if len(lines) == 0 {
		return "No input issues detected."
	}
	return strings.Join(lines, "\n")
}
