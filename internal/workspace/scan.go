package workspace

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// metadataHeadLimit bounds how much of a module file the scanner reads
// looking for the metadata docblock.
const metadataHeadLimit = 16 * 1024

// idRe is the rule for module ids, which double as Go-for-JS class
// names on the projector side.
var idRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

var (
	nameTagRe     = regexp.MustCompile(`@vjdeck\s+name:\s*(.+)`)
	categoryTagRe = regexp.MustCompile(`@vjdeck\s+category:\s*(.+)`)
)

// Summary describes one module file found by a scan.
type Summary struct {
	File        string `json:"file"`
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Category    string `json:"category,omitempty"`
	HasMetadata bool   `json:"hasMetadata"`
}

// Skipped describes a file the scan refused, with the reason shown to
// the user.
type Skipped struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// ScanResult is one full pass over the modules directory.
type ScanResult struct {
	Summaries []Summary `json:"summaries"`
	Skipped   []Skipped `json:"skipped"`
}

// ValidModuleID reports whether a string can serve as a module id.
func ValidModuleID(id string) bool { return idRe.MatchString(id) }

// ScanModules lists the .js files of a modules directory. The id is
// the base filename; invalid ids are skipped rather than mangled so
// the user sees exactly which files were ignored and why.
func ScanModules(dir string) (ScanResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ScanResult{}, err
	}
	var res ScanResult
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		file := e.Name()
		if strings.HasPrefix(file, ".") {
			continue
		}
		if !strings.HasSuffix(file, ".js") {
			res.Skipped = append(res.Skipped, Skipped{File: file, Reason: "not a .js file"})
			continue
		}
		id := strings.TrimSuffix(file, ".js")
		if !ValidModuleID(id) {
			res.Skipped = append(res.Skipped, Skipped{File: file, Reason: "invalid module id"})
			continue
		}
		sum := Summary{File: file, ID: id}
		sum.Name, sum.Category = readMetadata(filepath.Join(dir, file))
		sum.HasMetadata = sum.Name != ""
		res.Summaries = append(res.Summaries, sum)
	}
	sort.Slice(res.Summaries, func(i, j int) bool { return res.Summaries[i].ID < res.Summaries[j].ID })
	return res, nil
}

// readMetadata pulls the @vjdeck docblock tags out of the head of a
// module file. Missing tags yield empty strings.
func readMetadata(path string) (name, category string) {
	f, err := os.Open(path)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	sc := bufio.NewScanner(io.LimitReader(f, metadataHeadLimit))
	sc.Buffer(make([]byte, 64*1024), 64*1024)
	for sc.Scan() {
		line := sc.Text()
		if name == "" {
			if m := nameTagRe.FindStringSubmatch(line); m != nil {
				name = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[1]), "*/"))
			}
		}
		if category == "" {
			if m := categoryTagRe.FindStringSubmatch(line); m != nil {
				category = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[1]), "*/"))
			}
		}
		if name != "" && category != "" {
			break
		}
	}
	return name, category
}
