// internal/images/images.go
//
// Card image catalog.
//
// Responsibilities:
//   - Load the list of card face references from an environment-provided file
//     or fall back to the embedded defaults.
//   - Supply the list used to seed the default board preset.
//
// Environment variables:
//   IMAGES_FILE=/path/to/images.txt   (one reference per line, # comments)
//
// Constraints:
//   • References are opaque strings (URLs/paths); nothing is fetched here.
//   • Duplicates are dropped so every reference yields exactly one pair.
//   • Initialization runs once (sync.Once).

package images

import (
	"bufio"
	"errors"
	"os"
	"strings"
	"sync"

	"flipmatch/assets"
)

var (
	initOnce   sync.Once
	list       []string
	initialErr error
)

// Init loads the catalog exactly once.
// Returns an error if the list ends up empty.
func Init() error {
	initOnce.Do(func() {
		var refs []string
		if path := os.Getenv("IMAGES_FILE"); path != "" {
			var err error
			refs, err = readImageFile(path)
			if err != nil {
				initialErr = err
				return
			}
		} else {
			var err error
			refs, err = assets.ImageList()
			if err != nil {
				initialErr = err
				return
			}
		}

		list = dedupe(refs)
		if len(list) == 0 {
			initialErr = errors.New("images: catalog is empty")
		}
	})
	return initialErr
}

// readImageFile loads one reference per line, skipping blanks and comments.
func readImageFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// dedupe keeps the first occurrence of each reference, preserving order.
func dedupe(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// List returns the loaded catalog. Init must have been called.
func List() []string {
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// Count returns the catalog size.
func Count() int { return len(list) }
