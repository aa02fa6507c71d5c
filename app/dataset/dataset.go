// Package dataset loads the labeled corpus and splits it into training and
// evaluation subsets. The corpus format is one row per line, a class label
// followed by a tab and the raw message text, i.e. the layout of the public
// SMS spam collections.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/smsguard/smsguard/lib/bayes"
)

// Load reads a tab-separated corpus from the reader. Rows with a missing
// separator or an unrecognized label are all collected and reported together,
// and the whole load fails: a partially valid corpus never leaks into
// training statistics. Empty lines are skipped.
func Load(r io.Reader) ([]bayes.Message, error) {
	scanner := bufio.NewScanner(r)
	const maxScanTokenSize = 64 * 1024 // 64KB max line length
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	var rows []bayes.Message
	errs := new(multierror.Error)

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		label, msg, ok := strings.Cut(text, "\t")
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("line %d: no tab separator", line))
			continue
		}
		class := bayes.Class(strings.ToLower(strings.TrimSpace(label)))
		if !class.Valid() {
			errs = multierror.Append(errs, fmt.Errorf("line %d: unrecognized label %q", line, label))
			continue
		}
		rows = append(rows, bayes.Message{Class: class, Text: strings.TrimSpace(msg)})
	}
	if err := scanner.Err(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to read corpus: %w", err))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("invalid corpus: %w", err)
	}
	return rows, nil
}

// LoadFile opens the corpus file and loads it with Load.
func LoadFile(path string) ([]bayes.Message, error) {
	fh, err := os.Open(path) //nolint:gosec // file path from the user's own config
	if err != nil {
		return nil, fmt.Errorf("can't open corpus file: %w", err)
	}
	defer fh.Close()
	return Load(fh)
}

// Split shuffles rows with the given seed and cuts them into a training
// subset and an evaluation subset. The shuffle is deterministic for a seed,
// the original slice is not modified and no row ends up in both subsets.
func Split(rows []bayes.Message, trainRatio float64, seed int64) (train, eval []bayes.Message, err error) {
	if trainRatio <= 0 || trainRatio > 1 {
		return nil, nil, fmt.Errorf("train ratio must be in (0, 1], got %v", trainRatio)
	}

	shuffled := make([]bayes.Message, len(rows))
	copy(shuffled, rows)
	rnd := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic split, not crypto
	rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	cut := int(float64(len(shuffled)) * trainRatio)
	return shuffled[:cut], shuffled[cut:], nil
}
