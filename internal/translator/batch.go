package translator

import (
	"strings"

	"xkeenui/internal/logger"
)

// LinkError records a link that could not be converted.
type LinkError struct {
	Link string
	Err  error
}

func (e LinkError) Error() string { return e.Link + ": " + e.Err.Error() }

func (e LinkError) Unwrap() error { return e.Err }

// BatchResult is the outcome of converting every link found in a text.
type BatchResult struct {
	Results    []*Result
	Failures   []LinkError
	Duplicates int
}

// Content joins the generated fragments the way the dialect lists them.
func (b *BatchResult) Content(dialect Dialect) string {
	parts := make([]string, 0, len(b.Results))
	for _, r := range b.Results {
		parts = append(parts, r.Content)
	}
	if dialect == DialectXray {
		return strings.Join(parts, ",\n")
	}
	return strings.Join(parts, "")
}

// GenerateBatch converts every share link found in text. Links pointing at the
// same server are converted once, and each generated fragment is taken into
// account when naming the next one.
func GenerateBatch(text string, dialect Dialect, existing string) *BatchResult {
	return GenerateLinks(ExtractLinks(text), dialect, existing, nil)
}

// GenerateLinks is GenerateBatch over already extracted links. progress, when
// set, is called once per link.
func GenerateLinks(links []string, dialect Dialect, existing string, progress func()) *BatchResult {
	batch := &BatchResult{}
	seen := make(map[string]bool)
	probe := existing

	for _, link := range links {
		if progress != nil {
			progress()
		}
		if d, err := Parse(link); err == nil {
			fp := d.Fingerprint()
			if seen[fp] {
				batch.Duplicates++
				continue
			}
			seen[fp] = true
		}

		res, err := Generate(link, dialect, probe)
		if err != nil {
			logger.Log.Debugf("Skipping link: %v", err)
			batch.Failures = append(batch.Failures, LinkError{Link: link, Err: err})
			continue
		}
		batch.Results = append(batch.Results, res)
		probe += "\n" + res.Content
	}
	return batch
}
