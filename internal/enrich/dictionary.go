package enrich

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BlakeItOut/amazon-transcribe-post-call-analytics/internal/segment"
)

// Dictionary is a file-based entity matcher used when no custom entity
// endpoint is configured. Triggers match case-insensitively; the detected
// text keeps the casing from the dictionary file.
type Dictionary struct {
	// Name is the resolved file name, reported as the recognizer that
	// produced the matches.
	Name string

	order   []string
	entries map[string]dictEntry
}

type dictEntry struct {
	entityType string
	original   string
}

// LoadDictionary reads the language-specific entity CSV from dir. The file
// name is derived from base by inserting the language before the extension
// (entities.csv + en -> entities-en.csv). A missing file is not an error:
// it returns (nil, nil) and simple entities stay disabled.
func LoadDictionary(dir, base, language string) (*Dictionary, error) {
	name := base
	if language != "" {
		ext := filepath.Ext(base)
		name = strings.TrimSuffix(base, ext) + "-" + language + ext
	}

	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open entity file: %w", err)
	}
	defer f.Close()

	d := &Dictionary{
		Name:    name,
		entries: make(map[string]dictEntry),
	}

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read entity file header: %w", err)
	}
	textCol, typeCol := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "Text":
			textCol = i
		case "Type":
			typeCol = i
		}
	}
	if textCol < 0 || typeCol < 0 {
		return nil, fmt.Errorf("entity file %s: missing Text/Type columns", name)
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read entity file %s: %w", name, err)
		}
		original := strings.TrimSpace(record[textCol])
		if original == "" {
			continue
		}
		trigger := strings.ToLower(original)
		if _, ok := d.entries[trigger]; ok {
			continue
		}
		d.order = append(d.order, trigger)
		d.entries[trigger] = dictEntry{
			entityType: strings.TrimSpace(record[typeCol]),
			original:   original,
		}
	}

	return d, nil
}

// Apply scans the whole conversation for dictionary triggers, then tags every
// occurrence on the segments where they appear. Each matched phrase gets one
// header entry regardless of how often it occurs.
func (d *Dictionary) Apply(segments []*segment.Segment, header *HeaderEntities) {
	if d == nil || len(d.order) == 0 {
		return
	}

	var full strings.Builder
	for _, seg := range segments {
		full.WriteString(strings.ToLower(seg.Text))
		full.WriteByte(' ')
	}
	conversation := full.String()

	for _, trigger := range d.order {
		if !strings.Contains(conversation, trigger) {
			continue
		}
		entry := d.entries[trigger]
		header.Add(entry.entityType, entry.original)

		for _, seg := range segments {
			lower := strings.ToLower(seg.Text)
			offset := 0
			for {
				idx := strings.Index(lower[offset:], trigger)
				if idx < 0 {
					break
				}
				begin := offset + idx
				end := begin + len(trigger)
				seg.Entities = append(seg.Entities, segment.Entity{
					Type:        entry.entityType,
					Text:        entry.original,
					BeginOffset: begin,
					EndOffset:   end,
					Score:       1.0,
				})
				offset = end
			}
		}
	}
}
