package quiz

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

var csvHeader = []string{
	"Question_no", "Question_text",
	"Option1", "Option2", "Option3", "Option4",
	"Correct_answer", "Rationale",
}

// save writes the quiz CSV atomically: temp file in the target
// directory, then rename over the destination.
func (s *Service) save(questions []Question) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("encoding quiz: %w", err)
	}
	for _, q := range questions {
		record := []string{
			strconv.Itoa(q.Number),
			q.Text,
			q.Options[0], q.Options[1], q.Options[2], q.Options[3],
			strconv.Itoa(q.Correct),
			q.Rationale,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("encoding quiz: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encoding quiz: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.config.File), 0700); err != nil {
		return fmt.Errorf("creating quiz directory: %w", err)
	}
	tmp := s.config.File + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing quiz: %w", err)
	}
	if err := os.Rename(tmp, s.config.File); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing quiz: %w", err)
	}
	return nil
}

// Load reads the persisted quiz. A missing file surfaces
// os.ErrNotExist so callers can distinguish "no quiz yet".
func (s *Service) Load() ([]Question, error) {
	raw, err := os.ReadFile(s.config.File)
	if err != nil {
		return nil, fmt.Errorf("reading quiz: %w", err)
	}

	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decoding quiz: %w", err)
	}
	if len(records) < 1 || len(records[0]) != len(csvHeader) {
		return nil, fmt.Errorf("decoding quiz: malformed header")
	}

	questions := make([]Question, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != len(csvHeader) {
			return nil, fmt.Errorf("decoding quiz: row %d has %d columns", i+1, len(record))
		}
		number, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("decoding quiz: row %d question number: %w", i+1, err)
		}
		correct, err := strconv.Atoi(record[6])
		if err != nil {
			return nil, fmt.Errorf("decoding quiz: row %d correct answer: %w", i+1, err)
		}
		questions = append(questions, Question{
			Number:    number,
			Text:      record[1],
			Options:   [4]string{record[2], record[3], record[4], record[5]},
			Correct:   correct,
			Rationale: record[7],
		})
	}
	return questions, nil
}
