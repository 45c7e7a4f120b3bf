package mailer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/mailwatch/internal/model"
)

// BulkRequest describes a personalized bulk send. CSV must start with a
// header row containing an "email" column. {field} placeholders in the
// templates are replaced with the row's values; {{ and }} are literal
// braces.
type BulkRequest struct {
	CSV             io.Reader
	SubjectTemplate string
	BodyTemplate    string
	HTML            bool
}

// BulkResult counts the outcome of a bulk send.
type BulkResult struct {
	Sent   int
	Failed int
}

// SendBulk sends one message per CSV row. A row whose templates cannot be
// rendered is recorded as failed. If the CSV cannot be read the counts
// so far are returned with the error.
func (m *Mailer) SendBulk(ctx context.Context, req BulkRequest) (BulkResult, error) {
	var result BulkResult
	logger := m.logger.With("batch_id", uuid.NewString())

	r := csv.NewReader(req.CSV)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return result, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	emailCol := -1
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		if header[i] == "email" {
			emailCol = i
		}
	}
	if emailCol < 0 {
		return result, errors.New(`CSV has no "email" column`)
	}

	logger.Info("bulk send started", "columns", len(header))

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Error("bulk send aborted", "sent", result.Sent, "failed", result.Failed, "error", err)
			return result, fmt.Errorf("reading CSV row: %w", err)
		}

		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		to := row["email"]

		if err := m.sendRow(ctx, to, req, row); err != nil {
			result.Failed++
			continue
		}
		result.Sent++
	}

	logger.Info("bulk send finished", "sent", result.Sent, "failed", result.Failed)
	return result, nil
}

func (m *Mailer) sendRow(ctx context.Context, to string, req BulkRequest, row map[string]string) error {
	subject, err := Render(req.SubjectTemplate, row)
	if err == nil {
		var body string
		body, err = Render(req.BodyTemplate, row)
		if err == nil {
			return m.Send(ctx, to, subject, body, req.HTML)
		}
	}

	if _, recErr := m.recorder.RecordSent(ctx, to, req.SubjectTemplate, model.SendStatusFailed, err.Error()); recErr != nil {
		m.logger.Error("failed to record sent email", "recipient", to, "error", recErr)
	}
	m.logger.Warn("bulk row skipped", "recipient", to, "error", err)
	return err
}

// Render replaces {field} placeholders in tmpl with values from fields.
// An unknown field or an unbalanced brace is an error.
func Render(tmpl string, fields map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("unclosed placeholder at offset %d", i)
			}
			name := tmpl[i+1 : i+1+end]
			value, ok := fields[name]
			if !ok {
				return "", fmt.Errorf("unknown field %q", name)
			}
			b.WriteString(value)
			i += end + 1
		case c == '}':
			return "", fmt.Errorf("single '}' at offset %d", i)
		default:
			b.WriteByte(c)
		}
	}

	return b.String(), nil
}
