package correspondence

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// CRM stores contacts. Rows without a type are Pending classification.
type CRM interface {
	Lookup(ctx context.Context, email string) (*Contact, error)
	Create(ctx context.Context, c Contact) (Contact, error)
	Update(ctx context.Context, c Contact) error
	Pending(ctx context.Context) ([]Contact, error)
}

// Sheet columns, in order. Row 1 is a header.
var sheetColumns = []string{"email", "type", "status", "thread_id", "notes", "follow_up_date", "last_updated"}

var rowInRange = regexp.MustCompile(`![A-Z]+(\d+)`)

// SheetsCRM keeps contacts in a Google Sheets tab.
type SheetsCRM struct {
	svc           *sheets.Service
	spreadsheetID string
	sheet         string
}

// NewSheetsCRM builds a Sheets-backed CRM. opts usually carry credentials;
// tests pass an endpoint and HTTP client instead.
func NewSheetsCRM(ctx context.Context, spreadsheetID, sheet string, opts ...option.ClientOption) (*SheetsCRM, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetsCRM{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

func (s *SheetsCRM) lastColumn() string {
	return string(rune('A' + len(sheetColumns) - 1))
}

func (s *SheetsCRM) all(ctx context.Context) ([]Contact, error) {
	rng := fmt.Sprintf("%s!A2:%s", s.sheet, s.lastColumn())
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read contacts: %w", err)
	}
	contacts := make([]Contact, 0, len(resp.Values))
	for i, row := range resp.Values {
		c := contactFromRow(row)
		if c.Email == "" {
			continue
		}
		c.Row = i + 2
		contacts = append(contacts, c)
	}
	return contacts, nil
}

// Lookup returns the newest row for email, or nil.
func (s *SheetsCRM) Lookup(ctx context.Context, email string) (*Contact, error) {
	contacts, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for i := len(contacts) - 1; i >= 0; i-- {
		if strings.EqualFold(contacts[i].Email, email) {
			c := contacts[i]
			return &c, nil
		}
	}
	return nil, nil
}

// Create appends a row and returns the contact with its row number set.
func (s *SheetsCRM) Create(ctx context.Context, c Contact) (Contact, error) {
	vr := &sheets.ValueRange{Values: [][]interface{}{rowFromContact(c)}}
	resp, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, fmt.Sprintf("%s!A:%s", s.sheet, s.lastColumn()), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return c, fmt.Errorf("failed to create contact %s: %w", c.Email, err)
	}
	if resp.Updates != nil {
		if m := rowInRange.FindStringSubmatch(resp.Updates.UpdatedRange); m != nil {
			c.Row, _ = strconv.Atoi(m[1])
		}
	}
	return c, nil
}

// Update rewrites the contact's row in place.
func (s *SheetsCRM) Update(ctx context.Context, c Contact) error {
	if c.Row < 2 {
		return fmt.Errorf("contact %s has no sheet row", c.Email)
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", s.sheet, c.Row, s.lastColumn(), c.Row)
	vr := &sheets.ValueRange{Values: [][]interface{}{rowFromContact(c)}}
	if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update contact %s: %w", c.Email, err)
	}
	return nil
}

// Pending returns rows that have not been classified yet.
func (s *SheetsCRM) Pending(ctx context.Context) ([]Contact, error) {
	contacts, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	var out []Contact
	for _, c := range contacts {
		if c.Type == "" {
			out = append(out, c)
		}
	}
	return out, nil
}

func contactFromRow(row []interface{}) Contact {
	cell := func(i int) string {
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(row[i]))
	}
	c := Contact{
		Email:        strings.ToLower(cell(0)),
		Status:       Status(strings.ToLower(cell(2))),
		ThreadID:     cell(3),
		Notes:        cell(4),
		FollowUpDate: cell(5),
	}
	if t, ok := ParseContactType(cell(1)); ok {
		c.Type = t
	}
	if ts, err := time.Parse(time.RFC3339, cell(6)); err == nil {
		c.LastUpdated = ts
	}
	return c
}

func rowFromContact(c Contact) []interface{} {
	updated := ""
	if !c.LastUpdated.IsZero() {
		updated = c.LastUpdated.UTC().Format(time.RFC3339)
	}
	return []interface{}{c.Email, string(c.Type), string(c.Status), c.ThreadID, c.Notes, c.FollowUpDate, updated}
}
