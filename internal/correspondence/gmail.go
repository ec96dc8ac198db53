package correspondence

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// MailSource reads an inbox. It never sends or drafts anything.
type MailSource interface {
	// Since returns inbox messages received after t, oldest first.
	Since(ctx context.Context, t time.Time) ([]Message, error)
	// Thread returns every message of a conversation, oldest first.
	Thread(ctx context.Context, threadID string) ([]Message, error)
}

const gmailUser = "me"

// GmailSource reads messages through the Gmail API.
type GmailSource struct {
	svc      *gmail.Service
	maxPages int
}

// NewGmailSource builds a read-only Gmail source.
func NewGmailSource(ctx context.Context, opts ...option.ClientOption) (*GmailSource, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &GmailSource{svc: svc, maxPages: 10}, nil
}

func (g *GmailSource) Since(ctx context.Context, t time.Time) ([]Message, error) {
	query := "in:inbox"
	if !t.IsZero() {
		query += fmt.Sprintf(" after:%d", t.Unix())
	}

	var ids []string
	pageToken := ""
	for page := 0; page < g.maxPages; page++ {
		call := g.svc.Users.Messages.List(gmailUser).Q(query).MaxResults(100).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if pageToken = resp.NextPageToken; pageToken == "" {
			break
		}
	}

	msgs := make([]Message, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- { // the API lists newest first
		m, err := g.svc.Users.Messages.Get(gmailUser, ids[i]).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get message %s: %w", ids[i], err)
		}
		msgs = append(msgs, fromGmail(m))
	}
	return msgs, nil
}

func (g *GmailSource) Thread(ctx context.Context, threadID string) ([]Message, error) {
	if threadID == "" {
		return nil, nil
	}
	th, err := g.svc.Users.Threads.Get(gmailUser, threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}
	msgs := make([]Message, 0, len(th.Messages))
	for _, m := range th.Messages {
		msgs = append(msgs, fromGmail(m))
	}
	return msgs, nil
}

func fromGmail(m *gmail.Message) Message {
	msg := Message{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Received: time.UnixMilli(m.InternalDate).UTC(),
	}
	if m.Payload == nil {
		msg.Body = m.Snippet
		return msg
	}
	for _, h := range m.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			msg.From = bareAddress(h.Value)
		case "subject":
			msg.Subject = h.Value
		}
	}
	msg.Body = bodyText(m.Payload)
	if msg.Body == "" {
		msg.Body = m.Snippet
	}
	return msg
}

func bareAddress(header string) string {
	addr, err := mail.ParseAddress(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(header))
	}
	return strings.ToLower(addr.Address)
}

// bodyText prefers the first text/plain part and falls back to the text
// of the first text/html part.
func bodyText(p *gmail.MessagePart) string {
	if plain := findPart(p, "text/plain"); plain != "" {
		return strings.TrimSpace(plain)
	}
	html := findPart(p, "text/html")
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func findPart(p *gmail.MessagePart, mimeType string) string {
	if p == nil {
		return ""
	}
	if strings.HasPrefix(p.MimeType, mimeType) && p.Body != nil && p.Body.Data != "" {
		return decodeBody(p.Body.Data)
	}
	for _, child := range p.Parts {
		if s := findPart(child, mimeType); s != "" {
			return s
		}
	}
	return ""
}

func decodeBody(data string) string {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	return ""
}
