// Package artifacts writes each run's output under a per-day directory: a
// uniquely named JSON snapshot with a readable text twin, plus per-platform
// text files that always hold the latest run of the day.
package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/content-curator/internal/schemas"
	"github.com/jonathan/content-curator/internal/types"
)

// DefaultRoot is the directory day folders are created in.
const DefaultRoot = "outputs"

// Per-platform files overwritten by every run of a day.
const (
	LinkedInFile    = "linkedin.txt"
	TwitterFile     = "twitter.txt"
	InstagramFile   = "instagram.txt"
	ImagePromptFile = "image_prompt.txt"
)

// Article is the candidate as recorded in a snapshot.
type Article struct {
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	Date      string `json:"date,omitempty"`
	Link      string `json:"link"`
	SourceURL string `json:"source_url,omitempty"`
	Identity  string `json:"identity,omitempty"`
}

// Snapshot is the structured record of one run.
type Snapshot struct {
	RunID       string            `json:"run_id,omitempty"`
	Article     Article           `json:"article"`
	SocialPosts types.SocialPosts `json:"social_posts"`
	ImagePath   string            `json:"image_path,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
	Criteria    string            `json:"criteria"`
}

// Location lists what a Persist call wrote.
type Location struct {
	Dir      string
	Snapshot string
	Text     string
	Latest   []string
}

// Mirror receives a copy of every written file.
type Mirror interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
}

// Persister writes run artifacts to the local filesystem.
type Persister struct {
	root   string
	mirror Mirror
	logger *logrus.Logger
	now    func() time.Time
}

// NewPersister returns a Persister rooted at root. mirror may be nil.
func NewPersister(root string, mirror Mirror, logger *logrus.Logger) *Persister {
	if root == "" {
		root = DefaultRoot
	}
	return &Persister{root: root, mirror: mirror, logger: logger, now: time.Now}
}

// DayDir is the directory holding artifacts for runDate.
func (p *Persister) DayDir(runDate time.Time) string {
	return filepath.Join(p.root, runDate.Format("2006-01-02"))
}

// Meta carries run provenance recorded in the snapshot.
type Meta struct {
	RunID     string
	Criterion string
}

// Persist writes the snapshot, its text twin and the four latest-run files.
func (p *Persister) Persist(ctx context.Context, runDate time.Time, c types.Candidate, posts types.SocialPosts, imagePath string, meta Meta) (Location, error) {
	dir := p.DayDir(runDate)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Location{}, &PersistError{Path: dir, Message: "failed to create day directory", Cause: err}
	}

	now := p.now()
	snap := Snapshot{
		RunID: meta.RunID,
		Article: Article{
			Title:     c.Title,
			Author:    c.Author,
			Date:      c.PublishedAt,
			Link:      c.Link,
			SourceURL: c.SourceURL,
			Identity:  string(c.Identity),
		},
		SocialPosts: posts,
		ImagePath:   imagePath,
		GeneratedAt: now.UTC(),
		Criteria:    meta.Criterion,
	}
	if err := schemas.Validate(schemas.Artifact, snap); err != nil {
		return Location{}, &PersistError{Path: dir, Message: "snapshot does not match artifact schema", Cause: err}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return Location{}, &PersistError{Path: dir, Message: "failed to encode snapshot", Cause: err}
	}

	base, err := reserveName(dir, "social_posts_"+now.Format("20060102_150405.000"))
	if err != nil {
		return Location{}, err
	}
	loc := Location{
		Dir:      dir,
		Snapshot: filepath.Join(dir, base+".json"),
		Text:     filepath.Join(dir, base+".txt"),
	}

	if err := writeAtomic(loc.Snapshot, data); err != nil {
		return Location{}, err
	}
	if err := writeAtomic(loc.Text, []byte(ReadableText(c, posts, imagePath))); err != nil {
		return Location{}, err
	}

	latest := []struct {
		name string
		body string
	}{
		{LinkedInFile, posts.LinkedIn},
		{TwitterFile, posts.Twitter},
		{InstagramFile, posts.Instagram},
		{ImagePromptFile, posts.ImagePrompt},
	}
	for _, f := range latest {
		path := filepath.Join(dir, f.name)
		if err := writeAtomic(path, []byte(f.body)); err != nil {
			return Location{}, err
		}
		loc.Latest = append(loc.Latest, path)
	}

	p.mirrorAll(ctx, runDate, loc)
	return loc, nil
}

func (p *Persister) mirrorAll(ctx context.Context, runDate time.Time, loc Location) {
	if p.mirror == nil {
		return
	}
	day := runDate.Format("2006-01-02")
	files := append([]string{loc.Snapshot, loc.Text}, loc.Latest...)
	for _, path := range files {
		body, err := os.ReadFile(path)
		if err == nil {
			err = p.mirror.Upload(ctx, day+"/"+filepath.Base(path), body, contentType(path))
		}
		if err != nil {
			p.logger.WithError(err).WithField("path", path).Warn("Artifact mirror upload failed")
		}
	}
}

// ReadableText renders the human-readable twin of a snapshot.
func ReadableText(c types.Candidate, posts types.SocialPosts, imagePath string) string {
	rule := strings.Repeat("=", 60)
	orUnknown := func(s string) string {
		if s == "" {
			return "Unknown"
		}
		return s
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Article: %s\n", c.Title)
	fmt.Fprintf(&sb, "Author: %s\n", orUnknown(c.Author))
	fmt.Fprintf(&sb, "Date: %s\n", orUnknown(c.PublishedAt))
	fmt.Fprintf(&sb, "Link: %s\n\n", c.Link)
	for _, section := range []struct{ title, body string }{
		{"LINKEDIN POST", posts.LinkedIn},
		{"TWITTER POST", posts.Twitter},
		{"INSTAGRAM POST", posts.Instagram},
	} {
		fmt.Fprintf(&sb, "%s\n%s:\n%s\n%s\n\n", rule, section.title, rule, section.body)
	}
	fmt.Fprintf(&sb, "%s\nIMAGE PROMPT:\n%s\n%s\n", rule, rule, posts.ImagePrompt)
	if imagePath != "" {
		fmt.Fprintf(&sb, "\nGenerated Image: %s\n", imagePath)
	}
	return sb.String()
}

// reserveName claims a snapshot base name that no earlier run used, by
// creating the .json file exclusively.
func reserveName(dir, base string) (string, error) {
	name := base
	for i := 2; i < 1000; i++ {
		f, err := os.OpenFile(filepath.Join(dir, name+".json"), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_ = f.Close()
			return name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", &PersistError{Path: dir, Message: "failed to reserve snapshot name", Cause: err}
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
	return "", &PersistError{Path: dir, Message: "too many snapshots with the same timestamp"}
}

// WriteFileAtomic replaces path with data so readers never see a partial file.
func WriteFileAtomic(path string, data []byte) error {
	return writeAtomic(path, data)
}

// writeAtomic replaces path with data through a synced temp file and rename.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &PersistError{Path: path, Message: "failed to create temp file", Cause: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return &PersistError{Path: path, Message: "failed to write", Cause: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return &PersistError{Path: path, Message: "failed to sync", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &PersistError{Path: path, Message: "failed to close", Cause: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return &PersistError{Path: path, Message: "failed to set permissions", Cause: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return &PersistError{Path: path, Message: "failed to rename", Cause: err}
	}
	return nil
}

func contentType(path string) string {
	if strings.HasSuffix(path, ".json") {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}
