package objects

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/vcserr"
)

// Ident identifies an author or committer as "Name <email>", the usual
// git-style identity string; spec.md leaves the exact shape of <ident>
// unspecified beyond "author <ident> <unix-secs> <±HHMM>".
type Ident struct {
	Name  string
	Email string
}

func (i Ident) String() string {
	return fmt.Sprintf("%s <%s>", i.Name, i.Email)
}

// ParseIdent reverses Ident.String.
func ParseIdent(s string) (Ident, error) {
	open := strings.LastIndexByte(s, '<')
	close := strings.LastIndexByte(s, '>')
	if open < 0 || close < 0 || close < open {
		return Ident{}, fmt.Errorf("objects: malformed ident %q", s)
	}
	return Ident{
		Name:  strings.TrimSpace(s[:open]),
		Email: strings.TrimSpace(s[open+1 : close]),
	}, nil
}

// Commit is the parsed form of a commit object (§3 "Commit").
type Commit struct {
	Tree       digest.Digest
	Parents    []digest.Digest // 0 (root), 1 (normal), 2 (merge: ours, theirs)
	Author     Ident
	AuthorTime time.Time
	Committer  Ident
	CommitTime time.Time
	Message    string
}

// BuildCommit serializes c in the exact header order required by
// Invariant C1 — tree, then each parent in order, then author,
// committer, a blank line, then the message with a trailing newline —
// and frames+hashes it as a commit object (§4.5).
func BuildCommit(c Commit) (digest.Digest, []byte, error) {
	if c.Tree.IsZero() {
		return digest.Digest{}, nil, fmt.Errorf("objects: commit requires a tree hash")
	}
	if len(c.Parents) > 2 {
		return digest.Digest{}, nil, fmt.Errorf("objects: commit may have at most 2 parents, got %d", len(c.Parents))
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s %d %s\n", c.Author, c.AuthorTime.Unix(), formatTZ(c.AuthorTime))
	fmt.Fprintf(&buf, "committer %s %d %s\n", c.Committer, c.CommitTime.Unix(), formatTZ(c.CommitTime))
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	if !strings.HasSuffix(c.Message, "\n") {
		buf.WriteByte('\n')
	}

	d, framed := digest.HashFramed(digest.TypeCommit, buf.Bytes())
	return d, framed, nil
}

// formatTZ renders t's zone offset as git's "±HHMM" (§6, §9 "Timezone
// sign convention"): '+' when the offset east of UTC is zero or
// positive (local time is at or ahead of UTC, i.e. not behind it), '-'
// otherwise.
func formatTZ(t time.Time) string {
	_, offsetSec := t.Zone()
	sign := "+"
	if offsetSec < 0 {
		sign = "-"
		offsetSec = -offsetSec
	}
	hh := offsetSec / 3600
	mm := (offsetSec % 3600) / 60
	return fmt.Sprintf("%s%02d%02d", sign, hh, mm)
}

// ParseCommit reverses BuildCommit (§4.5 "Parse"): it reads header
// lines until the first blank line, recognizing "tree", "parent"
// (repeatable), "author", and "committer"; everything after the blank
// line is the message, trimmed of exactly one trailing newline.
func ParseCommit(content []byte) (*Commit, error) {
	text := string(content)
	headerEnd := strings.Index(text, "\n\n")
	var header, message string
	if headerEnd < 0 {
		// No body: treat the whole buffer as header, empty message.
		header = strings.TrimSuffix(text, "\n")
		message = ""
	} else {
		header = text[:headerEnd]
		message = text[headerEnd+2:]
		message = strings.TrimSuffix(message, "\n")
	}

	c := &Commit{}
	for _, line := range strings.Split(header, "\n") {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			return nil, vcserr.New(vcserr.Corrupted, "objects: malformed commit header line %q", line)
		}
		switch key {
		case "tree":
			d, err := digest.Parse(value)
			if err != nil {
				return nil, vcserr.Wrap(vcserr.Corrupted, err, "objects: invalid tree hash")
			}
			c.Tree = d
		case "parent":
			d, err := digest.Parse(value)
			if err != nil {
				return nil, vcserr.Wrap(vcserr.Corrupted, err, "objects: invalid parent hash")
			}
			c.Parents = append(c.Parents, d)
		case "author":
			ident, when, err := parseIdentLine(value)
			if err != nil {
				return nil, vcserr.Wrap(vcserr.Corrupted, err, "objects: invalid author line")
			}
			c.Author, c.AuthorTime = ident, when
		case "committer":
			ident, when, err := parseIdentLine(value)
			if err != nil {
				return nil, vcserr.Wrap(vcserr.Corrupted, err, "objects: invalid committer line")
			}
			c.Committer, c.CommitTime = ident, when
		}
	}

	if c.Tree.IsZero() {
		return nil, vcserr.New(vcserr.Corrupted, "objects: commit missing tree line")
	}

	c.Message = message
	return c, nil
}

// parseIdentLine splits "Name <email> unix-secs ±HHMM" into an Ident
// and the timestamp it encodes.
func parseIdentLine(rest string) (Ident, time.Time, error) {
	close := strings.LastIndexByte(rest, '>')
	if close < 0 {
		return Ident{}, time.Time{}, fmt.Errorf("malformed line %q", rest)
	}
	ident, err := ParseIdent(rest[:close+1])
	if err != nil {
		return Ident{}, time.Time{}, err
	}

	fields := strings.Fields(strings.TrimSpace(rest[close+1:]))
	if len(fields) != 2 {
		return Ident{}, time.Time{}, fmt.Errorf("expected \"<unix> <tz>\", got %q", rest[close+1:])
	}
	secs, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Ident{}, time.Time{}, fmt.Errorf("invalid timestamp %q: %w", fields[0], err)
	}
	loc, err := parseTZOffset(fields[1])
	if err != nil {
		return Ident{}, time.Time{}, err
	}
	return ident, time.Unix(secs, 0).In(loc), nil
}

func parseTZOffset(s string) (*time.Location, error) {
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return nil, fmt.Errorf("invalid timezone offset %q", s)
	}
	hh, err1 := strconv.Atoi(s[1:3])
	mm, err2 := strconv.Atoi(s[3:5])
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("invalid timezone offset %q", s)
	}
	totalSec := hh*3600 + mm*60
	if s[0] == '-' {
		totalSec = -totalSec
	}
	return time.FixedZone(s, totalSec), nil
}
