// Package cvparser scrapes profile fields out of CV pages.
package cvparser

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/naka-gawa/trustgraph/internal/domain"
)

// ErrCVNotFound is returned when a profile has no CV page.
var ErrCVNotFound = errors.New("CV file not found")

const unknown = "Unknown"

// Parse extracts name (first h1), role (first p), the skills listed in the
// first ul after the "Skills" heading, and the GitHub handle in the first p
// after the "GitHub" heading.
func Parse(r io.Reader, id string) (domain.CV, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return domain.CV{}, fmt.Errorf("failed to parse CV html: %w", err)
	}

	var elems []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			elems = append(elems, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	cv := domain.CV{ID: id, Name: unknown, Role: unknown, Skills: []string{}}
	if i := find(elems, 0, atom.H1, ""); i >= 0 {
		cv.Name = textOf(elems[i])
	}
	if i := find(elems, 0, atom.P, ""); i >= 0 {
		cv.Role = textOf(elems[i])
	}
	if h := find(elems, 0, atom.H2, "Skills"); h >= 0 {
		if ul := find(elems, h+1, atom.Ul, ""); ul >= 0 {
			for c := elems[ul].FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && c.DataAtom == atom.Li {
					cv.Skills = append(cv.Skills, textOf(c))
				}
			}
		}
	}
	if h := find(elems, 0, atom.H2, "GitHub"); h >= 0 {
		if p := find(elems, h+1, atom.P, ""); p >= 0 {
			cv.GitHub = textOf(elems[p])
		}
	}
	if i := find(elems, 0, atom.Body, ""); i >= 0 {
		cv.Text = visibleText(elems[i])
	}
	return cv, nil
}

// find returns the index of the first element at or after from with the given
// tag and, when text is non-empty, exactly that trimmed text. It returns -1 if none.
func find(elems []*html.Node, from int, tag atom.Atom, text string) int {
	for i := from; i < len(elems); i++ {
		if elems[i].DataAtom != tag {
			continue
		}
		if text == "" || textOf(elems[i]) == text {
			return i
		}
	}
	return -1
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// visibleText joins the non-empty text nodes under n, one per line.
func visibleText(n *html.Node) string {
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				lines = append(lines, s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(lines, "\n")
}

// GitHubLogin normalizes what a CV lists under GitHub ("octocat", "@octocat",
// "github.com/octocat", "https://github.com/octocat/") to the login.
func GitHubLogin(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") && strings.Contains(s, "/") {
		s = "https://" + s
	}
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		s = strings.Trim(u.Path, "/")
		if i := strings.IndexByte(s, '/'); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimPrefix(s, "@")
}

// Loader reads <id>.html CV pages from a file system.
type Loader struct {
	fsys fs.FS
}

// NewLoader creates a Loader over fsys.
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// LoadCV loads and parses the CV of profile id.
func (l *Loader) LoadCV(id string) (domain.CV, error) {
	name := id + ".html"
	if id == "" || !fs.ValidPath(name) || strings.Contains(id, "/") {
		return domain.CV{}, ErrCVNotFound
	}
	f, err := l.fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.CV{}, ErrCVNotFound
		}
		return domain.CV{}, fmt.Errorf("failed to open CV %s: %w", name, err)
	}
	defer f.Close()
	return Parse(f, id)
}
