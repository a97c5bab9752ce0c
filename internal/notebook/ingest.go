package notebook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const maxIngestBytes = 8 << 20

// Ingester turns URLs and uploaded documents into Source values ready for AddSource.
type Ingester struct {
	httpClient  *http.Client
	mdConverter *converter.Converter
	sanitizer   *bluemonday.Policy
}

// NewIngester constructs an ingester whose URL fetches time out after timeout.
func NewIngester(timeout time.Duration) *Ingester {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Ingester{
		httpClient: &http.Client{Timeout: timeout},
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// Text builds a plain-text source.
func (i *Ingester) Text(title, content string) (Source, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Source{}, errors.New("ingest text: content required")
	}
	return Source{Kind: KindText, Title: strings.TrimSpace(title), Content: content}, nil
}

// URL fetches a web page and converts its body to markdown.
func (i *Ingester) URL(ctx context.Context, rawURL string) (Source, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return Source{}, fmt.Errorf("ingest url: invalid url %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return Source{}, fmt.Errorf("ingest url: new request: %w", err)
	}
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")
	resp, err := i.httpClient.Do(req)
	if err != nil {
		return Source{}, fmt.Errorf("ingest url: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return Source{}, fmt.Errorf("ingest url: fetch %s: http %d", parsed, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIngestBytes))
	if err != nil {
		return Source{}, fmt.Errorf("ingest url: read body: %w", err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	var title, content string
	if mediaType == "text/html" || mediaType == "application/xhtml+xml" || (mediaType == "" && looksLikeHTML(body)) {
		title, content, err = i.convertHTML(body, parsed.Scheme+"://"+parsed.Host)
		if err != nil {
			return Source{}, fmt.Errorf("ingest url: %w", err)
		}
	} else {
		if !utf8.Valid(body) {
			return Source{}, fmt.Errorf("ingest url: unsupported content type %q", mediaType)
		}
		content = strings.TrimSpace(string(body))
	}
	if content == "" {
		return Source{}, fmt.Errorf("ingest url: %s has no readable content", parsed)
	}
	if title == "" {
		title = parsed.Host + parsed.Path
	}
	return Source{Kind: KindURL, Title: title, Content: content, Origin: parsed.String()}, nil
}

// Document converts an uploaded file. HTML is converted to markdown, PDF text
// is extracted page by page, and other UTF-8 text is kept verbatim.
func (i *Ingester) Document(name string, data []byte) (Source, error) {
	if len(data) == 0 {
		return Source{}, errors.New("ingest document: empty file")
	}
	if len(data) > maxIngestBytes {
		return Source{}, fmt.Errorf("ingest document: %s exceeds %d bytes", name, maxIngestBytes)
	}
	base := filepath.Base(name)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	var content string
	switch strings.ToLower(filepath.Ext(base)) {
	case ".html", ".htm", ".xhtml":
		htmlTitle, converted, err := i.convertHTML(data, "")
		if err != nil {
			return Source{}, fmt.Errorf("ingest document: %w", err)
		}
		if htmlTitle != "" {
			title = htmlTitle
		}
		content = converted
	case ".pdf":
		pdfTitle, extracted, err := extractPDF(data)
		if err != nil {
			return Source{}, fmt.Errorf("ingest document: %s: %w", base, err)
		}
		if pdfTitle != "" && title == "" {
			title = pdfTitle
		}
		content = extracted
	default:
		if !utf8.Valid(data) {
			return Source{}, fmt.Errorf("ingest document: %s is not UTF-8 text", base)
		}
		content = strings.TrimSpace(string(data))
	}
	if content == "" {
		return Source{}, fmt.Errorf("ingest document: %s has no readable content", base)
	}
	return Source{Kind: KindDocument, Title: title, Content: content, Origin: base}, nil
}

func (i *Ingester) convertHTML(data []byte, domain string) (string, string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}
	title := findTitle(doc)

	var opts []converter.ConvertOptionFunc
	if domain != "" {
		opts = append(opts, converter.WithDomain(domain))
	}
	markdown, err := i.mdConverter.ConvertString(i.sanitizer.Sanitize(string(data)), opts...)
	if err != nil || strings.TrimSpace(markdown) == "" {
		return title, collectText(doc), nil
	}
	return title, strings.TrimSpace(markdown), nil
}

func looksLikeHTML(body []byte) bool {
	head := strings.ToLower(string(body[:min(len(body), 512)]))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Title:
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
