// Package sync moves cache files between the local sidecar directory
// and a WebDAV folder. Files are opaque payload; nothing here inspects
// snapshot content.
package sync

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

// DefaultTimeout bounds each sync HTTP request.
const DefaultTimeout = 30 * time.Second

// RemoteFile describes one entry in a remote folder listing.
type RemoteFile struct {
	Name string
	Path string
}

// Client is the remote sync contract.
type Client interface {
	ListRemoteFiles(ctx context.Context, folder string) ([]RemoteFile, error)
	UploadFile(ctx context.Context, localPath, remotePath string) (int, error)
	DownloadFile(ctx context.Context, remotePath, localPath string) (int, error)
}

// WebDAVConfig holds connection settings for a WebDAV server.
type WebDAVConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// WebDAVClient implements Client against a WebDAV server.
type WebDAVClient struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// NewWebDAVClient creates a new WebDAV sync client.
func NewWebDAVClient(cfg WebDAVConfig) *WebDAVClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &WebDAVClient{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// ListRemoteFiles lists the immediate children of a remote folder via
// a depth-1 PROPFIND. Collections (subfolders) are excluded.
func (c *WebDAVClient) ListRemoteFiles(ctx context.Context, folder string) ([]RemoteFile, error) {
	req, err := c.newRequest(ctx, "PROPFIND", folder, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Depth", "1")
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMultiStatus && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list failed with status %d", resp.StatusCode)
	}

	var ms multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	// The exact path the PROPFIND was issued against; hrefs matching it
	// are the folder itself, everything else is a child.
	selfPath := path.Join("/", base.Path, strings.Trim(folder, "/"))

	var files []RemoteFile
	for _, r := range ms.Responses {
		href := r.Href
		if u, err := url.Parse(href); err == nil && u.Path != "" {
			href = u.Path
		} else if unescaped, err := url.PathUnescape(href); err == nil {
			href = unescaped
		}
		href = strings.TrimSuffix(href, "/")
		// Servers that omit resourcetype on the folder entry are covered
		// by the exact path match.
		if href == "" || href == selfPath {
			continue
		}
		if r.collection() {
			continue
		}
		files = append(files, RemoteFile{Name: path.Base(href), Path: href})
	}
	return files, nil
}

// UploadFile PUTs a local file to the remote path and returns the
// HTTP status code.
func (c *WebDAVClient) UploadFile(ctx context.Context, localPath, remotePath string) (int, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open local file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat local file: %w", err)
	}

	req, err := c.newRequest(ctx, "PUT", remotePath, f)
	if err != nil {
		return 0, err
	}
	req.ContentLength = info.Size()

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("upload failed with status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// DownloadFile GETs a remote path into a local file and returns the
// HTTP status code. The local file is only written on a 2xx response.
func (c *WebDAVClient) DownloadFile(ctx context.Context, remotePath, localPath string) (int, error) {
	req, err := c.newRequest(ctx, "GET", remotePath, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(path.Dir(localPath), 0o755); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to create local directory: %w", err)
	}
	f, err := os.Create(localPath)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to create local file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to write local file: %w", err)
	}
	return resp.StatusCode, nil
}

func (c *WebDAVClient) newRequest(ctx context.Context, method, remotePath string, body io.Reader) (*http.Request, error) {
	u := c.baseURL + "/" + strings.TrimPrefix(remotePath, "/")
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return req, nil
}

// WebDAV multistatus types

type multistatus struct {
	XMLName   xml.Name      `xml:"multistatus"`
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href     string        `xml:"href"`
	Propstat []davPropstat `xml:"propstat"`
}

type davPropstat struct {
	Prop struct {
		ResourceType struct {
			Collection *struct{} `xml:"collection"`
		} `xml:"resourcetype"`
	} `xml:"prop"`
}

func (r *davResponse) collection() bool {
	for _, ps := range r.Propstat {
		if ps.Prop.ResourceType.Collection != nil {
			return true
		}
	}
	return false
}

// Verify interface
var _ Client = (*WebDAVClient)(nil)
