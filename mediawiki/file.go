package mediawiki

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Riamse/ceterach/metrics"
)

// File is a page in the file namespace plus the properties of its current
// upload. One load fetches the page fields and the image info together.
type File struct {
	Page

	repository string
	url        string
	mime       string
	hash       string
	size       int
	width      int
	height     int
	uploader   *User
}

// File returns a lazy handle on the file identified by ref. Titles missing
// the namespace prefix get it added.
func (c *Client) File(ref PageRef) (*File, error) {
	if ref.Title != "" && !strings.HasPrefix(ref.Title, "File:") {
		ref.Title = "File:" + ref.Title
	}
	if err := ref.validate(); err != nil {
		return nil, err
	}
	f := &File{Page: Page{
		client:          c,
		kind:            "file",
		title:           ref.Title,
		pageID:          ref.ID,
		followRedirects: ref.FollowRedirects,
	}}
	f.load = f.loadFile
	return f, nil
}

func (f *File) loadFile(ctx context.Context) error {
	if err := f.fetchFile(ctx); err != nil {
		return err
	}
	return f.resolveRedirect(ctx, f.fetchFile)
}

// fetchFile is one fetch-and-apply with the image extras and no redirect
// handling, so it can double as the reload hook without chaining hops.
func (f *File) fetchFile(ctx context.Context) error {
	res, err := f.fetch(ctx, Params{
		"prop":   []string{"info", "revisions", "categories", "imageinfo"},
		"iiprop": []string{"size", "mime", "sha1", "url", "user"},
	})
	if err != nil {
		return err
	}
	return f.applyFile(res)
}

func (f *File) applyFile(res map[string]any) error {
	if err := f.apply(res); err != nil {
		return err
	}
	f.repository = getString(res, "imagerepository")
	infos := getList(res, "imageinfo")
	if len(infos) == 0 {
		return nil
	}
	info, ok := infos[0].(map[string]any)
	if !ok {
		return nil
	}
	f.url = getString(info, "url")
	f.mime = getString(info, "mime")
	f.hash = getString(info, "sha1")
	f.size = getInt(info, "size")
	f.width = getInt(info, "width")
	f.height = getInt(info, "height")
	if user := getString(info, "user"); user != "" {
		f.uploader = f.client.User(user)
	}
	return nil
}

// URL returns the direct URL of the file's current upload.
func (f *File) URL(ctx context.Context) (string, error) {
	if err := f.derived(ctx); err != nil {
		return "", err
	}
	return f.url, nil
}

// MIME returns the file's media type.
func (f *File) MIME(ctx context.Context) (string, error) {
	if err := f.derived(ctx); err != nil {
		return "", err
	}
	return f.mime, nil
}

// Hash returns the SHA-1 of the file's current upload.
func (f *File) Hash(ctx context.Context) (string, error) {
	if err := f.derived(ctx); err != nil {
		return "", err
	}
	return f.hash, nil
}

// Size returns the file's size in bytes.
func (f *File) Size(ctx context.Context) (int, error) {
	if err := f.derived(ctx); err != nil {
		return 0, err
	}
	return f.size, nil
}

// Dimensions returns the file's width and height in pixels.
func (f *File) Dimensions(ctx context.Context) (width, height int, err error) {
	if err := f.derived(ctx); err != nil {
		return 0, 0, err
	}
	return f.width, f.height, nil
}

// Uploader returns the user who made the file's current upload.
func (f *File) Uploader(ctx context.Context) (*User, error) {
	if err := f.derived(ctx); err != nil {
		return nil, err
	}
	return f.uploader, nil
}

// Repository names the image repository the file lives in ("local",
// "shared", or empty for a missing file).
func (f *File) Repository(ctx context.Context) (string, error) {
	if err := f.derived(ctx); err != nil {
		return "", err
	}
	return f.repository, nil
}

// Download writes the file's current upload to w and returns the number of
// bytes written.
func (f *File) Download(ctx context.Context, w io.Writer) (int64, error) {
	url, err := f.URL(ctx)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", f.client.config.UserAgent)
	resp, err := f.client.httpClient.Do(req)
	if err != nil {
		return 0, &APIError{Kind: KindTransport, Code: internalErrorCode, Message: "file download failed", cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, &APIError{
			Kind:    KindTransport,
			Code:    internalErrorCode,
			Message: fmt.Sprintf("file download returned status %d", resp.StatusCode),
		}
	}
	return io.Copy(w, resp.Body)
}

// UploadOptions controls Upload.
type UploadOptions struct {
	// Watch adds the file page to the logged-in user's watchlist.
	Watch bool
	// IgnoreWarnings pushes the upload through warnings such as
	// replacing an existing file.
	IgnoreWarnings bool
}

// Upload uploads new file contents read from r, with text as the file
// page's description and summary as the upload comment.
func (f *File) Upload(ctx context.Context, r io.Reader, text, summary string, opts UploadOptions) error {
	contents, err := io.ReadAll(r)
	if err != nil {
		return &APIError{Kind: KindTransport, Code: internalErrorCode, Message: "reading upload contents failed", cause: err}
	}
	token, err := f.client.actionToken(ctx, "edit")
	if err != nil {
		return err
	}
	filename := strings.TrimPrefix(f.title, "File:")
	params := Params{
		"action":   "upload",
		"filename": filename,
		"text":     text,
		"comment":  summary,
		"token":    token,
	}
	if opts.Watch {
		params["watch"] = 1
	}
	if opts.IgnoreWarnings {
		params["ignorewarnings"] = 1
	}
	res, err := f.client.upload(ctx, params, filename, contents)
	metrics.RecordEdit("upload", err == nil)
	if err != nil {
		return err
	}
	upload := getMap(res, "upload")
	if getString(upload, "result") == "Success" {
		f.invalidate()
	}
	return nil
}

// ThumbURL derives the URL of a server-generated thumbnail. Exactly one of
// width and height must be nonzero; the other dimension is computed from
// the file's aspect ratio.
func (f *File) ThumbURL(ctx context.Context, width, height int) (string, error) {
	if (width == 0) == (height == 0) {
		return "", usageErrorf("a thumbnail needs either a width or a height, not both")
	}
	if err := f.derived(ctx); err != nil {
		return "", err
	}
	if width == 0 {
		if f.height == 0 {
			return "", usageErrorf("cannot scale by height: original height unknown")
		}
		width = height * f.width / f.height
	}

	// Original: .../<hash1>/<hash2>/<name>
	// Thumb:    .../thumb/<hash1>/<hash2>/<name>/<N>px-<name>
	parts := strings.Split(f.url, "/")
	if len(parts) < 3 {
		return "", usageErrorf("file URL %q has no thumbnail form", f.url)
	}
	name := parts[len(parts)-1]
	head := parts[:len(parts)-3]
	tail := parts[len(parts)-3:]

	rebuilt := append([]string{}, head...)
	rebuilt = append(rebuilt, "thumb")
	rebuilt = append(rebuilt, tail...)
	rebuilt = append(rebuilt, fmt.Sprintf("%dpx-%s", width, name))
	return strings.Join(rebuilt, "/"), nil
}
