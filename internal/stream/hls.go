package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"mediadl/internal/models"

	"github.com/grafov/m3u8"
)

// HLSSource streams the segments of an HLS playlist back to back.
//
// Master playlists resolve to their highest-bandwidth variant. The total size
// is never declared; encrypted playlists are rejected.
type HLSSource struct {
	Client *http.Client
	URL    string
}

// IsHLS reports whether a format is delivered as an HLS playlist.
func IsHLS(f models.Format) bool {
	mt := strings.ToLower(f.MimeType)
	if strings.Contains(mt, "mpegurl") {
		return true
	}
	u, err := url.Parse(f.URL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".m3u8")
}

// Open fetches the playlist and returns a reader over its segments.
func (s *HLSSource) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	base, err := url.Parse(s.URL)
	if err != nil {
		return nil, models.UnknownTotal, err
	}

	media, base, err := s.mediaPlaylist(ctx, client, base, 0)
	if err != nil {
		return nil, models.UnknownTotal, err
	}
	if media.Key != nil && media.Key.Method != "" && media.Key.Method != "NONE" {
		return nil, models.UnknownTotal, errors.New("encrypted HLS playlists are not supported")
	}

	var segs []*url.URL
	for _, seg := range media.Segments {
		if seg == nil {
			break
		}
		if seg.Key != nil && seg.Key.Method != "" && seg.Key.Method != "NONE" {
			return nil, models.UnknownTotal, errors.New("encrypted HLS segments are not supported")
		}
		u, err := base.Parse(seg.URI)
		if err != nil {
			return nil, models.UnknownTotal, fmt.Errorf("invalid segment URI %q: %w", seg.URI, err)
		}
		segs = append(segs, u)
	}
	if len(segs) == 0 {
		return nil, models.UnknownTotal, errors.New("playlist has no segments")
	}

	return &segmentReader{ctx: ctx, client: client, segs: segs}, models.UnknownTotal, nil
}

// mediaPlaylist decodes u, following a master playlist to its best variant once.
func (s *HLSSource) mediaPlaylist(ctx context.Context, client *http.Client, u *url.URL, depth int) (*m3u8.MediaPlaylist, *url.URL, error) {
	body, err := get(ctx, client, u)
	if err != nil {
		return nil, nil, err
	}
	defer body.Close()

	pl, listType, err := m3u8.DecodeFrom(body, true)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode playlist: %w", err)
	}

	switch listType {
	case m3u8.MEDIA:
		return pl.(*m3u8.MediaPlaylist), u, nil
	case m3u8.MASTER:
		if depth > 0 {
			return nil, nil, errors.New("nested master playlists")
		}
		master := pl.(*m3u8.MasterPlaylist)
		var best *m3u8.Variant
		for _, v := range master.Variants {
			if v == nil {
				continue
			}
			if best == nil || v.Bandwidth > best.Bandwidth {
				best = v
			}
		}
		if best == nil {
			return nil, nil, errors.New("master playlist has no variants")
		}
		next, err := u.Parse(best.URI)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid variant URI %q: %w", best.URI, err)
		}
		return s.mediaPlaylist(ctx, client, next, depth+1)
	default:
		return nil, nil, errors.New("unknown playlist type")
	}
}

func get(ctx context.Context, client *http.Client, u *url.URL) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected HTTP status %s for %s", resp.Status, u.Redacted())
	}
	return resp.Body, nil
}

// segmentReader reads segments sequentially, opening each one lazily.
type segmentReader struct {
	ctx    context.Context
	client *http.Client
	segs   []*url.URL

	mu     sync.Mutex
	cur    io.ReadCloser
	next   int
	closed bool
}

func (r *segmentReader) Read(p []byte) (int, error) {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return 0, io.ErrClosedPipe
		}
		cur := r.cur
		r.mu.Unlock()

		if cur == nil {
			if r.next >= len(r.segs) {
				return 0, io.EOF
			}
			body, err := get(r.ctx, r.client, r.segs[r.next])
			if err != nil {
				return 0, err
			}
			r.mu.Lock()
			if r.closed {
				r.mu.Unlock()
				body.Close()
				return 0, io.ErrClosedPipe
			}
			r.cur = body
			r.next++
			r.mu.Unlock()
			cur = body
		}

		n, err := cur.Read(p)
		if err == io.EOF {
			cur.Close()
			r.mu.Lock()
			r.cur = nil
			r.mu.Unlock()
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

// Close aborts the current segment request.
func (r *segmentReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.cur != nil {
		return r.cur.Close()
	}
	return nil
}
