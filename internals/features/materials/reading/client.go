package reading

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	hdto "sekolahku_backend/internals/features/materials/hierarchy/dto"
	pdto "sekolahku_backend/internals/features/materials/progress/dto"
	helper "sekolahku_backend/internals/helpers"
)

// Client: Source lewat HTTP API (/api/u/...). Identitas siswa diambil server
// dari bearer token.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.client = hc }
}

func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func (c *Client) Tree(ctx context.Context, materialID uuid.UUID) (*hdto.MaterialTree, error) {
	var out envelope[hdto.MaterialTree]
	if err := c.do(ctx, http.MethodGet, "/api/u/materials/"+materialID.String()+"/tree", nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) CompletedSubChapters(ctx context.Context, _ uuid.UUID, materialID uuid.UUID) (map[uuid.UUID]bool, error) {
	q := url.Values{"material_id": {materialID.String()}}
	var out envelope[pdto.MaterialViewResponse]
	if err := c.do(ctx, http.MethodGet, "/api/u/progress?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	done := make(map[uuid.UUID]bool, len(out.Data.SubChapterProgress))
	for _, r := range out.Data.SubChapterProgress {
		if r.Completed {
			done[r.SubChapterID] = true
		}
	}
	return done, nil
}

func (c *Client) SetCompletion(ctx context.Context, _ uuid.UUID, subChapterID uuid.UUID, completed bool) (*pdto.CompletionResponse, error) {
	body := map[string]any{"sub_chapter_id": subChapterID.String(), "completed": completed}
	var out envelope[pdto.CompletionResponse]
	if err := c.do(ctx, http.MethodPost, "/api/u/progress/sub-chapter", body, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var rd io.Reader
	if in != nil {
		b, err := sonic.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send request: %v", helper.ErrStorage, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, raw)
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// statusError memetakan status HTTP kembali ke taksonomi error.
func statusError(code int, raw []byte) error {
	var e helper.ErrorResponse
	_ = sonic.Unmarshal(raw, &e)
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(code)
	}
	switch code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", helper.ErrUnauthenticated, msg)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", helper.ErrForbidden, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", helper.ErrNotFound, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", helper.ErrInvalid, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", helper.ErrConflict, msg)
	}
	return fmt.Errorf("%w: api status %d: %s", helper.ErrStorage, code, msg)
}
