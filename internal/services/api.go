// API service for the flashcards REST backend
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/shared"
	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "http://127.0.0.1:8000"

// APIService talks to the REST backend. Requests carry the bearer token set with [APIService.SetToken]
// and are paced by a client-side rate limiter.
type APIService struct {
	baseURL string
	base    *http.Client
	limiter *rate.Limiter

	mu         sync.RWMutex
	token      string
	httpClient *http.Client
	logger     *log.Logger
}

// APIOption configures an [APIService].
type APIOption func(*APIService)

// WithRateLimit caps the request rate. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) APIOption {
	return func(a *APIService) {
		if rps <= 0 {
			a.limiter = nil
			return
		}
		a.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithToken sets the initial bearer token.
func WithToken(token string) APIOption {
	return func(a *APIService) { a.setToken(token) }
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) APIOption {
	return func(a *APIService) { a.logger = shared.WithLogger(l, "component", "api") }
}

// NewAPIService creates a new API service instance for the REST backend.
func NewAPIService(baseURL string, client *http.Client, opts ...APIOption) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	a := &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		base:       client,
		httpClient: client,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetToken replaces the bearer token. An empty token makes requests anonymous.
func (a *APIService) SetToken(token string) {
	a.setToken(token)
}

func (a *APIService) setToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.token = token
	if token == "" {
		a.httpClient = a.base
		return
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, a.base)
	c := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	c.Timeout = a.base.Timeout
	a.httpClient = c
}

// Token returns the current bearer token.
func (a *APIService) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// SetLogger replaces the request logger.
func (a *APIService) SetLogger(l *log.Logger) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger = shared.WithLogger(l, "component", "api")
}

// BaseURL returns the server root every path is resolved against.
func (a *APIService) BaseURL() string { return a.baseURL }

func (a *APIService) log() *log.Logger {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.logger
}

func (a *APIService) client() *http.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.httpClient
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// TokenResponse is the body returned by the login endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodGet, path, nil, "")
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPost, path, bytes.NewReader(data), "application/json")
}

// Delete performs a DELETE request to the specified path and returns the raw response.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodDelete, path, nil, "")
}

func (a *APIService) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
	}

	resp, err := a.client().Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %w", shared.ErrTimeout, err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	a.log().Debug("api request", "method", method, "path", path, "status", resp.StatusCode)

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}

	var jsonData any
	if err := json.Unmarshal(data, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// doJSON sends payload as JSON (when non-nil), checks the status and decodes the body into result (when non-nil).
func (a *APIService) doJSON(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: failed to encode request: %v", shared.ErrInvalidInput, err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	resp, err := a.do(ctx, method, path, body, contentType)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	return decodeResponse(resp, result)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func decodeResponse(resp *APIResponse, result any) error {
	if err := checkStatus(resp); err != nil {
		return err
	}
	if result == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

func checkStatus(resp *APIResponse) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	detail := errorDetail(resp)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrUploadNotFound, detail)
	default:
		return fmt.Errorf("%w (status %d): %s", shared.ErrAPIRequest, resp.StatusCode, detail)
	}
}

// errorDetail extracts the backend's "detail" message. Validation errors carry a list of objects with "msg".
func errorDetail(resp *APIResponse) string {
	if obj, ok := resp.JSONData.(map[string]any); ok {
		switch d := obj["detail"].(type) {
		case string:
			return d
		case []any:
			if len(d) > 0 {
				if item, ok := d[0].(map[string]any); ok {
					if msg, ok := item["msg"].(string); ok {
						return msg
					}
				}
			}
		}
	}
	if text := strings.TrimSpace(string(resp.Body)); text != "" && !resp.IsJSON && len(text) < 200 {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// Login exchanges a username and password for a bearer token and starts using it.
func (a *APIService) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", shared.ErrMissingCredentials)
	}

	var tok TokenResponse
	payload := map[string]string{"username": username, "password": password}
	if err := a.doJSON(ctx, http.MethodPost, "/auth/login", payload, &tok); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return nil, fmt.Errorf("%w: %w", shared.ErrInvalidCredentials, err)
		}
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response has no access_token", shared.ErrAuthFailed)
	}

	a.SetToken(tok.AccessToken)
	return &tok, nil
}

// Register creates an account.
func (a *APIService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", shared.ErrMissingArgument)
	}

	var user models.User
	payload := map[string]string{"username": username, "email": email, "password": password}
	if err := a.doJSON(ctx, http.MethodPost, "/auth/register", payload, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the account the token belongs to.
func (a *APIService) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := a.doJSON(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUploads fetches one page of the caller's uploads.
//
// Backends that return a bare array instead of a page object are paginated and filtered locally.
func (a *APIService) ListUploads(ctx context.Context, p models.ListParams) (*models.UploadPage, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 4
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("page_size", strconv.Itoa(p.PageSize))
	if p.Search != "" {
		q.Set("search", p.Search)
	}

	resp, err := a.Get(ctx, "/uploads/?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	if trimmed := bytes.TrimSpace(resp.Body); len(trimmed) > 0 && trimmed[0] == '[' {
		var all []models.Upload
		if err := json.Unmarshal(trimmed, &all); err != nil {
			return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
		return PaginateLocal(all, p), nil
	}

	var page models.UploadPage
	if err := decodeResponse(resp, &page); err != nil {
		return nil, err
	}
	page.TotalPages = max(page.TotalPages, 1)
	return &page, nil
}

// PaginateLocal filters uploads by a case-insensitive filename match and returns page p.Page.
func PaginateLocal(all []models.Upload, p models.ListParams) *models.UploadPage {
	term := strings.ToLower(p.Search)
	filtered := make([]models.Upload, 0, len(all))
	for _, u := range all {
		if term == "" || strings.Contains(strings.ToLower(u.Filename), term) {
			filtered = append(filtered, u)
		}
	}

	size := max(p.PageSize, 1)
	total := max((len(filtered)+size-1)/size, 1)
	start := min((max(p.Page, 1)-1)*size, len(filtered))
	end := min(start+size, len(filtered))
	return &models.UploadPage{Items: filtered[start:end], TotalPages: total}
}

// GetUploadText returns the extracted text of one upload.
func (a *APIService) GetUploadText(ctx context.Context, id int) (*models.UploadText, error) {
	var text models.UploadText
	if err := a.doJSON(ctx, http.MethodGet, fmt.Sprintf("/uploads/%d/text", id), nil, &text); err != nil {
		return nil, err
	}
	return &text, nil
}

// DeleteUpload removes one upload.
func (a *APIService) DeleteUpload(ctx context.Context, id int) error {
	return a.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/uploads/%d", id), nil, nil)
}

// ClearUploads removes every upload of the caller.
func (a *APIService) ClearUploads(ctx context.Context) error {
	return a.doJSON(ctx, http.MethodDelete, "/uploads/clear", nil, nil)
}

// GetCards returns the flashcards generated for an upload.
func (a *APIService) GetCards(ctx context.Context, uploadID int) ([]models.Card, error) {
	var cards []models.Card
	if err := a.doJSON(ctx, http.MethodGet, fmt.Sprintf("/cards/%d", uploadID), nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// GenerateCards asks the backend to generate flashcards for an upload. The call returns once generation
// finishes; status events for the upload arrive on the push channel meanwhile.
func (a *APIService) GenerateCards(ctx context.Context, uploadID int) (*models.GenerateResult, error) {
	var result models.GenerateResult
	if err := a.doJSON(ctx, http.MethodPost, fmt.Sprintf("/ai/generate_cards/%d", uploadID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateCard adds a hand-written flashcard to an upload.
func (a *APIService) CreateCard(ctx context.Context, uploadID int, in models.CardInput) (*models.Card, error) {
	in.Question = strings.TrimSpace(in.Question)
	in.Answer = strings.TrimSpace(in.Answer)
	if in.Question == "" || in.Answer == "" {
		return nil, fmt.Errorf("%w: question and answer are required", shared.ErrInvalidInput)
	}

	var card models.Card
	if err := a.doJSON(ctx, http.MethodPost, fmt.Sprintf("/cards/%d", uploadID), in, &card); err != nil {
		return nil, err
	}
	if card.UploadID == 0 {
		card.UploadID = uploadID
	}
	return &card, nil
}

// DeleteCard removes one flashcard by its own id.
func (a *APIService) DeleteCard(ctx context.Context, cardID int) error {
	err := a.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/cards/%d", cardID), nil, nil)
	if errors.Is(err, shared.ErrUploadNotFound) {
		return fmt.Errorf("%w: #%d", shared.ErrCardNotFound, cardID)
	}
	return err
}

// UploadPDF uploads the PDF at path.
func (a *APIService) UploadPDF(ctx context.Context, path string) (*models.UploadResult, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("%w: %s is not a PDF", shared.ErrInvalidArgument, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	defer f.Close()

	return a.UploadPDFReader(ctx, filepath.Base(path), f)
}

// UploadPDFReader uploads a PDF read from r under filename as the multipart field "file".
func (a *APIService) UploadPDFReader(ctx context.Context, filename string, r io.Reader) (*models.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	resp, err := a.do(ctx, http.MethodPost, "/upload-pdf", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	var result models.UploadResult
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
