package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/chxlky/trello-timers/internal/config"
	"github.com/chxlky/trello-timers/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	trelloAPI  = "https://api.trello.com/1"
	cardFields = "name,idLabels,due,closed,idList,idBoard,shortUrl"
	dueLayout  = "2006-01-02T15:04:05.000Z"
)

type TrelloClient struct {
	Client   *http.Client
	BaseURL  string
	APIKey   string
	APIToken string

	attempts uint
	delay    time.Duration
	limiter  *rate.Limiter
	logger   *zap.Logger

	mu     sync.RWMutex
	labels map[string]string // label id -> name, across resolved boards
}

func NewTrelloClient(key, token string, retryCfg config.RetryConfig, rateLimit float64, logger *zap.Logger) *TrelloClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if rateLimit > 0 {
		limit = rate.Limit(rateLimit)
	}
	attempts := retryCfg.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return &TrelloClient{
		Client:   &http.Client{Timeout: 30 * time.Second},
		BaseURL:  trelloAPI,
		APIKey:   key,
		APIToken: token,
		attempts: attempts,
		delay:    retryCfg.Delay,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
		labels:   make(map[string]string),
	}
}

// statusError is a non-2xx response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("trello API returned status %d: %s", e.code, e.body)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

// do issues one API call with rate limiting and bounded exponential-backoff
// retries. Exhausted or non-retryable failures come back as *models.APIError.
func (tc *TrelloClient) do(ctx context.Context, op, method, path, cardID string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("key", tc.APIKey)
	params.Set("token", tc.APIToken)
	apiURL := tc.BaseURL + path + "?" + params.Encode()

	err := retry.Do(
		func() error {
			if err := tc.limiter.Wait(ctx); err != nil {
				return err
			}
			return tc.send(ctx, method, apiURL, out)
		},
		retry.Context(ctx),
		retry.Attempts(tc.attempts),
		retry.Delay(tc.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			tc.logger.Debug("Retrying Trello request",
				zap.String("op", op),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
	if err == nil {
		return nil
	}

	apiErr := &models.APIError{Op: op, CardID: cardID, Err: err}
	var se *statusError
	if errors.As(err, &se) {
		apiErr.StatusCode = se.code
	}
	return apiErr
}

func (tc *TrelloClient) send(ctx context.Context, method, apiURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", strings.ToLower(method), err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := tc.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s request: %w", strings.ToLower(method), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(bodyBytes))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode Trello response: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *models.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ResolveScope finds the target list, by id when listID is set and by name
// on boardID otherwise, and loads the board's labels.
func (tc *TrelloClient) ResolveScope(ctx context.Context, boardID, listID, listName string) (models.Scope, error) {
	var scope models.Scope

	if listID != "" {
		var lst models.TrelloList
		err := tc.do(ctx, "get list", http.MethodGet, "/lists/"+url.PathEscape(listID), "",
			url.Values{"fields": {"name,idBoard,closed"}}, &lst)
		if isNotFound(err) {
			return scope, &models.ResolutionError{Kind: "list", Name: listID}
		}
		if err != nil {
			return scope, err
		}
		scope = models.Scope{BoardID: lst.IDBoard, ListID: lst.ID}
	} else {
		var lists []models.TrelloList
		err := tc.do(ctx, "get board lists", http.MethodGet, "/boards/"+url.PathEscape(boardID)+"/lists", "",
			url.Values{"fields": {"name,idBoard,closed"}}, &lists)
		if isNotFound(err) {
			return scope, &models.ResolutionError{Kind: "board", Name: boardID}
		}
		if err != nil {
			return scope, err
		}
		for _, lst := range lists {
			if lst.Name == listName {
				scope = models.Scope{BoardID: boardID, ListID: lst.ID}
				break
			}
		}
		if scope.ListID == "" {
			return scope, &models.ResolutionError{Kind: "list", Name: listName}
		}
	}

	if err := tc.loadLabels(ctx, scope.BoardID); err != nil {
		return scope, err
	}
	tc.logger.Info("Resolved Trello scope", zap.String("boardID", scope.BoardID), zap.String("listID", scope.ListID))
	return scope, nil
}

func (tc *TrelloClient) loadLabels(ctx context.Context, boardID string) error {
	var labels []models.TrelloLabel
	if err := tc.do(ctx, "get board labels", http.MethodGet, "/boards/"+url.PathEscape(boardID)+"/labels", "",
		url.Values{"fields": {"name"}, "limit": {"1000"}}, &labels); err != nil {
		return err
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()
	for _, l := range labels {
		tc.labels[l.ID] = strings.ToLower(l.Name)
	}
	return nil
}

func (tc *TrelloClient) toCard(rc models.TrelloCard) (models.Card, error) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	card, err := rc.ToCard(tc.labels)
	if err != nil {
		return models.Card{}, fmt.Errorf("card %s: invalid due date %q: %w", rc.ID, rc.Due, err)
	}
	return card, nil
}

// toCards converts a listing. Cards that fail to convert are logged and
// left out so the rest of the listing is still reconciled.
func (tc *TrelloClient) toCards(raw []models.TrelloCard) []models.Card {
	cards := make([]models.Card, 0, len(raw))
	for _, rc := range raw {
		card, err := tc.toCard(rc)
		if err != nil {
			tc.logger.Warn("Skipping unreadable card", zap.String("cardID", rc.ID), zap.Error(err))
			continue
		}
		cards = append(cards, card)
	}
	return cards
}

// ListArchivedCards returns the board's archived cards.
func (tc *TrelloClient) ListArchivedCards(ctx context.Context, scope models.Scope) ([]models.Card, error) {
	var raw []models.TrelloCard
	if err := tc.do(ctx, "list archived cards", http.MethodGet, "/boards/"+url.PathEscape(scope.BoardID)+"/cards/closed", "",
		url.Values{"fields": {cardFields}}, &raw); err != nil {
		return nil, err
	}
	return tc.toCards(raw), nil
}

// ListActiveCards returns the open cards of the target list.
func (tc *TrelloClient) ListActiveCards(ctx context.Context, scope models.Scope) ([]models.Card, error) {
	var raw []models.TrelloCard
	if err := tc.do(ctx, "list active cards", http.MethodGet, "/lists/"+url.PathEscape(scope.ListID)+"/cards", "",
		url.Values{"fields": {cardFields}}, &raw); err != nil {
		return nil, err
	}
	return tc.toCards(raw), nil
}

func (tc *TrelloClient) GetCard(ctx context.Context, cardID string) (models.Card, error) {
	var raw models.TrelloCard
	if err := tc.do(ctx, "get card", http.MethodGet, "/cards/"+url.PathEscape(cardID), cardID,
		url.Values{"fields": {cardFields}}, &raw); err != nil {
		return models.Card{}, err
	}
	return tc.toCard(raw)
}

func (tc *TrelloClient) updateCard(ctx context.Context, op, cardID string, params url.Values) error {
	return tc.do(ctx, op, http.MethodPut, "/cards/"+url.PathEscape(cardID), cardID, params, nil)
}

func (tc *TrelloClient) Unarchive(ctx context.Context, cardID string) error {
	return tc.updateCard(ctx, "unarchive card", cardID, url.Values{"closed": {"false"}})
}

func (tc *TrelloClient) Archive(ctx context.Context, cardID string) error {
	return tc.updateCard(ctx, "archive card", cardID, url.Values{"closed": {"true"}})
}

func (tc *TrelloClient) MoveToList(ctx context.Context, cardID, listID string) error {
	return tc.updateCard(ctx, "move card", cardID, url.Values{"idList": {listID}, "pos": {"bottom"}})
}

func (tc *TrelloClient) SetDue(ctx context.Context, cardID string, due time.Time) error {
	return tc.updateCard(ctx, "set due", cardID, url.Values{"due": {due.UTC().Format(dueLayout)}})
}

func (tc *TrelloClient) Delete(ctx context.Context, cardID string) error {
	return tc.do(ctx, "delete card", http.MethodDelete, "/cards/"+url.PathEscape(cardID), cardID, nil, nil)
}
