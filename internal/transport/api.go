package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"chessclient/internal/protocol"
)

// API is the request/response half of the transport: login, credential
// validation, room creation and bot-mode moves.
type API struct {
	base string
	http *http.Client
	log  *zap.SugaredLogger
}

func NewAPI(baseURL string, log *zap.SugaredLogger) *API {
	return &API{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
		log:  log,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for an opaque bearer token.
func (a *API) Login(ctx context.Context, email, password string) (string, error) {
	var out loginResponse
	status, err := a.post(ctx, "/submit/login", "", loginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", ErrBadCredentials
	}
	return out.Token, nil
}

type validateResponse struct {
	ELO int `json:"elo"`
}

// Validate checks the token against the authority and returns the rating it
// reports. A non-2xx response means the token is no longer good.
func (a *API) Validate(ctx context.Context, token string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+"/api/validate", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.http.Do(req)
	if err != nil {
		return 0, &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, ErrUnauthenticated
	}
	var out validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode validate response: %w", err)
	}
	return out.ELO, nil
}

type createRoomResponse struct {
	RoomID string `json:"roomID"`
}

// CreateRoom asks the authority for a fresh room identifier.
func (a *API) CreateRoom(ctx context.Context, token string) (string, error) {
	var out createRoomResponse
	status, err := a.post(ctx, "/api/rooms/create", token, struct{}{}, &out)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("create room: status %d", status)
	}
	return out.RoomID, nil
}

type botMoveRequest struct {
	CurrentFEN     string `json:"currentFen"`
	PlayerMove     string `json:"playerMove"`
	PromotionPiece string `json:"promotionPiece"`
}

// BotMoveResult is the authority's answer to a bot-mode move: the position
// after both the player's move and the bot's reply.
type BotMoveResult struct {
	NewFEN     string `json:"newFen"`
	GameStatus string `json:"gameStatus"`
}

// BotMove submits one move against the automated opponent. Any non-2xx
// response is a RejectedMoveError; the caller rolls back regardless of cause.
func (a *API) BotMove(ctx context.Context, token, currentFEN string, move protocol.Move) (BotMoveResult, error) {
	body := botMoveRequest{
		CurrentFEN:     currentFEN,
		PlayerMove:     move.From + move.To,
		PromotionPiece: move.Promotion,
	}
	var out BotMoveResult
	status, err := a.post(ctx, "/api/bot/move", token, body, &out)
	if err != nil {
		return BotMoveResult{}, err
	}
	if status != http.StatusOK {
		return BotMoveResult{}, &RejectedMoveError{Status: status}
	}
	return out, nil
}

func (a *API) post(ctx context.Context, path, token string, in, out any) (int, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return 0, &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}
