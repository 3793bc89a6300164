package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"recruitflow/internal/config"
)

// OA push error codes: shown to operators, searched in logs, and used to
// decide whether an automatic retry makes sense.
const (
	OAErrorDisabled     = "OA_DISABLED"
	OAErrorConfig       = "OA_CONFIG_ERROR"
	OAErrorPayload      = "OA_PAYLOAD_INVALID"
	OAErrorTokenExpired = "OA_TOKEN_EXPIRED"
	OAErrorAuth         = "OA_AUTH_ERROR"
	OAErrorPermission   = "OA_PERMISSION_ERROR"
	OAErrorParam        = "OA_PARAM_ERROR"
	OAErrorServer       = "OA_SERVER_ERROR"
	OAErrorNetwork      = "OA_NETWORK_ERROR"
	OAErrorRuntime      = "OA_RUNTIME_ERROR"
)

// OAPushResult is the classified outcome of one OA interaction.
type OAPushResult struct {
	Success         bool
	Retryable       bool
	ErrorCode       string
	ErrorMessage    string
	OACode          string
	OAMessage       string
	RequestID       string
	PayloadSnapshot map[string]interface{}
}

// OAGateway performs the two OA network calls. Each call classifies its own
// outcome; the orchestrator never inspects raw vendor responses.
type OAGateway interface {
	ApplyToken(ctx context.Context) (string, *OAPushResult)
	CreateRequest(ctx context.Context, token string, payload *OAPayload) *OAPushResult
}

type httpOAGateway struct {
	cfg    config.OAPushConfig
	client *http.Client
}

func NewOAGateway(cfg config.OAPushConfig) OAGateway {
	return &httpOAGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// ApplyToken requests a fresh bearer token, returning the token and its
// classified result. The secret travels encrypted with the vendor public key.
func (g *httpOAGateway) ApplyToken(ctx context.Context) (string, *OAPushResult) {
	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/api/ec/dev/auth/applytoken"

	encryptedSecret, err := encryptWithPublicKey(g.cfg.PublicKey, g.cfg.Secret)
	if err != nil {
		return "", &OAPushResult{
			Success:      false,
			Retryable:    false,
			ErrorCode:    OAErrorConfig,
			ErrorMessage: fmt.Sprintf("failed to encrypt OA secret: %v", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", &OAPushResult{
			Success:      false,
			Retryable:    false,
			ErrorCode:    OAErrorRuntime,
			ErrorMessage: fmt.Sprintf("failed to build token request: %v", err),
		}
	}
	req.Header.Set("appid", g.cfg.AppID)
	req.Header.Set("secret", encryptedSecret)
	req.Header.Set("time", strconv.Itoa(int(g.cfg.TokenTTL.Seconds())))
	req.Header.Set("Content-Type", g.cfg.ContentType)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &OAPushResult{
			Success:      false,
			Retryable:    true,
			ErrorCode:    OAErrorNetwork,
			ErrorMessage: fmt.Sprintf("OA token request failed: %v", err),
		}
	}
	defer resp.Body.Close()

	payload := decodeJSONBody(resp.Body)
	token := extractToken(payload)

	if resp.StatusCode >= 400 {
		result := classifyOAFailure(payload, resp.StatusCode)
		if result.ErrorCode == "" {
			result.ErrorCode = OAErrorAuth
			result.ErrorMessage = "OA token request rejected"
		}
		return "", result
	}
	if token == "" {
		result := classifyOAFailure(payload, resp.StatusCode)
		if result.Success || result.ErrorCode == "" {
			result.Success = false
			result.ErrorCode = OAErrorRuntime
			result.ErrorMessage = "OA returned an empty token"
		}
		return "", result
	}

	return token, &OAPushResult{Success: true}
}

// CreateRequest starts the OA workflow for the candidate using an existing
// token. The user id header travels encrypted like the secret.
func (g *httpOAGateway) CreateRequest(ctx context.Context, token string, payload *OAPayload) *OAPushResult {
	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/api/workflow/paService/doCreateRequest"

	encryptedUserID, err := encryptWithPublicKey(g.cfg.PublicKey, g.cfg.UserID)
	if err != nil {
		return &OAPushResult{
			Success:      false,
			Retryable:    false,
			ErrorCode:    OAErrorConfig,
			ErrorMessage: fmt.Sprintf("failed to encrypt OA user id: %v", err),
		}
	}

	body, contentType, err := encodeCreateRequestBody(payload, g.cfg.ContentType)
	if err != nil {
		return &OAPushResult{
			Success:      false,
			Retryable:    false,
			ErrorCode:    OAErrorPayload,
			ErrorMessage: fmt.Sprintf("failed to encode OA request body: %v", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return &OAPushResult{
			Success:      false,
			Retryable:    false,
			ErrorCode:    OAErrorRuntime,
			ErrorMessage: fmt.Sprintf("failed to build OA push request: %v", err),
		}
	}
	req.Header.Set("appid", g.cfg.AppID)
	req.Header.Set("token", token)
	req.Header.Set("userid", encryptedUserID)
	req.Header.Set("Content-Type", contentType)

	resp, err := g.client.Do(req)
	if err != nil {
		return &OAPushResult{
			Success:         false,
			Retryable:       true,
			ErrorCode:       OAErrorNetwork,
			ErrorMessage:    fmt.Sprintf("OA push request failed: %v", err),
			PayloadSnapshot: payload.Snapshot(),
		}
	}
	defer resp.Body.Close()

	result := classifyOAFailure(decodeJSONBody(resp.Body), resp.StatusCode)
	result.PayloadSnapshot = payload.Snapshot()
	if result.Success {
		result.ErrorCode = ""
		result.ErrorMessage = ""
	}
	return result
}

// classifyOAFailure maps a raw OA response onto the internal result taxonomy.
// A request id anywhere in the body means the workflow was created.
func classifyOAFailure(payload map[string]interface{}, httpStatus int) *OAPushResult {
	code := strings.TrimSpace(stringField(payload, "code"))
	message := extractErrorMessage(payload)
	requestID := extractRequestID(payload)

	if requestID != "" {
		return &OAPushResult{
			Success:   true,
			RequestID: requestID,
			OACode:    code,
			OAMessage: message,
		}
	}

	if isTokenInvalid(message, code) {
		return &OAPushResult{
			Success:      false,
			Retryable:    true,
			ErrorCode:    OAErrorTokenExpired,
			ErrorMessage: fallback(message, "OA token no longer valid"),
			OACode:       code,
			OAMessage:    message,
		}
	}

	switch strings.ToUpper(code) {
	case "NO_PERMISSION":
		return &OAPushResult{
			Success:      false,
			Retryable:    false,
			ErrorCode:    OAErrorPermission,
			ErrorMessage: fallback(message, "OA permission denied"),
			OACode:       code,
			OAMessage:    message,
		}
	case "PARAM_ERROR":
		return &OAPushResult{
			Success:      false,
			Retryable:    false,
			ErrorCode:    OAErrorParam,
			ErrorMessage: fallback(message, "OA rejected the request parameters"),
			OACode:       code,
			OAMessage:    message,
		}
	}

	if httpStatus >= 500 || strings.ToUpper(code) == "SYSTEM_INNER_ERROR" || strings.ToUpper(code) == "USER_EXCEPTION" {
		return &OAPushResult{
			Success:      false,
			Retryable:    true,
			ErrorCode:    OAErrorServer,
			ErrorMessage: fallback(message, "OA service error"),
			OACode:       code,
			OAMessage:    message,
		}
	}
	if httpStatus >= 400 {
		return &OAPushResult{
			Success:      false,
			Retryable:    false,
			ErrorCode:    OAErrorAuth,
			ErrorMessage: fallback(message, fmt.Sprintf("OA request failed (%d)", httpStatus)),
			OACode:       code,
			OAMessage:    message,
		}
	}
	return &OAPushResult{
		Success:      false,
		Retryable:    false,
		ErrorCode:    OAErrorRuntime,
		ErrorMessage: fallback(message, "unexpected OA response"),
		OACode:       code,
		OAMessage:    message,
	}
}

// isTokenInvalid sniffs the token-expired case from vendor messages. The OA
// side reports it inconsistently (English and Chinese variants), so this is a
// heuristic on both code and message.
func isTokenInvalid(message, code string) bool {
	text := strings.ToLower(code + " " + message)
	if strings.Contains(text, "token expired") {
		return true
	}
	if !strings.Contains(text, "token") {
		return false
	}
	return strings.Contains(text, "invalid") ||
		strings.Contains(text, "超时") ||
		strings.Contains(text, "不存在")
}

func decodeJSONBody(r io.Reader) map[string]interface{} {
	data, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return map[string]interface{}{}
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return map[string]interface{}{}
	}
	return payload
}

func stringField(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func extractErrorMessage(payload map[string]interface{}) string {
	for _, key := range []string{"errMsg", "message", "msg"} {
		if value := stringField(payload, key); value != "" {
			return value
		}
	}
	return ""
}

func extractToken(payload map[string]interface{}) string {
	if token := stringField(payload, "token"); token != "" {
		return token
	}
	if data, ok := payload["data"].(map[string]interface{}); ok {
		return stringField(data, "token")
	}
	return ""
}

func extractRequestID(payload map[string]interface{}) string {
	if data, ok := payload["data"].(map[string]interface{}); ok {
		for _, key := range []string{"requestid", "requestId"} {
			if id := stringField(data, key); id != "" {
				return id
			}
		}
	}
	for _, key := range []string{"requestid", "requestId"} {
		if id := stringField(payload, key); id != "" {
			return id
		}
	}
	return ""
}

func fallback(value, def string) string {
	if value != "" {
		return value
	}
	return def
}

func encodeCreateRequestBody(payload *OAPayload, contentType string) (io.Reader, string, error) {
	if strings.Contains(strings.ToLower(contentType), "application/json") {
		data, err := json.Marshal(payload.Snapshot())
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal json payload: %w", err)
		}
		return bytes.NewReader(data), contentType, nil
	}

	// Form mode: complex fields ride as JSON strings inside the form.
	mainData, err := json.Marshal(payload.MainData)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal mainData: %w", err)
	}
	form := url.Values{}
	form.Set("workflowId", payload.WorkflowID)
	form.Set("requestName", payload.RequestName)
	form.Set("mainData", string(mainData))
	if payload.RequestLevel != "" {
		form.Set("requestLevel", payload.RequestLevel)
	}
	if payload.Remark != "" {
		form.Set("remark", payload.Remark)
	}
	return strings.NewReader(form.Encode()), contentType, nil
}

// normalizePublicKey wraps a bare base64 key into PEM so both formats can be
// configured.
func normalizePublicKey(spk string) string {
	key := strings.TrimSpace(spk)
	if strings.Contains(key, "BEGIN PUBLIC KEY") || strings.Contains(key, "BEGIN RSA PUBLIC KEY") {
		return key
	}
	compact := strings.Join(strings.Fields(key), "")
	var lines []string
	for len(compact) > 64 {
		lines = append(lines, compact[:64])
		compact = compact[64:]
	}
	if compact != "" {
		lines = append(lines, compact)
	}
	return "-----BEGIN PUBLIC KEY-----\n" + strings.Join(lines, "\n") + "\n-----END PUBLIC KEY-----"
}

func encryptWithPublicKey(spk, plainText string) (string, error) {
	block, _ := pem.Decode([]byte(normalizePublicKey(spk)))
	if block == nil {
		return "", fmt.Errorf("invalid OA public key")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("failed to parse OA public key: %w", err)
	}
	publicKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return "", fmt.Errorf("OA public key is not RSA")
	}
	encrypted, err := rsa.EncryptPKCS1v15(rand.Reader, publicKey, []byte(plainText))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt with OA public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}
