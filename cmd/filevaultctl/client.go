package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tomjoyce1/filevault/internal/verrors"
	"github.com/tomjoyce1/filevault/pkg/authproto"
	"github.com/tomjoyce1/filevault/pkg/keybundle"
)

// apiClient is a thin HTTP wrapper that signs every mutating request per
// §4.8 and decodes the server's `{"message": ...}` error envelope into a
// verrors.ProtocolError the caller can branch on.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

// post signs and sends body as JSON to path on behalf of username, and
// decodes the JSON response into out (if non-nil).
func (c *apiClient) post(username, path string, body interface{}, out interface{}, bundle *keybundle.KeyBundle) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return verrors.NewProtocolError(verrors.ProtocolInternalServerError, err)
	}

	headers, err := authproto.BuildHeaders(username, time.Now(), http.MethodPost, path, string(bodyBytes), bundle.Signer.Classical, bundle.Signer.PostQuantum)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return verrors.NewProtocolError(verrors.ProtocolInternalServerError, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}

	if resp.StatusCode >= 300 {
		var envelope struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBytes, &envelope)
		return statusToError(resp.StatusCode, envelope.Message)
	}

	if out != nil {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return verrors.NewProtocolError(verrors.ProtocolInternalServerError, err)
		}
	}
	return nil
}

func statusToError(status int, message string) error {
	switch status {
	case http.StatusUnauthorized:
		return verrors.NewAuthError(verrors.AuthSignatureInvalid, fmt.Errorf("%s", message))
	case http.StatusNotFound:
		return verrors.NewProtocolError(verrors.ProtocolFileNotFound, fmt.Errorf("%s", message))
	case http.StatusConflict:
		return verrors.NewProtocolError(verrors.ProtocolDuplicateUsername, fmt.Errorf("%s", message))
	case http.StatusForbidden:
		return verrors.NewProtocolError(verrors.ProtocolUnauthorized, fmt.Errorf("%s", message))
	default:
		return verrors.NewProtocolError(verrors.ProtocolInternalServerError, fmt.Errorf("%s", message))
	}
}
