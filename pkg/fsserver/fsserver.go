// Package fsserver is a reference HTTP binding for the eight endpoints that
// connect a ClientStore to the server's storage and sharing records. It
// keeps the Non-goal'd persistence engine and SQL schema out of scope — all
// state lives in in-memory maps guarded by a single mutex, the way a real
// backend's route handlers would sit in front of a real store.
package fsserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tomjoyce1/filevault/internal/verrors"
	"github.com/tomjoyce1/filevault/pkg/authproto"
	"github.com/tomjoyce1/filevault/pkg/keybundle"
	"github.com/tomjoyce1/filevault/pkg/metrics"
)

const listPageSize = 20

type userEntry struct {
	Username     string
	PublicBundle *keybundle.PublicBundle
	PublicJSON   []byte
}

type fileEntry struct {
	FileID        uint64
	OwnerUsername string
	EncContent    []byte
	EncMetadata   []byte
	PreSig        []byte
	PostSig       []byte
	UploadTS      time.Time
}

type shareEntry struct {
	Owner              string
	Recipient          string
	FileID             uint64
	EphemeralPublicKey []byte
	EncryptedFEK       []byte
	EncryptedFEKNonce  []byte
	EncryptedMEK       []byte
	EncryptedMEKNonce  []byte
	FileContentNonce   []byte
	MetadataNonce      []byte
}

type shareKey struct {
	Owner     string
	Recipient string
	FileID    uint64
}

// sharedAccessView is the wire shape of a share record's rewrapped key
// material. Every field is stored as the client's base64 text (§6.2), so it
// must round-trip through JSON via string(...), not the raw packed bytes —
// encoding/json would otherwise base64-encode already-base64 text.
type sharedAccessView struct {
	EphemeralPublicKey string `json:"ephemeral_public_key"`
	EncryptedFEK       string `json:"encrypted_fek"`
	EncryptedFEKNonce  string `json:"encrypted_fek_nonce"`
	EncryptedMEK       string `json:"encrypted_mek"`
	EncryptedMEKNonce  string `json:"encrypted_mek_nonce"`
	FileContentNonce   string `json:"file_content_nonce"`
	MetadataNonce      string `json:"metadata_nonce"`
}

func newSharedAccessView(share *shareEntry) sharedAccessView {
	return sharedAccessView{
		EphemeralPublicKey: string(share.EphemeralPublicKey),
		EncryptedFEK:       string(share.EncryptedFEK),
		EncryptedFEKNonce:  string(share.EncryptedFEKNonce),
		EncryptedMEK:       string(share.EncryptedMEK),
		EncryptedMEKNonce:  string(share.EncryptedMEKNonce),
		FileContentNonce:   string(share.FileContentNonce),
		MetadataNonce:      string(share.MetadataNonce),
	}
}

// Server holds the reference in-memory record store and exposes an
// http.Handler wiring every endpoint through the authentication middleware.
type Server struct {
	mu         sync.RWMutex
	users      map[string]*userEntry
	files      map[uint64]*fileEntry
	shares     map[shareKey]*shareEntry
	nextFileID uint64
	log        *metrics.Logger
}

// New builds a Server with empty record stores.
func New() *Server {
	return &Server{
		users:      make(map[string]*userEntry),
		files:      make(map[uint64]*fileEntry),
		shares:     make(map[shareKey]*shareEntry),
		nextFileID: 1,
		log:        metrics.NewLogger(metrics.WithName("fsserver")),
	}
}

// Router builds the gorilla/mux router binding every §6.1 endpoint, wrapped
// in a request-ID middleware that sets X-Request-Id on the response and logs
// it on the "request received" line; other log lines do not carry it.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/keyhandler/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/keyhandler/getbundle", s.authenticated(s.handleGetBundle)).Methods(http.MethodPost)
	r.HandleFunc("/api/fs/upload", s.authenticated(s.handleUpload)).Methods(http.MethodPost)
	r.HandleFunc("/api/fs/list", s.authenticated(s.handleList)).Methods(http.MethodPost)
	r.HandleFunc("/api/fs/download", s.authenticated(s.handleDownload)).Methods(http.MethodPost)
	r.HandleFunc("/api/fs/delete", s.authenticated(s.handleDelete)).Methods(http.MethodPost)
	r.HandleFunc("/api/fs/share", s.authenticated(s.handleShare)).Methods(http.MethodPost)
	r.HandleFunc("/api/fs/revoke", s.authenticated(s.handleRevoke)).Methods(http.MethodPost)
	return s.withRequestID(r)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		s.log.Debug("request received", metrics.Fields{"request_id": id, "path": r.URL.Path})
		next.ServeHTTP(w, r)
	})
}

type contextKey string

const ctxAuthenticatedUser contextKey = "authenticatedUser"

// authenticated wraps next with the §4.8 server verification algorithm: it
// reads the raw body once, recomputes the canonical request against the
// claimed user's already-registered public bundle, and only invokes next
// once Authorize succeeds.
func (s *Server) authenticated(next func(w http.ResponseWriter, r *http.Request, body []byte)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, verrors.NewAuthError(verrors.AuthMalformed, err))
			return
		}

		v := authproto.NewVerification()
		parsed, err := v.ParseHeaders(
			r.Header.Get(authproto.HeaderUsername),
			r.Header.Get(authproto.HeaderTimestamp),
			r.Header.Get(authproto.HeaderSignature),
		)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if err := v.CheckFreshness(parsed, time.Now()); err != nil {
			s.writeError(w, err)
			return
		}

		s.mu.RLock()
		entry, ok := s.users[parsed.Username]
		s.mu.RUnlock()
		if !ok {
			s.writeError(w, verrors.NewAuthError(verrors.AuthUserUnknown, nil))
			return
		}

		if err := v.VerifySignatures(parsed, r.Method, r.URL.Path, string(body), entry.PublicBundle); err != nil {
			s.writeError(w, err)
			return
		}
		if err := v.Authorize(); err != nil {
			s.writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxAuthenticatedUser, parsed.Username)
		next(w, r.WithContext(ctx), body)
	}
}

func authenticatedUser(r *http.Request) string {
	v, _ := r.Context().Value(ctxAuthenticatedUser).(string)
	return v
}

// --- register -------------------------------------------------------------

type registerRequest struct {
	Username       string          `json:"username"`
	PublicKeyBundle json.RawMessage `json:"public_key_bundle"`
}

// handleRegister is unauthenticated by the generic middleware because the
// bundle being registered IS the identity the signature is checked against
// — the client signs the request with the same freshly-generated key pair
// it is registering, so verification here uses the body's own bundle
// instead of a prior lookup.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, verrors.NewAuthError(verrors.AuthMalformed, err))
		return
	}

	var req registerRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, verrors.NewAuthError(verrors.AuthMalformed, err))
		return
	}
	if req.Username == "" {
		s.writeError(w, verrors.NewAuthError(verrors.AuthMissing, nil))
		return
	}

	pub, err := keybundle.ImportPublicBundle(req.PublicKeyBundle)
	if err != nil {
		s.writeError(w, verrors.NewAuthError(verrors.AuthMalformed, err))
		return
	}

	v := authproto.NewVerification()
	parsed, err := v.ParseHeaders(
		r.Header.Get(authproto.HeaderUsername),
		r.Header.Get(authproto.HeaderTimestamp),
		r.Header.Get(authproto.HeaderSignature),
	)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if parsed.Username != req.Username {
		s.writeError(w, verrors.NewAuthError(verrors.AuthMalformed, nil))
		return
	}
	if err := v.CheckFreshness(parsed, time.Now()); err != nil {
		s.writeError(w, err)
		return
	}
	if err := v.VerifySignatures(parsed, r.Method, r.URL.Path, string(body), pub); err != nil {
		s.writeError(w, err)
		return
	}
	if err := v.Authorize(); err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Username]; exists {
		s.writeError(w, verrors.NewProtocolError(verrors.ProtocolDuplicateUsername, nil))
		return
	}
	s.users[req.Username] = &userEntry{Username: req.Username, PublicBundle: pub, PublicJSON: []byte(req.PublicKeyBundle)}
	s.log.Info("registered user", metrics.Fields{"op": "register", "username": req.Username})
	s.writeJSON(w, http.StatusCreated, map[string]string{"username": req.Username})
}

// --- getbundle --------------------------------------------------------------

type getBundleRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleGetBundle(w http.ResponseWriter, r *http.Request, body []byte) {
	var req getBundleRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, verrors.NewAuthError(verrors.AuthMalformed, err))
		return
	}

	s.mu.RLock()
	entry, ok := s.users[req.Username]
	s.mu.RUnlock()
	if !ok {
		s.writeError(w, verrors.NewProtocolError(verrors.ProtocolFileNotFound, nil))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]json.RawMessage{"key_bundle": json.RawMessage(entry.PublicJSON)})
}

// --- upload -----------------------------------------------------------------

type uploadRequest struct {
	FileContent              string `json:"file_content"`
	Metadata                 string `json:"metadata"`
	PreQuantumSignature      string `json:"pre_quantum_signature"`
	PostQuantumSignature     string `json:"post_quantum_signature"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, body []byte) {
	username := authenticatedUser(r)
	var req uploadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, verrors.NewAuthError(verrors.AuthMalformed, err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextFileID
	s.nextFileID++
	s.files[id] = &fileEntry{
		FileID:        id,
		OwnerUsername: username,
		EncContent:    []byte(req.FileContent),
		EncMetadata:   []byte(req.Metadata),
		PreSig:        []byte(req.PreQuantumSignature),
		PostSig:       []byte(req.PostQuantumSignature),
		UploadTS:      time.Now().UTC(),
	}
	s.writeJSON(w, http.StatusCreated, map[string]uint64{"file_id": id})
}

// --- list --------------------------------------------------------------------

type listRequest struct {
	Page int `json:"page"`
}

type fileMetadataListItem struct {
	FileID       uint64            `json:"file_id"`
	OwnerUserID  string            `json:"owner_user_id"`
	IsOwner      bool              `json:"is_owner"`
	UploadTS     time.Time         `json:"upload_ts"`
	SharedAccess *sharedAccessView `json:"shared_access,omitempty"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, body []byte) {
	username := authenticatedUser(r)
	var req listRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, verrors.NewAuthError(verrors.AuthMalformed, err))
		return
	}
	if req.Page < 1 {
		req.Page = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var visible []*fileEntry
	for _, f := range s.files {
		if f.OwnerUsername == username {
			visible = append(visible, f)
			continue
		}
		if _, shared := s.shares[shareKey{Owner: f.OwnerUsername, Recipient: username, FileID: f.FileID}]; shared {
			visible = append(visible, f)
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i].FileID < visible[j].FileID })

	start := (req.Page - 1) * listPageSize
	end := start + listPageSize
	hasNext := false
	var page []*fileEntry
	if start < len(visible) {
		if end > len(visible) {
			end = len(visible)
		} else {
			hasNext = end < len(visible)
		}
		page = visible[start:end]
	}

	items := make([]fileMetadataListItem, 0, len(page))
	for _, f := range page {
		item := fileMetadataListItem{
			FileID:      f.FileID,
			OwnerUserID: f.OwnerUsername,
			IsOwner:     f.OwnerUsername == username,
			UploadTS:    f.UploadTS,
		}
		if !item.IsOwner {
			if share, shared := s.shares[shareKey{Owner: f.OwnerUsername, Recipient: username, FileID: f.FileID}]; shared {
				view := newSharedAccessView(share)
				item.SharedAccess = &view
			}
		}
		items = append(items, item)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"fileData":    items,
		"hasNextPage": hasNext,
	})
}

// --- download ----------------------------------------------------------------

type downloadRequest struct {
	FileID uint64 `json:"file_id"`
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, body []byte) {
	username := authenticatedUser(r)
	var req downloadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, verrors.NewAuthError(verrors.AuthMalformed, err))
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[req.FileID]
	if !ok {
		s.writeError(w, verrors.NewProtocolError(verrors.ProtocolFileNotFound, nil))
		return
	}

	isOwner := f.OwnerUsername == username
	share, shared := s.shares[shareKey{Owner: f.OwnerUsername, Recipient: username, FileID: req.FileID}]
	if !isOwner && !shared {
		s.writeError(w, verrors.NewProtocolError(verrors.ProtocolFileNotFound, nil))
		return
	}

	resp := map[string]interface{}{
		"file_content":             string(f.EncContent),
		"metadata":                 string(f.EncMetadata),
		"pre_quantum_signature":    string(f.PreSig),
		"post_quantum_signature":   string(f.PostSig),
		"owner_user_id":            f.OwnerUsername,
		"is_owner":                 isOwner,
	}
	if !isOwner {
		resp["shared_access"] = newSharedAccessView(share)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// --- delete ------------------------------------------------------------------

type deleteRequest struct {
	FileID uint64 `json:"file_id"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, body []byte) {
	username := authenticatedUser(r)
	var req deleteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, verrors.NewAuthError(verrors.AuthMalformed, err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[req.FileID]
	if !ok {
		s.writeError(w, verrors.NewProtocolError(verrors.ProtocolFileNotFound, nil))
		return
	}
	if f.OwnerUsername != username {
		s.writeError(w, verrors.NewProtocolError(verrors.ProtocolUnauthorized, nil))
		return
	}

	delete(s.files, req.FileID)
	for key := range s.shares {
		if key.FileID == req.FileID && key.Owner == username {
			delete(s.shares, key)
		}
	}
	w.WriteHeader(http.StatusOK)
}

// --- share -------------------------------------------------------------------

type shareRequest struct {
	FileID             uint64 `json:"file_id"`
	SharedWithUsername string `json:"shared_with_username"`
	EncryptedFEK       string `json:"encrypted_fek"`
	EncryptedFEKNonce  string `json:"encrypted_fek_nonce"`
	EncryptedMEK       string `json:"encrypted_mek"`
	EncryptedMEKNonce  string `json:"encrypted_mek_nonce"`
	EphemeralPublicKey string `json:"ephemeral_public_key"`
	FileContentNonce   string `json:"file_content_nonce"`
	MetadataNonce      string `json:"metadata_nonce"`
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request, body []byte) {
	username := authenticatedUser(r)
	var req shareRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, verrors.NewAuthError(verrors.AuthMalformed, err))
		return
	}
	if req.SharedWithUsername == username {
		s.writeError(w, verrors.NewShareError(verrors.ShareSelfShareForbidden, nil))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[req.FileID]
	if !ok || f.OwnerUsername != username {
		s.writeError(w, verrors.NewProtocolError(verrors.ProtocolFileNotFound, nil))
		return
	}
	if _, ok := s.users[req.SharedWithUsername]; !ok {
		s.writeError(w, verrors.NewShareError(verrors.ShareInvalidRecipient, nil))
		return
	}

	key := shareKey{Owner: username, Recipient: req.SharedWithUsername, FileID: req.FileID}
	if _, exists := s.shares[key]; exists {
		s.writeError(w, verrors.NewShareError(verrors.ShareAlreadyShared, nil))
		return
	}

	s.shares[key] = &shareEntry{
		Owner:              username,
		Recipient:          req.SharedWithUsername,
		FileID:             req.FileID,
		EphemeralPublicKey: []byte(req.EphemeralPublicKey),
		EncryptedFEK:       []byte(req.EncryptedFEK),
		EncryptedFEKNonce:  []byte(req.EncryptedFEKNonce),
		EncryptedMEK:       []byte(req.EncryptedMEK),
		EncryptedMEKNonce:  []byte(req.EncryptedMEKNonce),
		FileContentNonce:   []byte(req.FileContentNonce),
		MetadataNonce:      []byte(req.MetadataNonce),
	}
	w.WriteHeader(http.StatusCreated)
}

// --- revoke ------------------------------------------------------------------

type revokeRequest struct {
	FileID   uint64 `json:"file_id"`
	Username string `json:"username"`
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request, body []byte) {
	owner := authenticatedUser(r)
	var req revokeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, verrors.NewAuthError(verrors.AuthMalformed, err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[req.FileID]
	if !ok || f.OwnerUsername != owner {
		s.writeError(w, verrors.NewProtocolError(verrors.ProtocolFileNotFound, nil))
		return
	}

	key := shareKey{Owner: owner, Recipient: req.Username, FileID: req.FileID}
	if _, exists := s.shares[key]; !exists {
		s.writeError(w, verrors.NewShareError(verrors.ShareNotShared, nil))
		return
	}
	delete(s.shares, key)
	w.WriteHeader(http.StatusOK)
}

// --- response helpers ----------------------------------------------------

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a verrors kind to an HTTP status code and writes a
// `{"message": ...}` body. It never includes the underlying Go error text.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, message := statusForError(err)
	s.log.Warn("request rejected", metrics.Fields{"op": "error", "err": err.Error()})
	s.writeJSON(w, status, map[string]string{"message": message})
}

func statusForError(err error) (int, string) {
	var authErr *verrors.AuthError
	if verrors.As(err, &authErr) {
		return http.StatusUnauthorized, "Unauthorized"
	}
	var shareErr *verrors.ShareError
	if verrors.As(err, &shareErr) {
		switch shareErr.Kind {
		case verrors.ShareInvalidRecipient:
			return http.StatusBadRequest, "Invalid recipient"
		case verrors.ShareSelfShareForbidden:
			return http.StatusForbidden, "Cannot share with yourself"
		case verrors.ShareAlreadyShared:
			return http.StatusConflict, "Already shared"
		case verrors.ShareNotShared:
			return http.StatusNotFound, "Not shared"
		}
	}
	var protoErr *verrors.ProtocolError
	if verrors.As(err, &protoErr) {
		switch protoErr.Kind {
		case verrors.ProtocolDuplicateUsername:
			return http.StatusConflict, "Username already registered"
		case verrors.ProtocolFileNotFound:
			return http.StatusNotFound, "File not found"
		case verrors.ProtocolUnauthorized:
			return http.StatusForbidden, "Unauthorized"
		default:
			return http.StatusInternalServerError, "Internal server error"
		}
	}
	var storageErr *verrors.StorageError
	if verrors.As(err, &storageErr) {
		return http.StatusInternalServerError, "Internal server error"
	}
	var cryptoErr *verrors.CryptoError
	if verrors.As(err, &cryptoErr) {
		return http.StatusBadRequest, "Invalid request"
	}
	return http.StatusInternalServerError, "Internal server error"
}
