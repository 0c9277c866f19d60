// Package clientstore implements the at-rest client state (C9): the
// password-wrapped user record plus the plaintext per-file secret map,
// persisted atomically to a single JSON document.
package clientstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tomjoyce1/filevault/internal/constants"
	"github.com/tomjoyce1/filevault/internal/verrors"
	"github.com/tomjoyce1/filevault/pkg/filecrypto"
	"github.com/tomjoyce1/filevault/pkg/kdf"
	"github.com/tomjoyce1/filevault/pkg/keybundle"
	"github.com/tomjoyce1/filevault/pkg/primitives"
)

// State is the store's lifecycle: no user has ever been set, a user is set
// but locked (MEK/bundle not in RAM), or the user is fully unlocked.
type State int

const (
	StateNoUser State = iota
	StateEncryptedOnly
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateNoUser:
		return "NoUser"
	case StateEncryptedOnly:
		return "EncryptedOnly"
	case StateUnlocked:
		return "Unlocked"
	default:
		return "Unknown"
	}
}

// userRecord is the at-rest user record, serialized as part of document.
type userRecord struct {
	Username     string `json:"username"`
	Salt         []byte `json:"salt"`
	MasterNonce  []byte `json:"master_nonce"`
	MasterEnc    []byte `json:"master_enc"`
	PrivNonce    []byte `json:"priv_nonce"`
	PrivEnc      []byte `json:"priv_enc"`
	PublicBundle []byte `json:"public_keybundle"`
}

// document is the single JSON document persisted to disk. Files is an
// array on disk (§6.2); the in-memory Store keeps it as a map keyed by
// FileID for O(1) lookup.
type document struct {
	User  *userRecord                  `json:"user,omitempty"`
	Files []*filecrypto.ClientFileData `json:"files"`
}

// Store is the shared, mutex-guarded client state. All mutating and reading
// methods acquire mu; internal helpers suffixed "Locked" assume the caller
// already holds it and must not re-enter.
type Store struct {
	mu    sync.RWMutex
	path  string
	state State

	user  *userRecord
	files map[uint64]*filecrypto.ClientFileData

	// In-RAM-only secrets, present only while State == StateUnlocked.
	masterKey []byte
	bundle    *keybundle.KeyBundle
}

// Open loads a store from path, or creates an empty in-memory store if the
// file does not exist or is zero-length (treated as empty, not a parse
// error).
func Open(path string) (*Store, error) {
	s := &Store{path: path, files: make(map[uint64]*filecrypto.ClientFileData), state: StateNoUser}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, verrors.NewStorageError(verrors.StorageIOFailed, "Open", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, verrors.NewStorageError(verrors.StorageCorrupt, "Open", err)
	}
	for _, f := range doc.Files {
		s.files[f.FileID] = f
	}
	if doc.User != nil {
		s.user = doc.User
		s.state = StateEncryptedOnly
	}
	return s, nil
}

// SetUserWithPassword registers a brand-new local identity: it generates a
// salt, derives the password-wrapping key, generates a fresh MEK, wraps the
// MEK under the password key and the full private bundle under the MEK,
// then persists. The private bundle and MEK remain in RAM afterward.
func (s *Store) SetUserWithPassword(username string, password []byte, fullBundle *keybundle.KeyBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	salt, err := primitives.Random(constants.SaltSize)
	if err != nil {
		return err
	}
	kPwd, err := kdf.DerivePasswordKey(password, salt)
	if err != nil {
		return err
	}
	defer primitives.Wipe(kPwd)

	mek, err := primitives.Random(constants.MEKSize)
	if err != nil {
		return err
	}

	masterEnc, masterNonce, err := primitives.Encrypt(mek, kPwd)
	if err != nil {
		return err
	}

	privJSON, err := fullBundle.ToPrivateJSON()
	if err != nil {
		return err
	}
	privEnc, privNonce, err := primitives.Encrypt(privJSON, mek)
	if err != nil {
		return err
	}

	pubJSON, err := fullBundle.ToPublicJSON()
	if err != nil {
		return err
	}

	s.user = &userRecord{
		Username:     username,
		Salt:         salt,
		MasterNonce:  masterNonce,
		MasterEnc:    masterEnc,
		PrivNonce:    privNonce,
		PrivEnc:      privEnc,
		PublicBundle: pubJSON,
	}
	s.masterKey = mek
	s.bundle = fullBundle
	s.state = StateUnlocked

	return s.saveLocked()
}

// Login unwraps the stored user record with password. On failure the store's
// state is left unchanged.
func (s *Store) Login(username string, password []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return verrors.NewAuthError(verrors.AuthUserUnknown, nil)
	}
	if s.user.Username != username {
		return verrors.NewAuthError(verrors.AuthUserUnknown, nil)
	}

	kPwd, err := kdf.DerivePasswordKey(password, s.user.Salt)
	if err != nil {
		return err
	}
	defer primitives.Wipe(kPwd)

	mek, err := primitives.Decrypt(s.user.MasterEnc, kPwd, s.user.MasterNonce)
	if err != nil {
		return verrors.NewAuthError(verrors.AuthSignatureInvalid, err)
	}

	privJSON, err := primitives.Decrypt(s.user.PrivEnc, mek, s.user.PrivNonce)
	if err != nil {
		primitives.Wipe(mek)
		return verrors.NewAuthError(verrors.AuthSignatureInvalid, err)
	}

	bundle, err := keybundle.ImportKeyBundle(privJSON)
	if err != nil {
		primitives.Wipe(mek)
		return verrors.NewAuthError(verrors.AuthSignatureInvalid, err)
	}

	s.masterKey = mek
	s.bundle = bundle
	s.state = StateUnlocked
	return nil
}

// ChangePassword re-wraps the MEK under a fresh salt and password key.
// Requires the store to be unlocked.
func (s *Store) ChangePassword(newPassword []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUnlocked {
		return verrors.NewAuthError(verrors.AuthMissing, nil)
	}

	salt, err := primitives.Random(constants.SaltSize)
	if err != nil {
		return err
	}
	kPwd, err := kdf.DerivePasswordKey(newPassword, salt)
	if err != nil {
		return err
	}
	defer primitives.Wipe(kPwd)

	masterEnc, masterNonce, err := primitives.Encrypt(s.masterKey, kPwd)
	if err != nil {
		return err
	}

	s.user.Salt = salt
	s.user.MasterNonce = masterNonce
	s.user.MasterEnc = masterEnc
	return s.saveLocked()
}

// GetUser returns the logged-in username, or "" if no user is unlocked.
func (s *Store) GetUser() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateUnlocked || s.user == nil {
		return ""
	}
	return s.user.Username
}

// Bundle returns the unlocked full key bundle, or nil if locked.
func (s *Store) Bundle() *keybundle.KeyBundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateUnlocked {
		return nil
	}
	return s.bundle
}

// UpsertFile inserts or replaces a file's client-side secrets.
func (s *Store) UpsertFile(data *filecrypto.ClientFileData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[data.FileID] = data
	return s.saveLocked()
}

// GetFile returns the stored secrets for fileID.
func (s *Store) GetFile(fileID uint64) (*filecrypto.ClientFileData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[fileID]
	if !ok {
		return nil, verrors.NewStorageError(verrors.StorageNotFound, "GetFile", nil)
	}
	return data, nil
}

// RemoveFile deletes a file's client-side secrets.
func (s *Store) RemoveFile(fileID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, fileID)
	return s.saveLocked()
}

// Logout wipes the MEK and private bundle from RAM. On-disk blobs are left
// intact; a subsequent Login can unlock the same record again.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.masterKey != nil {
		primitives.Wipe(s.masterKey)
		s.masterKey = nil
	}
	s.bundle = nil
	if s.state == StateUnlocked {
		s.state = StateEncryptedOnly
	}
}

// saveLocked persists the document atomically (write-to-temp, fsync,
// rename). Caller must already hold mu.
func (s *Store) saveLocked() error {
	files := make([]*filecrypto.ClientFileData, 0, len(s.files))
	for _, f := range s.files {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].FileID < files[j].FileID })
	doc := document{User: s.user, Files: files}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return verrors.NewStorageError(verrors.StorageIOFailed, "saveLocked", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return verrors.NewStorageError(verrors.StorageIOFailed, "saveLocked", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp")
	if err != nil {
		return verrors.NewStorageError(verrors.StorageIOFailed, "saveLocked", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return verrors.NewStorageError(verrors.StorageIOFailed, "saveLocked", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return verrors.NewStorageError(verrors.StorageIOFailed, "saveLocked", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return verrors.NewStorageError(verrors.StorageIOFailed, "saveLocked", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return verrors.NewStorageError(verrors.StorageIOFailed, "saveLocked", err)
	}
	return nil
}
