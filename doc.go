// Package filevault is the core of an end-to-end encrypted file-sharing
// service: client-side hybrid post-quantum/classical cryptography plus the
// authenticated HTTP request/response protocol that carries it.
//
// # Quick Start
//
// Generate an identity, register it, and hold an encrypted local store:
//
//	import "github.com/tomjoyce1/filevault/pkg/keybundle"
//	import "github.com/tomjoyce1/filevault/pkg/clientstore"
//
//	bundle, _ := keybundle.GenerateKeyBundle()
//	store, _ := clientstore.Open("store.json")
//	store.SetUserWithPassword("alice", []byte("hunter2"), bundle)
//
// Every file is encrypted locally under a fresh File Encryption Key before
// it ever reaches the server, and every request carries a dual classical +
// post-quantum signature the server verifies before touching any state:
//
//	import "github.com/tomjoyce1/filevault/pkg/filecrypto"
//	import "github.com/tomjoyce1/filevault/pkg/fsserver"
//
//	enc, _ := filecrypto.EncryptFile(0, "report.pdf", plaintext, metadata)
//	srv := fsserver.New()
//
// # Package structure
//
//   - pkg/primitives: AES-256-CTR, SHA-256, SPKI wrapping, constant-time helpers
//   - pkg/kdf: Argon2id password-based key derivation
//   - pkg/kem: hybrid X25519 + ML-KEM-1024 key encapsulation
//   - pkg/signer: hybrid Ed25519 + ML-DSA-87 signing
//   - pkg/keybundle: the four-key-pair identity bundle and its wire encodings
//   - pkg/authproto: the request signing/verification state machine
//   - pkg/filecrypto: per-file envelope encryption and the dual file-record signature
//   - pkg/sharecrypto: rewrapping a file's keys for a recipient via a fresh KEM exchange
//   - pkg/clientstore: the encrypted local identity and file-key store
//   - pkg/fsserver: the reference HTTP server binding for all eight endpoints
//   - pkg/metrics: structured logging
//   - cmd/filevaultd: the demo server binary
//   - cmd/filevaultctl: the reference client CLI
//
// # Security properties
//
//   - Post-quantum security: ML-KEM-1024 / ML-DSA-87 (NIST Category 5)
//   - Classical security: X25519 / Ed25519
//   - Hybrid guarantee: secure if either algorithm half is secure
//   - The server only ever sees ciphertext, signatures and opaque key material
package filevault
