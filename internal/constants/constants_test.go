package constants

import "testing"

func TestKeySizes(t *testing.T) {
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"X25519PublicKeySize", X25519PublicKeySize, 32},
		{"X25519PrivateKeySize", X25519PrivateKeySize, 32},
		{"Ed25519PublicKeySize", Ed25519PublicKeySize, 32},
		{"Ed25519PrivateKeySize", Ed25519PrivateKeySize, 64},
		{"Ed25519SignatureSize", Ed25519SignatureSize, 64},
		{"MLKEMPublicKeySize", MLKEMPublicKeySize, 1568},
		{"MLKEMCiphertextSize", MLKEMCiphertextSize, 1568},
		{"MLDSA87PublicKeySize", MLDSA87PublicKeySize, 2592},
		{"MLDSA87PrivateKeySize", MLDSA87PrivateKeySize, 4896},
		{"SPKIWrappedSize", SPKIWrappedSize, 44},
		{"FEKSize", FEKSize, 32},
		{"MEKSize", MEKSize, 32},
		{"NonceSize", NonceSize, 16},
		{"SaltSize", SaltSize, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestReplayWindow(t *testing.T) {
	if ReplayWindowSeconds != 60 {
		t.Errorf("ReplayWindowSeconds = %d, want 60", ReplayWindowSeconds)
	}
}
