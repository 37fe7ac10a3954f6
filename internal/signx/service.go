// Package signx implements the asymmetric half of the order protection
// pipeline: RSA-PSS signing and verification under a process-wide keypair
// that is generated once and persisted as PEM files.
package signx

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/paramashop/internal/logging"
)

const (
	privateKeyFile = "private_key.pem"
	publicKeyFile  = "public_key.pem"
	lockFile       = ".provision.lock"

	keyBits = 2048
)

var pssOpts = &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: crypto.SHA256}

// provisionMu serializes in-process provisioning attempts; the lock file
// handles the cross-process race.
var provisionMu sync.Mutex

// Service signs payloads with RSA-2048 PSS over SHA-256 (maximal salt) and
// verifies signatures with the matching public key. Keys are read-only after
// construction, so a Service may be shared freely across goroutines.
type Service struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	logger     logging.Logger
}

// NewService provisions the keypair under keyDir and returns a ready
// Service. If both PEM files exist they are loaded; if neither exists a
// fresh keypair is generated and persisted before first use. Files that
// exist but fail to parse are a distinct, fatal fault: regenerating here
// would silently invalidate every previously signed order.
//
// First-ever generation is guarded by an exclusive-create lock file so two
// processes racing on an empty directory cannot write different keypairs.
func NewService(keyDir string, logger logging.Logger) (*Service, error) {
	s := &Service{logger: logger.With("module", "signx")}

	if err := os.MkdirAll(keyDir, 0o700); err != nil {
		return nil, fmt.Errorf("key dir: %w", err)
	}

	loaded, err := s.loadKeys(keyDir)
	if err != nil {
		return nil, err
	}
	if loaded {
		s.logger.Info(context.Background(), "RSA keys loaded from disk", "dir", keyDir)
		return s, nil
	}

	if err := s.generateKeys(keyDir); err != nil {
		return nil, err
	}
	s.logger.Info(context.Background(), "RSA keys generated and saved to disk", "dir", keyDir)
	return s, nil
}

// loadKeys reads both PEM halves. It returns (false, nil) when both files
// are absent, and an error when files are present but unreadable or
// unparsable (a different fault from absence, reported as such).
func (s *Service) loadKeys(keyDir string) (bool, error) {
	privPath := filepath.Join(keyDir, privateKeyFile)
	pubPath := filepath.Join(keyDir, publicKeyFile)

	_, privErr := os.Stat(privPath)
	_, pubErr := os.Stat(pubPath)
	if errors.Is(privErr, os.ErrNotExist) && errors.Is(pubErr, os.ErrNotExist) {
		return false, nil
	}

	privPEM, err := os.ReadFile(privPath)
	if err != nil {
		return false, fmt.Errorf("reading private key: %w", err)
	}
	pubPEM, err := os.ReadFile(pubPath)
	if err != nil {
		return false, fmt.Errorf("reading public key: %w", err)
	}

	priv, err := parsePrivateKey(privPEM)
	if err != nil {
		return false, fmt.Errorf("private key file exists but is unparsable: %w", err)
	}
	pub, err := parsePublicKey(pubPEM)
	if err != nil {
		return false, fmt.Errorf("public key file exists but is unparsable: %w", err)
	}

	s.privateKey = priv
	s.publicKey = pub
	return true, nil
}

// generateKeys creates a fresh keypair and persists both halves. The lock
// file is taken with O_CREATE|O_EXCL; if another process holds it, we wait
// for it to finish and load the keys it wrote.
func (s *Service) generateKeys(keyDir string) error {
	provisionMu.Lock()
	defer provisionMu.Unlock()

	lockPath := filepath.Join(keyDir, lockFile)
	lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if errors.Is(err, os.ErrExist) {
		return s.waitForOtherWriter(keyDir, lockPath)
	}
	if err != nil {
		return fmt.Errorf("provision lock: %w", err)
	}
	defer func() {
		lock.Close()
		os.Remove(lockPath)
	}()

	priv, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return fmt.Errorf("generating keypair: %w", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return fmt.Errorf("encoding public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	if err := os.WriteFile(filepath.Join(keyDir, privateKeyFile), privPEM, 0o600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	if err := os.WriteFile(filepath.Join(keyDir, publicKeyFile), pubPEM, 0o644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	s.privateKey = priv
	s.publicKey = &priv.PublicKey
	return nil
}

// waitForOtherWriter polls until the concurrent provisioner releases the
// lock, then loads the keys it persisted.
func (s *Service) waitForOtherWriter(keyDir, lockPath string) error {
	for i := 0; i < 50; i++ {
		if _, err := os.Stat(lockPath); errors.Is(err, os.ErrNotExist) {
			loaded, err := s.loadKeys(keyDir)
			if err != nil {
				return err
			}
			if loaded {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return errors.New("timed out waiting for concurrent key provisioning")
}

func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("not an RSA private key")
	}
	return key, nil
}

func parsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return key, nil
}

// Sign returns an RSA-PSS signature over payload. When the private key is
// unavailable it returns an empty slice; callers treat that as "signing
// unavailable", never as a valid zero-length signature.
func (s *Service) Sign(payload []byte) []byte {
	if s.privateKey == nil {
		s.logger.Warn(context.Background(), "private key not available for signing")
		return nil
	}
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPSS(rand.Reader, s.privateKey, crypto.SHA256, digest[:], pssOpts)
	if err != nil {
		s.logger.Error(context.Background(), "signing failed", "error", err)
		return nil
	}
	return sig
}

// Verify reports whether sig is a valid signature over exactly payload.
// It returns false (never panics or errors) for a wrong signature, wrong
// payload, malformed signature bytes, or a missing public key.
func (s *Service) Verify(payload, sig []byte) bool {
	if s.publicKey == nil || len(sig) == 0 {
		return false
	}
	digest := sha256.Sum256(payload)
	return rsa.VerifyPSS(s.publicKey, crypto.SHA256, digest[:], sig, pssOpts) == nil
}

// SignBase64 signs payload and returns the signature base64-encoded, or ""
// when signing is unavailable.
func (s *Service) SignBase64(payload []byte) string {
	sig := s.Sign(payload)
	if len(sig) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(sig)
}

// VerifyBase64 decodes a base64 signature and verifies it against payload.
// Undecodable input is simply an invalid signature.
func (s *Service) VerifyBase64(payload []byte, sigB64 string) bool {
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	return s.Verify(payload, sig)
}

// ExportPublicKey returns the public key as PEM text for external
// distribution, or "" when no public key is available.
func (s *Service) ExportPublicKey() string {
	if s.publicKey == nil {
		return ""
	}
	der, err := x509.MarshalPKIXPublicKey(s.publicKey)
	if err != nil {
		return ""
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}
