package passkit

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"go.mozilla.org/pkcs7"
	"go.uber.org/zap"
	"golang.org/x/crypto/pkcs12"
)

// PlaceholderSignature is written instead of a CMS blob when no signing
// identity is available. Devices reject such passes; the API still serves them.
var PlaceholderSignature = []byte("unsigned")

// Signer produces the detached signature stored next to manifest.json.
type Signer interface {
	Sign(manifest []byte) ([]byte, error)
	// Signed reports whether Sign produces a real signature.
	Signed() bool
}

type PlaceholderSigner struct{}

func (PlaceholderSigner) Sign([]byte) ([]byte, error) {
	return PlaceholderSignature, nil
}

func (PlaceholderSigner) Signed() bool { return false }

// PKCS7Signer signs with the pass type certificate and chains the Apple WWDR
// intermediate, producing DER encoded detached CMS.
type PKCS7Signer struct {
	cert *x509.Certificate
	key  crypto.PrivateKey
	wwdr *x509.Certificate
}

func NewPKCS7Signer(cert *x509.Certificate, key crypto.PrivateKey, wwdr *x509.Certificate) *PKCS7Signer {
	return &PKCS7Signer{cert: cert, key: key, wwdr: wwdr}
}

func (s *PKCS7Signer) Signed() bool { return true }

func (s *PKCS7Signer) Sign(manifest []byte) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(manifest)
	if err != nil {
		return nil, fmt.Errorf("init signed data: %w", err)
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := sd.AddSigner(s.cert, s.key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("add signer: %w", err)
	}
	if s.wwdr != nil {
		sd.AddCertificate(s.wwdr)
	}
	sd.Detach()
	der, err := sd.Finish()
	if err != nil {
		return nil, fmt.Errorf("finish signature: %w", err)
	}
	return der, nil
}

// LoadPKCS7Signer reads a .p12 signing identity and the WWDR certificate (DER
// or PEM).
func LoadPKCS7Signer(p12Path, password, wwdrPath string) (*PKCS7Signer, error) {
	p12, err := os.ReadFile(p12Path)
	if err != nil {
		return nil, fmt.Errorf("read signing certificate: %w", err)
	}
	key, cert, err := pkcs12.Decode(p12, password)
	if err != nil {
		return nil, fmt.Errorf("decode signing certificate: %w", err)
	}
	wwdr, err := loadCertificate(wwdrPath)
	if err != nil {
		return nil, fmt.Errorf("load wwdr certificate: %w", err)
	}
	return NewPKCS7Signer(cert, key, wwdr), nil
}

func loadCertificate(path string) (*x509.Certificate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if block, _ := pem.Decode(raw); block != nil {
		raw = block.Bytes
	}
	return x509.ParseCertificate(raw)
}

// NewSigner returns a PKCS7Signer when both signing files exist and load,
// otherwise the placeholder. Load problems are logged, never returned.
func NewSigner(p12Path, password, wwdrPath string, log *zap.Logger) Signer {
	if !fileExists(p12Path) || !fileExists(wwdrPath) {
		log.Info("pass signing materials not configured, passes will be unsigned")
		return PlaceholderSigner{}
	}
	s, err := LoadPKCS7Signer(p12Path, password, wwdrPath)
	if err != nil {
		log.Warn("could not load pass signing materials, passes will be unsigned", zap.Error(err))
		return PlaceholderSigner{}
	}
	return s
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
