package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSConfig builds a *tls.Config for the TLS and WSS transports.
type TLSConfig struct {
	CertFile           string
	KeyFile            string
	CAFile             string
	ClientAuth         tls.ClientAuthType
	MinVersion         uint16
	MaxVersion         uint16
	CipherSuites       []uint16
	InsecureSkipVerify bool
}

// DefaultTLSConfig requires TLS 1.3 and no client certificate.
func DefaultTLSConfig() *TLSConfig {
	return &TLSConfig{
		ClientAuth: tls.NoClientCert,
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,
	}
}

// Build loads the certificate/key pair and optional CA pool described
// by tc.
func (tc *TLSConfig) Build() (*tls.Config, error) {
	if tc.CertFile == "" || tc.KeyFile == "" {
		return nil, ErrInvalidTLSConfig
	}

	cert, err := tls.LoadX509KeyPair(tc.CertFile, tc.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	config := &tls.Config{
		Certificates:       []tls.Certificate{cert},
		ClientAuth:         tc.ClientAuth,
		MinVersion:         tc.MinVersion,
		MaxVersion:         tc.MaxVersion,
		CipherSuites:       tc.CipherSuites,
		InsecureSkipVerify: tc.InsecureSkipVerify,
	}

	if tc.CAFile != "" {
		caCert, err := os.ReadFile(tc.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		config.ClientCAs = caCertPool
		if tc.ClientAuth == tls.NoClientCert {
			config.ClientAuth = tls.RequireAndVerifyClientCert
		}
	}

	return config, nil
}

// TLSVerifier validates a peer certificate chain against a CA pool,
// or a caller-supplied custom verifier.
type TLSVerifier struct {
	caPool         *x509.CertPool
	verifyPeerCert func([][]byte, [][]*x509.Certificate) error
}

// NewTLSVerifier loads caFile into a verifier's trust pool. An empty
// caFile yields a verifier with no pool, for use only with a custom
// verifier set via SetCustomVerifier.
func NewTLSVerifier(caFile string) (*TLSVerifier, error) {
	if caFile == "" {
		return &TLSVerifier{}, nil
	}
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}
	return &TLSVerifier{caPool: caPool}, nil
}

func (tv *TLSVerifier) VerifyCertificate(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error {
	if tv.verifyPeerCert != nil {
		return tv.verifyPeerCert(rawCerts, verifiedChains)
	}
	if len(rawCerts) == 0 {
		return ErrCertificateVerification
	}

	cert, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}

	opts := x509.VerifyOptions{Roots: tv.caPool, Intermediates: x509.NewCertPool()}
	for _, rawCert := range rawCerts[1:] {
		if c, err := x509.ParseCertificate(rawCert); err == nil {
			opts.Intermediates.AddCert(c)
		}
	}

	if _, err := cert.Verify(opts); err != nil {
		return ErrCertificateVerification
	}
	return nil
}

func (tv *TLSVerifier) SetCustomVerifier(fn func([][]byte, [][]*x509.Certificate) error) {
	tv.verifyPeerCert = fn
}

// MutualTLSConfig builds a TLSConfig with client-certificate
// requirements layered on top.
type MutualTLSConfig struct {
	TLSConfig
	RequireClientCert bool
	VerifyClientCert  bool
}

func (mtc *MutualTLSConfig) Build() (*tls.Config, error) {
	config, err := mtc.TLSConfig.Build()
	if err != nil {
		return nil, err
	}
	switch {
	case mtc.RequireClientCert && mtc.VerifyClientCert:
		config.ClientAuth = tls.RequireAndVerifyClientCert
	case mtc.RequireClientCert:
		config.ClientAuth = tls.RequireAnyClientCert
	default:
		config.ClientAuth = tls.VerifyClientCertIfGiven
	}
	return config, nil
}

// GetPeerCertificates returns the peer's certificate chain for a TLS
// Connection, or (nil, nil) for a plain connection.
func GetPeerCertificates(conn *Connection) ([]*x509.Certificate, error) {
	if !conn.IsTLS() {
		return nil, nil
	}
	state, ok := conn.TLSConnectionState()
	if !ok {
		return nil, nil
	}
	return state.PeerCertificates, nil
}

// GetPeerCommonName returns the peer leaf certificate's CN, or "" if
// there is no peer certificate.
func GetPeerCommonName(conn *Connection) (string, error) {
	certs, err := GetPeerCertificates(conn)
	if err != nil {
		return "", err
	}
	if len(certs) == 0 {
		return "", nil
	}
	return certs[0].Subject.CommonName, nil
}

// VerifyPeerCertificate checks the peer certificate's CN against
// expectedCN, used as an Authorizer-adjacent check for mTLS
// deployments.
func VerifyPeerCertificate(conn *Connection, expectedCN string) error {
	if !conn.IsTLS() {
		return nil
	}
	cn, err := GetPeerCommonName(conn)
	if err != nil {
		return err
	}
	if cn != expectedCN {
		return ErrCertificateVerification
	}
	return nil
}
