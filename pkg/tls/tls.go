package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/workloadapi"
	"go.uber.org/zap"
)

const watchInterval = 30 * time.Second

// Source holds the SPIRE X509 source shared by the ops server and the kafka client.
type Source struct {
	x509   *workloadapi.X509Source
	logger *zap.Logger
}

// NewSource connects to the SPIRE Workload API. Returns (nil, nil) when TLS is disabled.
func NewSource(ctx context.Context, enabled bool, socketPath string, logger *zap.Logger) (*Source, error) {
	if !enabled {
		logger.Info("TLS is disabled")
		return nil, nil
	}

	// SPIRE Workload API를 통해 X509 소스 생성
	source, err := workloadapi.NewX509Source(
		ctx,
		workloadapi.WithClientOptions(
			workloadapi.WithAddr(socketPath),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create X509Source: %w", err)
	}

	logger.Info("SPIRE X509 source ready", zap.String("socket_path", socketPath))
	return &Source{x509: source, logger: logger}, nil
}

// ServerConfig returns the mTLS config for the ops HTTP server, nil when s is nil.
func (s *Source) ServerConfig() *tls.Config {
	if s == nil {
		return nil
	}
	cfg := tlsconfig.MTLSServerConfig(s.x509, s.x509, tlsconfig.AuthorizeAny())
	cfg.MinVersion = tls.VersionTLS12
	return cfg
}

// ClientConfig returns the mTLS config for outgoing broker connections, nil when s is nil.
func (s *Source) ClientConfig() *tls.Config {
	if s == nil {
		return nil
	}
	cfg := tlsconfig.MTLSClientConfig(s.x509, s.x509, tlsconfig.AuthorizeAny())
	cfg.MinVersion = tls.VersionTLS12
	return cfg
}

// WatchCertificates logs SVID status until ctx is done. SPIRE rotates certificates itself.
func (s *Source) WatchCertificates(ctx context.Context) {
	if s == nil {
		return
	}

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svid, err := s.x509.GetX509SVID()
			if err != nil {
				s.logger.Error("Failed to get X509 SVID", zap.Error(err))
				continue
			}

			s.logger.Info("Certificate status",
				zap.String("spiffe_id", svid.ID.String()),
				zap.Time("expiry", svid.Certificates[0].NotAfter),
				zap.Duration("ttl", time.Until(svid.Certificates[0].NotAfter)))
		}
	}
}

func (s *Source) Close() error {
	if s == nil {
		return nil
	}
	return s.x509.Close()
}
