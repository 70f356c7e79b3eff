package fabric

import (
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/spec-kit/ledger-gateway/internal/config"
	"github.com/spec-kit/ledger-gateway/internal/ledger"
)

// Connection owns the gRPC client connection and the Fabric gateway built on it.
// It is created once at startup and shared by all requests.
type Connection struct {
	grpcConn  *grpc.ClientConn
	gateway   *client.Gateway
	network   *client.Network
	chaincode string
	logger    *zap.Logger
}

// Connect dials the configured peer and connects a gateway with the client identity.
func Connect(cfg config.LedgerConfig, logger *zap.Logger) (*Connection, error) {
	if !cfg.Enabled() {
		return nil, errors.New("LEDGER_PEER_ENDPOINT not configured")
	}

	id, err := newIdentity(cfg)
	if err != nil {
		return nil, err
	}
	sign, err := newSign(cfg)
	if err != nil {
		return nil, err
	}
	grpcConn, err := newGrpcConnection(cfg)
	if err != nil {
		return nil, err
	}

	gw, err := client.Connect(
		id,
		client.WithSign(sign),
		client.WithClientConnection(grpcConn),
		client.WithEvaluateTimeout(cfg.EvaluateTimeout()),
		client.WithEndorseTimeout(cfg.EndorseTimeout()),
		client.WithSubmitTimeout(cfg.SubmitTimeout()),
		client.WithCommitStatusTimeout(cfg.CommitStatusTimeout()),
	)
	if err != nil {
		_ = grpcConn.Close()
		return nil, fmt.Errorf("connect gateway: %w", err)
	}

	logger.Info("connected to ledger gateway",
		zap.String("peer", cfg.PeerEndpoint),
		zap.String("msp_id", cfg.MSPID),
		zap.String("channel", cfg.ChannelName),
		zap.String("chaincode", cfg.ChaincodeName))

	return &Connection{
		grpcConn:  grpcConn,
		gateway:   gw,
		network:   gw.GetNetwork(cfg.ChannelName),
		chaincode: cfg.ChaincodeName,
		logger:    logger,
	}, nil
}

// Contract returns the named contract of the configured chaincode as a ledger.Remote.
func (c *Connection) Contract(name string) ledger.Remote {
	return &Contract{caller: c.network.GetContractWithName(c.chaincode, name)}
}

// Close releases the gateway and then the underlying gRPC connection.
func (c *Connection) Close() {
	if c == nil {
		return
	}
	if c.gateway != nil {
		_ = c.gateway.Close()
	}
	if c.grpcConn != nil {
		if err := c.grpcConn.Close(); err != nil {
			c.logger.Warn("closing ledger connection", zap.Error(err))
		}
	}
	c.logger.Info("ledger connection closed")
}

func newGrpcConnection(cfg config.LedgerConfig) (*grpc.ClientConn, error) {
	certificate, err := loadCertificate(cfg.TLSCertPath)
	if err != nil {
		return nil, fmt.Errorf("load tls certificate: %w", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(certificate)
	creds := credentials.NewClientTLSFromCert(pool, cfg.OverrideAuthority)

	conn, err := grpc.NewClient(cfg.PeerEndpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create grpc connection: %w", err)
	}
	return conn, nil
}

func newIdentity(cfg config.LedgerConfig) (*identity.X509Identity, error) {
	certPath, err := firstFile(resolve(cfg.CryptoPath, cfg.CertDir))
	if err != nil {
		return nil, fmt.Errorf("client certificate: %w", err)
	}
	certificate, err := loadCertificate(certPath)
	if err != nil {
		return nil, fmt.Errorf("client certificate: %w", err)
	}
	return identity.NewX509Identity(cfg.MSPID, certificate)
}

func newSign(cfg config.LedgerConfig) (identity.Sign, error) {
	keyPath, err := firstFile(resolve(cfg.CryptoPath, cfg.KeyDir))
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	pem, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	key, err := identity.PrivateKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	return identity.NewPrivateKeySign(key)
}

func loadCertificate(path string) (*x509.Certificate, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return identity.CertificateFromPEM(pem)
}

// resolve joins dir onto base unless dir is already absolute.
func resolve(base, dir string) string {
	if base == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}

// firstFile returns the lexically first regular file in dir. MSP directories
// hold a single certificate or key with a generated name.
func firstFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("no files in %s", dir)
}
