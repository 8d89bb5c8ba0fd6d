package ssh

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

// KeyPair represents an SSH key pair used to reach launched instances.
type KeyPair struct {
	PrivateKeyPath string
	PublicKeyPath  string
	PublicKey      string
}

// LoadPublicKey reads the public key next to the given private key file,
// deriving and writing it when only the private key exists. img-proof config
// points at the private key; the public half is what goes into user-data.
func LoadPublicKey(privateKeyPath string) (*KeyPair, error) {
	if _, err := os.Stat(privateKeyPath); err != nil {
		return nil, fmt.Errorf("SSH private key file not found: %w", err)
	}

	publicKeyPath := privateKeyPath + ".pub"
	if data, err := os.ReadFile(publicKeyPath); err == nil {
		return &KeyPair{
			PrivateKeyPath: privateKeyPath,
			PublicKeyPath:  publicKeyPath,
			PublicKey:      string(data),
		}, nil
	}

	return derivePublicKey(privateKeyPath, publicKeyPath)
}

// GetOrGenerateKeyPair returns the key pair stored in keyDir, generating a
// new RSA pair when none exists yet.
func GetOrGenerateKeyPair(keyDir string) (*KeyPair, error) {
	if err := os.MkdirAll(keyDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	privateKeyPath := filepath.Join(keyDir, "imgproof_rsa")
	publicKeyPath := privateKeyPath + ".pub"

	if _, err := os.Stat(privateKeyPath); err == nil {
		return LoadPublicKey(privateKeyPath)
	}

	return generateKeyPair(privateKeyPath, publicKeyPath)
}

func generateKeyPair(privateKeyPath, publicKeyPath string) (*KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	if err := os.WriteFile(privateKeyPath, privateKeyPEM, 0600); err != nil {
		return nil, fmt.Errorf("failed to write private key: %w", err)
	}

	publicKey, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}

	publicKeyBytes := ssh.MarshalAuthorizedKey(publicKey)
	if err := os.WriteFile(publicKeyPath, publicKeyBytes, 0644); err != nil {
		return nil, fmt.Errorf("failed to write public key: %w", err)
	}

	return &KeyPair{
		PrivateKeyPath: privateKeyPath,
		PublicKeyPath:  publicKeyPath,
		PublicKey:      string(publicKeyBytes),
	}, nil
}

func derivePublicKey(privateKeyPath, publicKeyPath string) (*KeyPair, error) {
	data, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	publicKeyBytes := ssh.MarshalAuthorizedKey(signer.PublicKey())
	if err := os.WriteFile(publicKeyPath, publicKeyBytes, 0644); err != nil {
		return nil, fmt.Errorf("failed to write public key: %w", err)
	}

	return &KeyPair{
		PrivateKeyPath: privateKeyPath,
		PublicKeyPath:  publicKeyPath,
		PublicKey:      string(publicKeyBytes),
	}, nil
}
