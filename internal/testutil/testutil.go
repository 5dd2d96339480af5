// Package testutil contains shared testing utilities.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/thousandways/scitore-api/internal/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens an in-memory SQLite database with every model migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := database.GormConfig()
	cfg.Logger = logger.Discard
	db, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// KeyPair is an RSA signing key published under Kid.
type KeyPair struct {
	Kid     string
	Private *rsa.PrivateKey
}

func NewKeyPair(t *testing.T, kid string) *KeyPair {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return &KeyPair{Kid: kid, Private: key}
}

// Sign returns an RS256 token carrying the kid header.
func (k *KeyPair) Sign(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = k.Kid
	signed, err := token.SignedString(k.Private)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// JWKS encodes the public halves of keys as a JSON Web Key Set.
func JWKS(keys ...*KeyPair) []byte {
	type jwk struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Use string `json:"use"`
		Alg string `json:"alg"`
		N   string `json:"n"`
		E   string `json:"e"`
	}
	set := struct {
		Keys []jwk `json:"keys"`
	}{Keys: []jwk{}}
	for _, k := range keys {
		pub := k.Private.PublicKey
		set.Keys = append(set.Keys, jwk{
			Kty: "RSA",
			Kid: k.Kid,
			Use: "sig",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	b, _ := json.Marshal(set)
	return b
}

// JWKSServer serves a mutable key set and counts fetches.
type JWKSServer struct {
	*httptest.Server
	hits atomic.Int32
	body atomic.Value
}

func NewJWKSServer(t *testing.T, keys ...*KeyPair) *JWKSServer {
	t.Helper()
	s := &JWKSServer{}
	s.body.Store(JWKS(keys...))
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write(s.body.Load().([]byte))
	}))
	t.Cleanup(s.Close)
	return s
}

// Publish replaces the served key set.
func (s *JWKSServer) Publish(keys ...*KeyPair) {
	s.body.Store(JWKS(keys...))
}

func (s *JWKSServer) Hits() int {
	return int(s.hits.Load())
}
