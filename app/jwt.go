package app

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwk"
	"go.uber.org/zap"
)

var (
	ErrLoadJWKSet            = errors.New("failed to load JWK set")
	ErrFailedToGetPrivateKey = errors.New("failed to get private key")
	ErrFailedToSignJWT       = errors.New("failed to sign JWT")
	ErrFailedToCastKey       = errors.New("failed to cast key to jwk.Key")
	ErrNoSuitablePrivateKey  = errors.New("no suitable private key found")
	ErrFailedToGetRawKey     = errors.New("failed to get raw key")
	ErrInvalidAccessToken    = errors.New("invalid or expired access token")
)

const (
	privateKeyPrefix = "private:"
	publicKeyPrefix  = "public:"
)

// Signer issues and verifies access tokens.
type Signer interface {
	Sign(claims jwt.MapClaims) (string, error)
	Verify(ctx context.Context, token string) (jwt.MapClaims, error)
	PublicKeys() jwk.Set
}

// signer rotates through the private keys of a JWK set. Private keys carry a
// "private:" kid; the published set uses "public:" with the same suffix.
type signer struct {
	private  jwk.Set
	public   jwk.Set
	logger   *zap.Logger
	mu       sync.Mutex
	keyIndex int
}

// NewJWTSigner loads signing keys from jwksFile, or generates one RSA key
// when the path is empty.
func NewJWTSigner(jwksFile string, logger *zap.Logger) (Signer, error) {
	var (
		set jwk.Set
		err error
	)
	if jwksFile != "" {
		set, err = jwk.ReadFile(jwksFile)
		if err != nil {
			logger.Error("failed to read JWK set", zap.String("path", jwksFile), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrLoadJWKSet, err)
		}
	} else {
		set, err = generateKeySet()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadJWKSet, err)
		}
		logger.Warn("no JWKS file configured, generated an ephemeral signing key")
	}
	return newSigner(set, logger)
}

func newSigner(set jwk.Set, logger *zap.Logger) (*signer, error) {
	ctx := context.Background()
	private := jwk.NewSet()
	public := jwk.NewSet()

	for it := set.Iterate(ctx); it.Next(ctx); {
		key, ok := it.Pair().Value.(jwk.Key)
		if !ok {
			return nil, ErrFailedToCastKey
		}
		if !canUseForSigning(key) {
			continue
		}

		id := strings.TrimPrefix(key.KeyID(), privateKeyPrefix)
		if id == "" {
			id = fmt.Sprintf("key-%d", private.Len())
		}
		if err := key.Set(jwk.KeyIDKey, privateKeyPrefix+id); err != nil {
			return nil, err
		}

		pub, err := jwk.PublicKeyOf(key)
		if err != nil {
			return nil, fmt.Errorf("derive public key %s: %w", id, err)
		}
		if err := pub.Set(jwk.KeyIDKey, publicKeyPrefix+id); err != nil {
			return nil, err
		}
		_ = pub.Set(jwk.KeyUsageKey, "sig")
		_ = pub.Set(jwk.AlgorithmKey, signingMethod(key).Alg())

		private.Add(key)
		public.Add(pub)
	}

	if private.Len() == 0 {
		return nil, ErrNoSuitablePrivateKey
	}
	return &signer{private: private, public: public, logger: logger}, nil
}

func generateKeySet() (jwk.Set, error) {
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	key, err := jwk.New(raw)
	if err != nil {
		return nil, err
	}
	if err := jwk.AssignKeyID(key); err != nil {
		return nil, err
	}
	set := jwk.NewSet()
	set.Add(key)
	return set, nil
}

// Sign signs a JWT token with the provided claims using key rotation
func (j *signer) Sign(claims jwt.MapClaims) (string, error) {
	privateKey, keyID, method, err := j.nextPrivateKey()
	if err != nil {
		j.logger.Error("failed to get next private key", zap.Error(err))
		return "", ErrFailedToGetPrivateKey
	}

	token := &jwt.Token{
		Header: map[string]interface{}{
			"typ": "JWT",
			"alg": method.Alg(),
			"kid": keyID,
		},
		Claims: claims,
		Method: method,
	}

	signed, err := token.SignedString(privateKey)
	if err != nil {
		j.logger.Error("failed to sign JWT", zap.Error(err))
		return "", ErrFailedToSignJWT
	}
	return signed, nil
}

// Verify checks the signature against the public key named by the token's
// kid and validates exp/iat.
func (j *signer) Verify(ctx context.Context, raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodRS256.Alg(), jwt.SigningMethodES256.Alg()}}

	_, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		keyID, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("expecting JWT header to have 'kid'")
		}

		verificationKeyID := keyID
		if strings.HasPrefix(keyID, privateKeyPrefix) {
			verificationKeyID = publicKeyPrefix + strings.TrimPrefix(keyID, privateKeyPrefix)
		}

		key, found := j.public.LookupKeyID(verificationKeyID)
		if !found {
			return nil, fmt.Errorf("unable to find key with ID '%s'", keyID)
		}

		var pubKey interface{}
		if err := key.Raw(&pubKey); err != nil {
			return nil, fmt.Errorf("failed to get raw public key: %w", err)
		}
		return pubKey, nil
	})
	if err != nil {
		LoggerFromContext(ctx).Debug("token validation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	return claims, nil
}

func (j *signer) PublicKeys() jwk.Set {
	return j.public
}

// nextPrivateKey returns the next available private key for signing and rotates the key index
func (j *signer) nextPrivateKey() (interface{}, string, jwt.SigningMethod, error) {
	j.mu.Lock()
	selected := j.keyIndex % j.private.Len()
	j.keyIndex = (j.keyIndex + 1) % j.private.Len()
	j.mu.Unlock()

	key, ok := j.private.Get(selected)
	if !ok {
		return nil, "", nil, ErrNoSuitablePrivateKey
	}

	var rawKey interface{}
	if err := key.Raw(&rawKey); err != nil {
		return nil, "", nil, fmt.Errorf("%w: %v", ErrFailedToGetRawKey, err)
	}
	return rawKey, key.KeyID(), signingMethod(key), nil
}

func canUseForSigning(key jwk.Key) bool {
	switch key.KeyType() {
	case jwa.RSA:
		if rsaKey, ok := key.(jwk.RSAPrivateKey); ok {
			return rsaKey.D() != nil
		}
	case jwa.EC:
		if ecKey, ok := key.(jwk.ECDSAPrivateKey); ok {
			return ecKey.D() != nil
		}
	}
	return false
}

func signingMethod(key jwk.Key) jwt.SigningMethod {
	if key.KeyType() == jwa.EC {
		return jwt.SigningMethodES256
	}
	return jwt.SigningMethodRS256
}

// accessClaims builds the claims of a login access token.
func accessClaims(issuer, userID, email, sessionID string, now time.Time, ttl time.Duration) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":   issuer,
		"sub":   userID,
		"email": email,
		"sid":   sessionID,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
}

// publicJWKS renders the published key set.
func publicJWKS(s Signer) ([]byte, error) {
	return json.Marshal(s.PublicKeys())
}
