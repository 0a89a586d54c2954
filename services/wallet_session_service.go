// services/wallet_session_service.go
package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"prediction-bet-system/apperrors"
	"prediction-bet-system/models"
	"prediction-bet-system/utils"
)

const (
	challengeTTL = 5 * time.Minute
	// A verified session becomes a long-lived credential.
	verifiedSessionTTL = 24 * time.Hour
)

type WalletSessionService struct {
	DB       *gorm.DB
	Verifier *SignatureVerifier
	Secret   []byte
}

func NewWalletSessionService(db *gorm.DB, verifier *SignatureVerifier, secret string) *WalletSessionService {
	return &WalletSessionService{DB: db, Verifier: verifier, Secret: []byte(secret)}
}

// newNonce returns a 128-bit random value as hex. Collisions are rejected by
// the unique index on wallet_sessions.nonce, not by retrying here.
func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

type SessionClaims struct {
	WalletAddress string            `json:"wallet_address"`
	WalletType    models.WalletType `json:"wallet_type"`
	SessionID     string            `json:"session_id"`
	jwt.RegisteredClaims
}

// Initiate creates an unverified session with a fresh challenge. The
// challenge text binds address, nonce and issue time, so a signed challenge
// cannot be replayed against another address or a re-issued session.
func (s *WalletSessionService) Initiate(address string, walletType models.WalletType) (*models.WalletSession, error) {
	addr := strings.TrimSpace(address)
	if addr == "" {
		return nil, apperrors.Validation("address is required", "Wallet address is required")
	}
	if !walletType.Valid() {
		return nil, apperrors.Validation("unknown wallet type", "Unsupported wallet type")
	}
	if walletType == models.WalletTypeEVM {
		// Hex addresses are case-insensitive; base58 ones are the public
		// key itself and must keep their case.
		addr = strings.ToLower(addr)
	}

	nonce, err := newNonce()
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := time.Now().UTC()
	challenge := fmt.Sprintf(
		"Sign this message to verify you own wallet %s\n\nNonce: %s\nIssued At: %s",
		addr, nonce, now.Format(time.RFC3339),
	)

	session := &models.WalletSession{
		ID:            uuid.NewString(),
		WalletAddress: addr,
		WalletType:    walletType,
		ChallengeText: challenge,
		Nonce:         nonce,
		ExpiresAt:     now.Add(challengeTTL),
	}
	if err := s.DB.Create(session).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	return session, nil
}

type VerifiedSession struct {
	Token         string            `json:"token"`
	WalletAddress string            `json:"walletAddress"`
	WalletType    models.WalletType `json:"walletType"`
	ExpiresAt     time.Time         `json:"expiresAt"`
}

// Verify checks the signature against the stored challenge and consumes the
// session. The unverified→verified transition is a conditional update so two
// racing calls can never both mint a token for one nonce.
func (s *WalletSessionService) Verify(sessionID, signature string) (*VerifiedSession, error) {
	var session models.WalletSession
	if err := s.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("session")
		}
		return nil, apperrors.Internal(err)
	}

	if session.IsVerified {
		return nil, apperrors.Conflict("session already used", "This login challenge has already been used")
	}

	now := time.Now().UTC()
	if now.After(session.ExpiresAt) {
		return nil, apperrors.Expired("session expired", "Login challenge expired, please reconnect your wallet")
	}

	if !s.Verifier.Verify(session.WalletType, session.WalletAddress, session.ChallengeText, signature) {
		// Session stays unverified: a retry with the right signature is
		// allowed until the 5-minute window lapses.
		return nil, apperrors.Unauthorized("signature verification failed", "Signature did not match the wallet address")
	}

	expiresAt := now.Add(verifiedSessionTTL)
	token, err := s.mintToken(&session, now, expiresAt)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	res := s.DB.Model(&models.WalletSession{}).
		Where("id = ? AND is_verified = ?", session.ID, false).
		Updates(map[string]interface{}{
			"is_verified":   true,
			"signature":     signature,
			"session_token": token,
			"verified_at":   now,
			"expires_at":    expiresAt,
		})
	if res.Error != nil {
		return nil, apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race against a concurrent verify for the same nonce.
		return nil, apperrors.Conflict("session already used", "This login challenge has already been used")
	}

	log.Printf("✅ [WALLET] Verified %s session for %s", session.WalletType, session.WalletAddress)

	return &VerifiedSession{
		Token:         token,
		WalletAddress: session.WalletAddress,
		WalletType:    session.WalletType,
		ExpiresAt:     expiresAt,
	}, nil
}

func (s *WalletSessionService) mintToken(session *models.WalletSession, now, expiresAt time.Time) (string, error) {
	claims := SessionClaims{
		WalletAddress: session.WalletAddress,
		WalletType:    session.WalletType,
		SessionID:     session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.WalletAddress,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

// Resolve validates a bearer token and returns the identity it carries.
// Every decode failure — expired, tampered, malformed — is the same
// Unauthorized to the caller.
func (s *WalletSessionService) Resolve(token string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, okHS := t.Method.(*jwt.SigningMethodHMAC); !okHS {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperrors.Unauthorized("invalid session token", "Session is invalid or expired, please reconnect your wallet")
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok {
		return nil, apperrors.Unauthorized("invalid session token", "Session is invalid or expired, please reconnect your wallet")
	}
	return claims, nil
}

// --- HTTP handlers ---

// Connect handles POST /api/wallet/connect
func (s *WalletSessionService) Connect(c *fiber.Ctx) error {
	var req struct {
		Address    string            `json:"address"`
		WalletType models.WalletType `json:"walletType"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, apperrors.Validation("invalid request body", "Invalid request body"))
	}

	session, err := s.Initiate(req.Address, req.WalletType)
	if err != nil {
		return utils.RespondError(c, err)
	}

	return utils.RespondSuccess(c, fiber.StatusOK, fiber.Map{
		"sessionId": session.ID,
		"challenge": session.ChallengeText,
		"expiresAt": session.ExpiresAt,
	})
}

// VerifySession handles POST /api/wallet/verify
func (s *WalletSessionService) VerifySession(c *fiber.Ctx) error {
	var req struct {
		SessionID string `json:"sessionId"`
		Signature string `json:"signature"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.RespondError(c, apperrors.Validation("invalid request body", "Invalid request body"))
	}
	if req.SessionID == "" || req.Signature == "" {
		return utils.RespondError(c, apperrors.Validation("sessionId and signature are required", "Session id and signature are required"))
	}

	verified, err := s.Verify(req.SessionID, req.Signature)
	if err != nil {
		return utils.RespondError(c, err)
	}

	return utils.RespondSuccess(c, fiber.StatusOK, verified)
}

// Introspect handles GET /api/wallet/session (behind auth middleware)
func (s *WalletSessionService) Introspect(c *fiber.Ctx) error {
	return utils.RespondSuccess(c, fiber.StatusOK, fiber.Map{
		"address":    c.Locals("wallet_address"),
		"walletType": c.Locals("wallet_type"),
		"isVerified": true,
	})
}
